package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/gateway/service/providers"
)

type providerView struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	APIKey    string    `json:"apiKey"`
	Model     string    `json:"model,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewProvider(p *store.Provider) providerView {
	return providerView{
		ID:        p.ID,
		Provider:  p.Provider,
		APIKey:    maskKey(p.APIKey),
		Model:     p.Model,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

// maskKey keeps only enough of a key to tell keys apart.
func maskKey(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:3] + "..." + k[len(k)-4:]
}

type createProviderRequest struct {
	Provider string `json:"provider" validate:"required,oneof=openai gemini grok"`
	APIKey   string `json:"apiKey" validate:"required"`
	Model    string `json:"model"`
	IsActive *bool  `json:"isActive"`
}

type updateProviderRequest struct {
	APIKey   *string `json:"apiKey" validate:"omitempty,min=1"`
	Model    *string `json:"model"`
	IsActive *bool   `json:"isActive"`
}

type testProviderRequest struct {
	Provider string `json:"provider" validate:"required,oneof=openai gemini grok"`
	APIKey   string `json:"apiKey" validate:"required"`
}

func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	list, err := h.providers.List(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]providerView, 0, len(list))
	for i := range list {
		out = append(out, viewProvider(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ActiveProvider answers null when the user has no active provider.
func (h *Handler) ActiveProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Active(r.Context(), userID(r))
	if errors.Is(err, providers.ErrNoActiveProvider) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProvider(p))
}

func (h *Handler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req createProviderRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p, err := h.providers.Create(r.Context(), userID(r), providers.CreateInput{
		Provider: req.Provider,
		APIKey:   req.APIKey,
		Model:    req.Model,
		IsActive: active,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProvider(p))
}

func (h *Handler) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	var req updateProviderRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.providers.Update(r.Context(), userID(r), chi.URLParam(r, "id"), store.ProviderUpdate{
		APIKey:   req.APIKey,
		Model:    req.Model,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProvider(p))
}

func (h *Handler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	if err := h.providers.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) TestProvider(w http.ResponseWriter, r *http.Request) {
	var req testProviderRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ok, err := h.providers.Test(r.Context(), req.Provider, req.APIKey)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"connected": false, "message": "Connection test failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": ok})
}
