package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clonescout/internal/gateway/repository/store"
)

type analyzeRequest struct {
	URL string `json:"url" validate:"required"`
}

type batchRequest struct {
	URLs []string `json:"urls" validate:"required,dive,required"`
}

type searchRequest struct {
	Query string `json:"query" validate:"required"`
}

type updateAnalysisRequest struct {
	BusinessModel *string `json:"businessModel"`
	RevenueStream *string `json:"revenueStream"`
	TargetMarket  *string `json:"targetMarket"`
	CurrentStage  *int    `json:"currentStage" validate:"omitempty,min=1,max=6"`
}

type batchResponse struct {
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Analyses   []*store.Analysis `json:"analyses"`
}

func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	out, err := h.analyses.List(r.Context(), userID(r), store.ListQuery{
		Page:      page,
		Limit:     limit,
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := h.analyses.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) UpdateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req updateAnalysisRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.analyses.Update(r.Context(), userID(r), chi.URLParam(r, "id"), store.AnalysisUpdate{
		BusinessModel: req.BusinessModel,
		RevenueStream: req.RevenueStream,
		TargetMarket:  req.TargetMarket,
		CurrentStage:  req.CurrentStage,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.analyses.Analyze(r.Context(), userID(r), req.URL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.analyses.AnalyzeBatch(r.Context(), userID(r), req.URLs, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Successful: out.Successful, Failed: out.Failed, Analyses: out.Analyses})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.analyses.Search(r.Context(), userID(r), req.Query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ArchiveLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.analyses.ArchiveLinks(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.analyses.Stats(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
