// Package handler serves the REST and websocket surface of the gateway.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"clonescout/internal/analysis"
	"clonescout/internal/gateway/middleware"
	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/gateway/service/analyses"
	"clonescout/internal/gateway/service/providers"
	"clonescout/internal/gateway/service/stages"
	"clonescout/internal/llmclient"
	"clonescout/internal/workflow"
)

const (
	msgInvalidAPIKey  = "Invalid API key. Please check your AI provider configuration."
	msgUnavailable    = "AI service temporarily unavailable. Please try again in a moment."
	msgRateLimited    = "Rate limit reached. Please wait a few moments before trying again."
	msgNotFound       = "Resource not found"
	msgInvalidRequest = "Invalid request body"
)

type Handler struct {
	providers *providers.Service
	analyses  *analyses.Service
	stages    *stages.Service
	validate  *validator.Validate
	log       *zap.Logger
}

func New(ps *providers.Service, as *analyses.Service, ss *stages.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		providers: ps,
		analyses:  as,
		stages:    ss,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log,
	}
}

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

// decode reads a JSON body into v and runs struct validation.
func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &requestError{msg: msgInvalidRequest}
	}
	if err := h.validate.Struct(v); err != nil {
		return &requestError{msg: validationMessage(err)}
	}
	return nil
}

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return msgInvalidRequest
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "oneof":
			parts = append(parts, fe.Field()+" must be one of: "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

// describe maps an error to the status and message a client sees.
func describe(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.msg
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, providers.ErrNoActiveProvider),
		errors.Is(err, analysis.ErrBatchSize),
		errors.Is(err, analyses.ErrEmptyQuery),
		errors.Is(err, workflow.ErrUnknownStage):
		return http.StatusBadRequest, err.Error()
	}
	switch llmclient.Classify(err) {
	case llmclient.KindAuthentication:
		return http.StatusBadRequest, msgInvalidAPIKey
	case llmclient.KindProviderUnavailable:
		return http.StatusServiceUnavailable, msgUnavailable
	case llmclient.KindRateLimited:
		return http.StatusTooManyRequests, msgRateLimited
	}
	if llmclient.IsPermanent(err) {
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := describe(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	} else {
		h.log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeMessage(w, status, msg)
}

func userID(r *http.Request) string { return middleware.UserID(r.Context()) }

// Healthz is the liveness probe.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
