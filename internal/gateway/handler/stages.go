package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clonescout/internal/workflow"
)

func (h *Handler) ListStages(w http.ResponseWriter, r *http.Request) {
	list, err := h.stages.List(r.Context(), userID(r), chi.URLParam(r, "analysisId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GenerateStage(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "stageNumber")
	n, err := strconv.Atoi(raw)
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %q", workflow.ErrUnknownStage, raw))
		return
	}
	st, err := h.stages.Generate(r.Context(), userID(r), chi.URLParam(r, "analysisId"), n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
