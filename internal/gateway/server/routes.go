package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"clonescout/internal/gateway/handler"
	"clonescout/internal/gateway/middleware"
	"clonescout/internal/metrics"
)

func NewRouter(h *handler.Handler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.User)
	r.Use(middleware.RequestLogger(log))

	r.Get("/healthz", handler.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/ai-providers", func(r chi.Router) {
			r.Get("/", h.ListProviders)
			r.Post("/", h.CreateProvider)
			r.Get("/active", h.ActiveProvider)
			r.Post("/test", h.TestProvider)
			r.Put("/{id}", h.UpdateProvider)
			r.Delete("/{id}", h.DeleteProvider)
		})
		r.Route("/business-analyses", func(r chi.Router) {
			r.Get("/", h.ListAnalyses)
			r.Post("/analyze", h.Analyze)
			r.Post("/batch", h.AnalyzeBatch)
			r.Get("/batch/ws", h.BatchWS)
			r.Post("/search", h.Search)
			r.Get("/{id}", h.GetAnalysis)
			r.Put("/{id}", h.UpdateAnalysis)
			r.Get("/{id}/archive", h.ArchiveLinks)
		})
		r.Get("/workflow-stages/{analysisId}", h.ListStages)
		r.Post("/workflow-stages/{analysisId}/generate/{stageNumber}", h.GenerateStage)
		r.Get("/stats", h.Stats)
	})

	return middleware.CORS(r)
}
