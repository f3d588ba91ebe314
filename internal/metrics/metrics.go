// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProviderCalls counts adapter calls by provider, mode and outcome.
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clonescout_provider_calls_total",
			Help: "Total number of AI provider calls",
		},
		[]string{"provider", "mode", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clonescout_provider_call_duration_seconds",
			Help:    "Duration of AI provider calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 90},
		},
		[]string{"provider", "mode"},
	)

	// PipelineAttempts counts structured-generation attempts by outcome
	// (ok, provider_error, parse_error, shape_error).
	PipelineAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clonescout_pipeline_attempts_total",
			Help: "Total number of structured generation attempts",
		},
		[]string{"outcome"},
	)

	PipelineResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clonescout_pipeline_results_total",
			Help: "Structured generations by final result",
		},
		[]string{"result"},
	)

	// NormalizerRepairs counts repairs applied to parsed responses.
	NormalizerRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clonescout_normalizer_repairs_total",
			Help: "Repairs applied by the response normalizer",
		},
		[]string{"kind"},
	)

	SchemaDeviations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clonescout_schema_deviations_total",
			Help: "Responses that did not conform to the requested schema",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clonescout_http_requests_total",
			Help: "HTTP requests served by the gateway",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "clonescout_http_request_duration_seconds",
			Help: "Duration of gateway HTTP requests in seconds",
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
