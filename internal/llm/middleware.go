package llm

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"clonescout/internal/llmclient"
	"clonescout/internal/metrics"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, logging, metrics).
type Middleware func(llmclient.Client) llmclient.Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.Client, mws ...Middleware) llmclient.Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// call is the shape shared by Generate and GenerateStructured.
type call func(ctx context.Context, req llmclient.Request) (*llmclient.Response, error)

// decorated forwards everything to next and routes both generation modes
// through around. TestConnection goes through the decorated Generate.
type decorated struct {
	next   llmclient.Client
	around func(ctx context.Context, mode string, req llmclient.Request, do call) (*llmclient.Response, error)
}

func (d *decorated) Name() string { return d.next.Name() }
func (d *decorated) Close() error { return d.next.Close() }

func (d *decorated) Generate(ctx context.Context, req llmclient.Request) (*llmclient.Response, error) {
	return d.around(ctx, "text", req, d.next.Generate)
}

func (d *decorated) GenerateStructured(ctx context.Context, req llmclient.Request) (*llmclient.Response, error) {
	return d.around(ctx, "structured", req, d.next.GenerateStructured)
}

func (d *decorated) TestConnection(ctx context.Context) bool {
	return llmclient.Probe(ctx, d)
}

// -------- Rate Limiting --------

// RateLimit limits request rate using the rpsLimiter.
// If rps <= 0, the limiter is effectively disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.Client) llmclient.Client {
		rl := newRPSLimiter(rps, burst) // nil when disabled
		return &decorated{next: next, around: func(ctx context.Context, _ string, req llmclient.Request, do call) (*llmclient.Response, error) {
			if err := rl.Acquire(ctx); err != nil {
				return nil, llmclient.NewPermanentError(err)
			}
			return do(ctx, req)
		}}
	}
}

// RateLimitFromEnv reads RPS/BURST from environment variables with the
// given prefixes in priority order. For example, ("LLM","GEMINI")
// checks LLM_RPS/LLM_BURST first, then GEMINI_RPS/GEMINI_BURST.
// It returns nil when no rate is configured; Wrap skips nil middleware.
func RateLimitFromEnv(prefixes ...string) Middleware {
	find := func(suffix string) string {
		for _, p := range prefixes {
			if p == "" {
				continue
			}
			if v := os.Getenv(p + suffix); v != "" {
				return v
			}
		}
		return ""
	}
	rps, _ := strconv.ParseFloat(find("_RPS"), 64)
	burst, _ := strconv.Atoi(find("_BURST"))
	if rps <= 0 {
		return nil
	}
	return RateLimit(rps, burst)
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. A nil logger disables it.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next llmclient.Client) llmclient.Client {
		log := logger.With(zap.String("provider", next.Name()))
		return &decorated{next: next, around: func(ctx context.Context, mode string, req llmclient.Request, do call) (*llmclient.Response, error) {
			start := time.Now()
			log.Debug("llm request",
				zap.String("mode", mode),
				zap.Int("bytes", len(req.Prompt)+len(req.SystemPrompt)))
			resp, err := do(ctx, req)
			if err != nil {
				log.Warn("llm error",
					zap.String("mode", mode),
					zap.Duration("latency", time.Since(start)),
					zap.String("kind", llmclient.Classify(err).String()),
					zap.Error(err))
				return nil, err
			}
			fields := []zap.Field{zap.String("mode", mode), zap.Duration("latency", time.Since(start))}
			if resp.Usage != nil {
				fields = append(fields, zap.Int64("total_tokens", resp.Usage.TotalTokens))
			}
			log.Debug("llm response", fields...)
			return resp, nil
		}}
	}
}

// -------- Metrics --------

// WithMetrics records call counts and latency per provider.
func WithMetrics() Middleware {
	return func(next llmclient.Client) llmclient.Client {
		name := next.Name()
		return &decorated{next: next, around: func(ctx context.Context, mode string, req llmclient.Request, do call) (*llmclient.Response, error) {
			start := time.Now()
			resp, err := do(ctx, req)
			metrics.ProviderLatency.WithLabelValues(name, mode).Observe(time.Since(start).Seconds())
			metrics.ProviderCalls.WithLabelValues(name, mode, outcome(err)).Inc()
			return resp, err
		}}
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, llmclient.ErrEmptyResponse) {
		return "empty"
	}
	return llmclient.Classify(err).String()
}
