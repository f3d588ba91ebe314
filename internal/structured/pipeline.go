// Package structured turns a prompt plus a response schema into a normalized
// JSON object, retrying the provider call with a linear backoff.
//
// A run is a small state machine:
//
//	Attempting(n) -> Succeeded
//	Attempting(n) -> Backoff(n) -> Attempting(n+1)
//	Attempting(n) -> Failed      (n == max, or the error is permanent)
//	Backoff(n)    -> Failed      (context canceled while waiting)
//
// The backoff before attempt n+1 is n times the base delay.
package structured

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"clonescout/internal/llmclient"
	"clonescout/internal/metrics"
	"clonescout/internal/normalize"
	"clonescout/internal/schema"
	"clonescout/internal/util/jsonutil"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
)

type State int

const (
	Attempting State = iota
	Backoff
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Backoff:
		return "backoff"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Pipeline)

// WithMaxAttempts bounds the number of provider calls. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n >= 1 {
			p.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay. Values below 0 are ignored.
func WithBackoff(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.backoff = d
		}
	}
}

func WithSleep(fn SleepFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithObserver is called on every state transition, mostly for tests.
func WithObserver(fn func(state State, attempt int)) Option {
	return func(p *Pipeline) { p.observe = fn }
}

// Pipeline is safe for concurrent use; runs share no mutable state.
type Pipeline struct {
	client      llmclient.Client
	maxAttempts int
	backoff     time.Duration
	sleep       SleepFunc
	log         *zap.Logger
	tracer      trace.Tracer
	observe     func(State, int)
}

func New(client llmclient.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:      client,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		sleep:       sleepCtx,
		log:         zap.NewNop(),
		tracer:      otel.Tracer("clonescout/structured"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Client returns the adapter the pipeline drives.
func (p *Pipeline) Client() llmclient.Client { return p.client }

// GenerateStructured returns a normalized object or a *GenerationFailedError.
func (p *Pipeline) GenerateStructured(ctx context.Context, prompt string, s *schema.Schema, systemPrompt string) (map[string]any, error) {
	req := llmclient.Request{Prompt: prompt, SystemPrompt: systemPrompt, Schema: s}
	ctx, span := p.tracer.Start(ctx, "structured.Generate",
		trace.WithAttributes(
			attribute.String("provider", p.client.Name()),
			attribute.Int("max_attempts", p.maxAttempts),
		))
	defer span.End()

	log := p.log.With(zap.String("provider", p.client.Name()))
	var (
		state   = Attempting
		attempt = 1
		result  map[string]any
		last    error
	)
	for {
		p.transition(state, attempt)
		switch state {
		case Attempting:
			obj, err := p.attempt(ctx, attempt, req)
			if err == nil {
				result = obj
				state = Succeeded
				continue
			}
			last = err
			log.Warn("structured generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.maxAttempts),
				zap.Error(err))
			if attempt >= p.maxAttempts || llmclient.IsPermanent(err) {
				state = Failed
				continue
			}
			state = Backoff

		case Backoff:
			if err := p.sleep(ctx, time.Duration(attempt)*p.backoff); err != nil {
				last = err
				state = Failed
				continue
			}
			attempt++
			state = Attempting

		case Succeeded:
			span.SetAttributes(attribute.Int("attempts", attempt))
			metrics.PipelineResults.WithLabelValues("succeeded").Inc()
			return result, nil

		case Failed:
			failure := &GenerationFailedError{Attempts: attempt, Last: last}
			span.SetAttributes(attribute.Int("attempts", attempt))
			span.RecordError(failure)
			span.SetStatus(codes.Error, failure.Error())
			metrics.PipelineResults.WithLabelValues("failed").Inc()
			log.Error("structured generation failed", zap.Int("attempts", attempt), zap.Error(last))
			return nil, failure
		}
	}
}

// GenerateContent is free-text mode. It makes a single call.
func (p *Pipeline) GenerateContent(ctx context.Context, prompt, systemPrompt string) (*llmclient.Response, error) {
	resp, err := p.client.Generate(ctx, llmclient.Request{Prompt: prompt, SystemPrompt: systemPrompt})
	if err != nil {
		return nil, fmt.Errorf("AI generation failed: %w", err)
	}
	return resp, nil
}

func (p *Pipeline) attempt(ctx context.Context, n int, req llmclient.Request) (map[string]any, error) {
	ctx, span := p.tracer.Start(ctx, "structured.Attempt", trace.WithAttributes(attribute.Int("attempt", n)))
	defer span.End()

	obj, outcome, err := p.try(ctx, req)
	metrics.PipelineAttempts.WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return obj, err
}

func (p *Pipeline) try(ctx context.Context, req llmclient.Request) (map[string]any, string, error) {
	resp, err := p.client.GenerateStructured(ctx, req)
	if err != nil {
		return nil, "provider_error", err
	}
	parsed, err := jsonutil.Decode(resp.Content)
	if err != nil {
		return nil, "parse_error", &ParseError{Err: err}
	}
	obj, rep, err := normalize.NormalizeWithReport(parsed)
	if err != nil {
		return nil, "shape_error", err
	}
	p.record(rep)
	p.check(req.Schema, obj)
	return obj, "ok", nil
}

func (p *Pipeline) record(rep normalize.Report) {
	if !rep.Changed() {
		return
	}
	metrics.NormalizerRepairs.WithLabelValues("truncated").Add(float64(rep.Truncated))
	metrics.NormalizerRepairs.WithLabelValues("score_coerced").Add(float64(rep.ScoresCoerced))
	metrics.NormalizerRepairs.WithLabelValues("score_clamped").Add(float64(rep.ScoresClamped))
	p.log.Debug("normalized response",
		zap.Int("truncated", rep.Truncated),
		zap.Int("scores_coerced", rep.ScoresCoerced),
		zap.Int("scores_clamped", rep.ScoresClamped))
}

// check is advisory: deviations are logged and counted, never returned.
func (p *Pipeline) check(s *schema.Schema, obj map[string]any) {
	issues, err := s.Check(obj)
	if err != nil {
		p.log.Debug("schema check skipped", zap.Error(err))
		return
	}
	if len(issues) == 0 {
		return
	}
	metrics.SchemaDeviations.Inc()
	p.log.Info("response deviates from schema", zap.Int("issues", len(issues)), zap.Strings("details", issues))
}

func (p *Pipeline) transition(s State, attempt int) {
	if p.observe != nil {
		p.observe(s, attempt)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsShapeError reports whether err came from a parseable but non-object response.
func IsShapeError(err error) bool {
	return errors.Is(err, normalize.ErrInvalidResponseShape)
}
