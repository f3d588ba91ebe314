package structured

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"clonescout/internal/llmclient"
	"clonescout/internal/normalize"
	"clonescout/internal/schema"
	"clonescout/internal/tester"
)

var testSchema = schema.Obj(
	schema.F("businessModel", schema.Str()),
	schema.F("scoreDetails", schema.Obj(
		schema.F("timeToMarket", schema.Obj(
			schema.F("score", schema.Num().Range(1, 10)),
			schema.F("reasoning", schema.Str()),
		)),
	)),
)

// recorder captures backoff delays without sleeping.
type recorder struct{ waits []time.Duration }

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func newTestPipeline(c llmclient.Client, rec *recorder, opts ...Option) *Pipeline {
	return New(c, append([]Option{WithSleep(rec.sleep)}, opts...)...)
}

func TestPipeline_UnavailableProviderMakesExactlyThreeAttempts(t *testing.T) {
	cause := &llmclient.ProviderError{Kind: llmclient.KindProviderUnavailable, Err: errors.New("upstream connect error")}
	fake := llmclient.Failing(cause)
	rec := &recorder{}

	_, err := newTestPipeline(fake, rec).GenerateStructured(context.Background(), "p", testSchema, "sys")

	tester.Eq(t, fake.Calls(), 3)
	tester.ErrIs(t, err, ErrGenerationFailed)
	tester.ErrIs(t, err, llmclient.ErrProviderUnavailable)
	var gf *GenerationFailedError
	tester.True(t, errors.As(err, &gf))
	tester.Eq(t, gf.Attempts, 3)
	tester.Contains(t, err.Error(), "upstream connect error")
	tester.Eq(t, rec.waits, []time.Duration{time.Second, 2 * time.Second})
}

func TestPipeline_SucceedsOnSecondAttempt(t *testing.T) {
	fake := llmclient.NewFakeClient(
		llmclient.Step{Err: errors.New("temporarily unavailable")},
		llmclient.Step{Content: `{"businessModel":"SaaS","scoreDetails":{"timeToMarket":{"score":"12","reasoning":"fast"}}}`},
	)
	rec := &recorder{}

	obj, err := newTestPipeline(fake, rec).GenerateStructured(context.Background(), "p", testSchema, "")
	tester.NoErr(t, err)
	tester.Eq(t, fake.Calls(), 2)
	tester.Eq(t, rec.waits, []time.Duration{time.Second})

	ttm := obj["scoreDetails"].(map[string]any)["timeToMarket"].(map[string]any)
	tester.Eq(t, ttm["score"].(float64), 10.0)
}

func TestPipeline_ParseFailureIsRetried(t *testing.T) {
	fake := llmclient.NewFakeClient(
		llmclient.Step{Content: "Sure! Here is your analysis."},
		llmclient.Step{Content: "```json\n{\"businessModel\":\"Marketplace\"}\n```"},
	)
	obj, err := newTestPipeline(fake, &recorder{}).GenerateStructured(context.Background(), "p", testSchema, "")
	tester.NoErr(t, err)
	tester.Eq(t, obj["businessModel"].(string), "Marketplace")
	tester.Eq(t, fake.Calls(), 2)
}

func TestPipeline_NonObjectIsRetriedThenFails(t *testing.T) {
	fake := llmclient.Reply(`[{"businessModel":"SaaS"}]`)
	_, err := newTestPipeline(fake, &recorder{}).GenerateStructured(context.Background(), "p", testSchema, "")
	tester.Eq(t, fake.Calls(), 3)
	tester.ErrIs(t, err, normalize.ErrInvalidResponseShape)
	tester.True(t, IsShapeError(err))
}

func TestPipeline_AlwaysUnparseableFailsWithParseError(t *testing.T) {
	fake := llmclient.Reply("not json at all")
	_, err := newTestPipeline(fake, &recorder{}).GenerateStructured(context.Background(), "p", testSchema, "")
	var pe *ParseError
	tester.True(t, errors.As(err, &pe), err)
	tester.True(t, strings.HasPrefix(err.Error(), "structured AI generation failed after 3 attempts: failed to parse AI response as JSON"), err.Error())
}

func TestPipeline_PermanentErrorStopsEarly(t *testing.T) {
	fake := llmclient.Failing(llmclient.NewPermanentError(errors.New("gemini: API key is required")))
	rec := &recorder{}
	_, err := newTestPipeline(fake, rec).GenerateStructured(context.Background(), "p", testSchema, "")
	tester.Eq(t, fake.Calls(), 1)
	tester.Eq(t, len(rec.waits), 0)
	tester.ErrIs(t, err, ErrGenerationFailed)
}

func TestPipeline_CanceledDuringBackoff(t *testing.T) {
	fake := llmclient.Failing(errors.New("boom"))
	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	_, err := New(fake, WithSleep(sleep)).GenerateStructured(ctx, "p", testSchema, "")
	tester.Eq(t, fake.Calls(), 1)
	tester.ErrIs(t, err, context.Canceled)
	tester.ErrIs(t, err, ErrGenerationFailed)
}

func TestPipeline_RealSleepHonorsContext(t *testing.T) {
	fake := llmclient.Failing(errors.New("boom"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := New(fake, WithBackoff(time.Hour)).GenerateStructured(ctx, "p", testSchema, "")
	tester.ErrIs(t, err, context.DeadlineExceeded)
	tester.True(t, time.Since(start) < 5*time.Second, "backoff must not block past cancellation")
}

func TestPipeline_StateTransitions(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.Step{Err: errors.New("x")}, llmclient.Step{Content: "{}"})
	var seen []string
	obs := func(s State, n int) { seen = append(seen, s.String()) }
	_, err := newTestPipeline(fake, &recorder{}, WithObserver(obs)).GenerateStructured(context.Background(), "p", testSchema, "")
	tester.NoErr(t, err)
	tester.Eq(t, seen, []string{"attempting", "backoff", "attempting", "succeeded"})
}

func TestPipeline_LogsEachFailedAttempt(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fake := llmclient.Failing(errors.New("boom"))
	_, _ = newTestPipeline(fake, &recorder{}, WithLogger(zap.New(core)), WithMaxAttempts(2)).
		GenerateStructured(context.Background(), "p", testSchema, "")

	tester.Eq(t, logs.FilterMessage("structured generation attempt failed").Len(), 2)
	tester.Eq(t, logs.FilterMessage("structured generation failed").Len(), 1)
}

func TestPipeline_SchemaDeviationIsAdvisory(t *testing.T) {
	fake := llmclient.Reply(`{"businessModel": 42}`)
	obj, err := newTestPipeline(fake, &recorder{}).GenerateStructured(context.Background(), "p", testSchema, "")
	tester.NoErr(t, err)
	tester.Eq(t, obj["businessModel"].(float64), 42.0)
}

func TestPipeline_SendsSchemaAndSystemPrompt(t *testing.T) {
	fake := llmclient.Reply("{}")
	_, err := newTestPipeline(fake, &recorder{}).GenerateStructured(context.Background(), "prompt", testSchema, "system")
	tester.NoErr(t, err)
	req := fake.Requests()[0]
	tester.Eq(t, req.Prompt, "prompt")
	tester.Eq(t, req.SystemPrompt, "system")
	tester.True(t, req.Schema == testSchema)
}

func TestGenerateContent(t *testing.T) {
	resp, err := New(llmclient.Reply("hello")).GenerateContent(context.Background(), "hi", "")
	tester.NoErr(t, err)
	tester.Eq(t, resp.Content, "hello")

	_, err = New(llmclient.Failing(errors.New("boom"))).GenerateContent(context.Background(), "hi", "")
	tester.Eq(t, err.Error(), "AI generation failed: boom")
}
