package stages

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clonescout/internal/analysis"
	"clonescout/internal/gateway/repository/archive"
	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/gateway/service/providers"
	"clonescout/internal/llmclient"
	"clonescout/internal/structured"
	"clonescout/internal/workflow"
)

func setup(t *testing.T, fake *llmclient.FakeClient) (*Service, *store.Memory, *archive.MemoryStore, string) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	ar := archive.NewMemoryStore()
	noSleep := func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	ps := providers.New(st, nil,
		providers.WithClientFactory(func(context.Context, llmclient.Credential) (llmclient.Client, error) { return fake, nil }),
		providers.WithPipelineOptions(structured.WithSleep(noSleep)),
	)
	_, err := ps.Create(ctx, "u1", providers.CreateInput{Provider: "grok", APIKey: "k", IsActive: true})
	require.NoError(t, err)
	a, err := st.CreateAnalysis(ctx, store.FromResult("u1", &analysis.Result{
		URL:           "https://example.com",
		BusinessModel: "Freemium SaaS",
		OverallScore:  6.7,
	}))
	require.NoError(t, err)
	return New(st, ar, ps, nil), st, ar, a.ID
}

func TestGenerate_ChainsPreviousStage(t *testing.T) {
	ctx := context.Background()
	fake := llmclient.NewFakeClient(
		llmclient.Step{Content: `{"recommendation":"MODIFY","modifications":["Drop mobile app"]}`},
		llmclient.Step{Content: `{"coreFeatures":[{"name":"Invoicing","priority":"Must Have"}]}`},
	)
	svc, st, ar, id := setup(t, fake)

	s2, err := svc.Generate(ctx, "u1", id, workflow.StageFilter)
	require.NoError(t, err)
	require.Equal(t, "Lazy-Entrepreneur Filter", s2.StageName)
	require.Equal(t, store.StatusCompleted, s2.Status)
	require.Equal(t, "MODIFY", s2.Data["recommendation"])
	require.Contains(t, s2.Data, "milestones")

	s3, err := svc.Generate(ctx, "u1", id, workflow.StageMVP)
	require.NoError(t, err)
	require.Equal(t, 3, s3.StageNumber)
	require.True(t, strings.Contains(fake.Requests()[1].Prompt, "Previous Filter Result: MODIFY"))

	a, err := st.GetAnalysis(ctx, "u1", id)
	require.NoError(t, err)
	require.Equal(t, 3, a.CurrentStage)

	list, err := svc.List(ctx, "u1", id)
	require.NoError(t, err)
	require.Len(t, list, 2)

	names, err := ar.List(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{"stage-2.json", "stage-3.json"}, names)
}

func TestGenerate_Regenerating(t *testing.T) {
	ctx := context.Background()
	fake := llmclient.NewFakeClient(
		llmclient.Step{Content: `{"recommendation":"PROCEED"}`},
		llmclient.Step{Content: `{"recommendation":"ABANDON"}`},
	)
	svc, _, _, id := setup(t, fake)

	_, err := svc.Generate(ctx, "u1", id, workflow.StageFilter)
	require.NoError(t, err)
	again, err := svc.Generate(ctx, "u1", id, workflow.StageFilter)
	require.NoError(t, err)
	require.Equal(t, "ABANDON", again.Data["recommendation"])

	list, err := svc.List(ctx, "u1", id)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestGenerate_Errors(t *testing.T) {
	ctx := context.Background()
	fake := llmclient.Reply(`{}`)
	svc, _, _, id := setup(t, fake)

	_, err := svc.Generate(ctx, "u1", id, 9)
	require.ErrorIs(t, err, workflow.ErrUnknownStage)

	_, err = svc.Generate(ctx, "u1", "missing", 2)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Generate(ctx, "u2", id, 2)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.List(ctx, "u2", id)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Equal(t, 0, fake.Calls())
}

func TestGenerate_StageOneStoresEmptyContent(t *testing.T) {
	fake := llmclient.Reply(`{}`)
	svc, _, _, id := setup(t, fake)
	s1, err := svc.Generate(context.Background(), "u1", id, workflow.StageDiscovery)
	require.NoError(t, err)
	require.Empty(t, s1.Data)
	require.Equal(t, "Discovery & Selection", s1.StageName)
	require.Equal(t, 0, fake.Calls())
}
