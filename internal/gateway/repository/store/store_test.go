package store

import (
	"context"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clonescout/internal/analysis"
)

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	out := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
	}
	if dsn := os.Getenv("CLONESCOUT_TEST_DATABASE_URL"); dsn != "" {
		out["postgres"] = func(t *testing.T) Store {
			s, err := NewPostgres(context.Background(), dsn)
			require.NoError(t, err)
			_, err = s.db.Exec(`TRUNCATE workflow_stages, business_analyses, ai_providers`)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestStore_ProviderActivation(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			first, err := s.CreateProvider(ctx, Provider{UserID: "u1", Provider: "openai", APIKey: "k1", IsActive: true})
			require.NoError(t, err)
			second, err := s.CreateProvider(ctx, Provider{UserID: "u1", Provider: "gemini", APIKey: "k2", IsActive: true})
			require.NoError(t, err)
			_, err = s.CreateProvider(ctx, Provider{UserID: "u2", Provider: "grok", APIKey: "k3", IsActive: true})
			require.NoError(t, err)

			active, err := s.ActiveProvider(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, second.ID, active.ID)

			_, err = s.UpdateProvider(ctx, "u1", first.ID, ProviderUpdate{IsActive: boolPtr(true)})
			require.NoError(t, err)
			active, err = s.ActiveProvider(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, first.ID, active.ID)

			list, err := s.ListProviders(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			activeCount := 0
			for _, p := range list {
				if p.IsActive {
					activeCount++
				}
			}
			require.Equal(t, 1, activeCount)

			// other users are untouched
			other, err := s.ActiveProvider(ctx, "u2")
			require.NoError(t, err)
			require.Equal(t, "grok", other.Provider)

			require.NoError(t, s.DeleteProvider(ctx, "u1", first.ID))
			_, err = s.ActiveProvider(ctx, "u1")
			require.ErrorIs(t, err, ErrNotFound)
			require.ErrorIs(t, s.DeleteProvider(ctx, "u1", first.ID), ErrNotFound)
			_, err = s.UpdateProvider(ctx, "u2", second.ID, ProviderUpdate{IsActive: boolPtr(true)})
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func newAnalysis(user, url, model string, score float64, stage int) Analysis {
	return Analysis{
		UserID:        user,
		URL:           url,
		BusinessModel: model,
		TargetMarket:  "SMBs",
		OverallScore:  score,
		CurrentStage:  stage,
		ScoreDetails: analysis.ScoreDetails{
			TimeToMarket: analysis.DimensionScore{Score: 6, Reasoning: "fast"},
		},
	}
}

func TestStore_AnalysesListAndStats(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			seed := []Analysis{
				newAnalysis("u1", "https://alpha.io", "SaaS", 7.5, 1),
				newAnalysis("u1", "https://beta.io", "Marketplace", 5.0, 3),
				newAnalysis("u1", "https://gamma.io", "SaaS tooling", 8.2, 6),
				newAnalysis("u2", "https://delta.io", "SaaS", 9.0, 2),
			}
			var ids []string
			for _, a := range seed {
				saved, err := s.CreateAnalysis(ctx, a)
				require.NoError(t, err)
				ids = append(ids, saved.ID)
				time.Sleep(2 * time.Millisecond)
			}

			got, total, err := s.ListAnalyses(ctx, "u1", ListQuery{})
			require.NoError(t, err)
			require.Equal(t, 3, total)
			require.Equal(t, "https://gamma.io", got[0].URL, "newest first")

			got, total, err = s.ListAnalyses(ctx, "u1", ListQuery{Search: "saas", SortBy: SortOverallScore, SortOrder: "asc"})
			require.NoError(t, err)
			require.Equal(t, 2, total)
			require.Equal(t, []string{"https://alpha.io", "https://gamma.io"}, []string{got[0].URL, got[1].URL})

			got, total, err = s.ListAnalyses(ctx, "u1", ListQuery{Page: 2, Limit: 2, SortBy: SortURL, SortOrder: "asc"})
			require.NoError(t, err)
			require.Equal(t, 3, total)
			require.Len(t, got, 1)
			require.Equal(t, "https://gamma.io", got[0].URL)

			st, err := s.Stats(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, Stats{TotalAnalyses: 3, StrongCandidates: 2, InProgress: 1, AvgScore: 6.9}, st)

			a, err := s.GetAnalysis(ctx, "u1", ids[0])
			require.NoError(t, err)
			require.Equal(t, 6.0, a.ScoreDetails.TimeToMarket.Score)
			require.Equal(t, 1, a.CurrentStage)

			_, err = s.GetAnalysis(ctx, "u2", ids[0])
			require.ErrorIs(t, err, ErrNotFound)

			market := "Enterprises"
			a, err = s.UpdateAnalysis(ctx, "u1", ids[0], AnalysisUpdate{TargetMarket: &market, CurrentStage: intPtr(4)})
			require.NoError(t, err)
			require.Equal(t, "Enterprises", a.TargetMarket)
			require.Equal(t, "SaaS", a.BusinessModel)

			again, err := s.GetAnalysis(ctx, "u1", ids[0])
			require.NoError(t, err)
			require.Equal(t, 4, again.CurrentStage)

			st, err = s.Stats(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, 2, st.InProgress)
		})
	}
}

func TestStore_StagesUpsert(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			a, err := s.CreateAnalysis(ctx, newAnalysis("u1", "https://x.io", "SaaS", 6, 1))
			require.NoError(t, err)

			_, err = s.UpsertStage(ctx, Stage{AnalysisID: a.ID, StageNumber: 3, StageName: "MVP Launch Planning", Status: StatusCompleted, Data: JSONMap{"v": 1.0}})
			require.NoError(t, err)
			_, err = s.UpsertStage(ctx, Stage{AnalysisID: a.ID, StageNumber: 2, StageName: "Lazy-Entrepreneur Filter", Status: StatusCompleted, Data: JSONMap{"v": 1.0}})
			require.NoError(t, err)
			_, err = s.UpsertStage(ctx, Stage{AnalysisID: a.ID, StageNumber: 3, StageName: "MVP Launch Planning", Status: StatusCompleted, Data: JSONMap{"v": 2.0}})
			require.NoError(t, err)

			stages, err := s.ListStages(ctx, a.ID)
			require.NoError(t, err)
			require.Len(t, stages, 2)
			require.Equal(t, 2, stages[0].StageNumber)
			require.Equal(t, 3, stages[1].StageNumber)
			require.Equal(t, 2.0, stages[1].Data["v"])
		})
	}
}

func TestListQuery_Normalized(t *testing.T) {
	q := ListQuery{Page: -1, Limit: 1000, SortBy: "drop table", SortOrder: "ASC", Search: "  x "}.Normalized()
	require.Equal(t, ListQuery{Page: 1, Limit: MaxLimit, SortBy: SortCreatedAt, SortOrder: "asc", Search: "x"}, q)
	require.Equal(t, 0, q.Offset())

	q = ListQuery{}.Normalized()
	require.Equal(t, DefaultLimit, q.Limit)
	require.Equal(t, "desc", q.SortOrder)
}

func TestListQuery_HugePage(t *testing.T) {
	q := ListQuery{Page: math.MaxInt64/10 + 2, Limit: 10}.Normalized()
	require.Equal(t, MaxPage, q.Page)
	require.Positive(t, q.Offset())

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			_, err := s.CreateAnalysis(ctx, Analysis{UserID: "u1", URL: "https://a.example", CurrentStage: 1})
			require.NoError(t, err)

			list, total, err := s.ListAnalyses(ctx, "u1", ListQuery{Page: math.MaxInt, Limit: 10})
			require.NoError(t, err)
			require.Empty(t, list)
			require.Equal(t, 1, total)
		})
	}
}

func TestMemory_ConcurrentUpdateAndList(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a, err := m.CreateAnalysis(ctx, Analysis{UserID: "u1", URL: "https://a.example", CurrentStage: 1})
	require.NoError(t, err)
	_, err = m.CreateAnalysis(ctx, Analysis{UserID: "u1", URL: "https://b.example", CurrentStage: 1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			stage := i%6 + 1
			if _, err := m.UpdateAnalysis(ctx, "u1", a.ID, AnalysisUpdate{CurrentStage: &stage}); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if _, _, err := m.ListAnalyses(ctx, "u1", ListQuery{SortBy: SortURL}); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()

	list, total, err := m.ListAnalyses(ctx, "u1", ListQuery{SortBy: SortURL, SortOrder: "asc"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "https://a.example", list[0].URL)
}

func TestJSONMap_Scan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"a":1}`)))
	require.Equal(t, 1.0, m["a"])
	require.NoError(t, m.Scan(nil))
	require.Empty(t, m)
	require.Error(t, m.Scan(42))

	v, err := JSONMap(nil).Value()
	require.NoError(t, err)
	require.Equal(t, []byte("{}"), v)
}
