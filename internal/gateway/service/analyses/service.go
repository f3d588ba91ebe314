// Package analyses runs business analyses and searches for a user and keeps
// the results in the store and the snapshot archive.
package analyses

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"clonescout/internal/analysis"
	"clonescout/internal/gateway/repository/archive"
	"clonescout/internal/gateway/repository/searchcache"
	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/gateway/service/providers"
)

var ErrEmptyQuery = errors.New("Search query is required")

type Service struct {
	store     store.Store
	archive   archive.Store
	cache     searchcache.Cache
	providers *providers.Service
	log       *zap.Logger
	flight    singleflight.Group
}

func New(st store.Store, ar archive.Store, cache searchcache.Cache, ps *providers.Service, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, archive: ar, cache: cache, providers: ps, log: log}
}

func (s *Service) Get(ctx context.Context, userID, id string) (*store.Analysis, error) {
	return s.store.GetAnalysis(ctx, userID, id)
}

func (s *Service) Update(ctx context.Context, userID, id string, u store.AnalysisUpdate) (*store.Analysis, error) {
	return s.store.UpdateAnalysis(ctx, userID, id, u)
}

type Page struct {
	Data       []store.Analysis `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func (s *Service) List(ctx context.Context, userID string, q store.ListQuery) (*Page, error) {
	q = q.Normalized()
	rows, total, err := s.store.ListAnalyses(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	return &Page{
		Data: rows,
		Pagination: Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: (total + q.Limit - 1) / q.Limit,
		},
	}, nil
}

func (s *Service) Stats(ctx context.Context, userID string) (store.Stats, error) {
	return s.store.Stats(ctx, userID)
}

// Analyze runs one analysis with the user's active provider and saves it at
// stage 1.
func (s *Service) Analyze(ctx context.Context, userID, url string) (*store.Analysis, error) {
	pipe, _, err := s.providers.Pipeline(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer pipe.Client().Close()

	res, err := analysis.NewAnalyzer(pipe, s.log).AnalyzeURL(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, userID, res)
}

func (s *Service) save(ctx context.Context, userID string, res *analysis.Result) (*store.Analysis, error) {
	saved, err := s.store.CreateAnalysis(ctx, store.FromResult(userID, res))
	if err != nil {
		return nil, err
	}
	s.snapshot(ctx, saved.ID, archive.AnalysisFile, saved)
	return saved, nil
}

// snapshot failures are logged only; the archive is secondary storage.
func (s *Service) snapshot(ctx context.Context, id, name string, v any) {
	if s.archive == nil {
		return
	}
	if err := archive.PutJSON(ctx, s.archive, id, name, v); err != nil {
		s.log.Warn("archive snapshot failed", zap.String("analysis_id", id), zap.String("name", name), zap.Error(err))
	}
}

// BatchEvent reports one finished URL of a batch.
type BatchEvent struct {
	Index    int
	URL      string
	Analysis *store.Analysis
	Err      error
}

type BatchOutcome struct {
	Successful int                     `json:"successful"`
	Failed     int                     `json:"failed"`
	Analyses   []*store.Analysis       `json:"analyses"`
	Failures   []analysis.BatchFailure `json:"failures"`
}

// AnalyzeBatch analyzes and saves up to analysis.MaxBatchSize URLs in order.
// onEvent may be nil.
func (s *Service) AnalyzeBatch(ctx context.Context, userID string, urls []string, onEvent func(BatchEvent)) (*BatchOutcome, error) {
	if len(urls) == 0 || len(urls) > analysis.MaxBatchSize {
		return nil, analysis.ErrBatchSize
	}
	pipe, _, err := s.providers.Pipeline(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer pipe.Client().Close()

	out := &BatchOutcome{Analyses: []*store.Analysis{}, Failures: []analysis.BatchFailure{}}
	_, err = analysis.NewAnalyzer(pipe, s.log).AnalyzeBatch(ctx, urls, func(item analysis.BatchItem) {
		ev := BatchEvent{Index: item.Index, URL: item.URL, Err: item.Err}
		if ev.Err == nil {
			ev.Analysis, ev.Err = s.save(ctx, userID, item.Analysis)
		}
		if ev.Err != nil {
			out.Failed++
			out.Failures = append(out.Failures, analysis.BatchFailure{URL: item.URL, Error: ev.Err.Error()})
		} else {
			out.Successful++
			out.Analyses = append(out.Analyses, ev.Analysis)
		}
		if onEvent != nil {
			onEvent(ev)
		}
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("batch analysis finished", zap.String("user_id", userID), zap.Int("successful", out.Successful), zap.Int("failed", out.Failed))
	return out, nil
}

// Search finds businesses for query. Results are cached per provider kind
// and concurrent identical searches share one provider call.
func (s *Service) Search(ctx context.Context, userID, query string) (*analysis.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	active, err := s.providers.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	key := searchcache.Key(active.Provider, query)
	if s.cache != nil {
		if hit, ok, err := s.cache.Get(ctx, key); err != nil {
			s.log.Warn("search cache read failed", zap.Error(err))
		} else if ok {
			return hit, nil
		}
	}

	v, err, _ := s.flight.Do(userID+"|"+key, func() (any, error) {
		pipe, _, err := s.providers.Pipeline(ctx, userID)
		if err != nil {
			return nil, err
		}
		defer pipe.Client().Close()
		res, err := analysis.NewAnalyzer(pipe, s.log).SearchBusinesses(ctx, query)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, res); err != nil {
				s.log.Warn("search cache write failed", zap.Error(err))
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*analysis.SearchResult), nil
}

// ArchiveLinks maps each snapshot name of the analysis to a download URL.
func (s *Service) ArchiveLinks(ctx context.Context, userID, id string) (map[string]string, error) {
	if _, err := s.store.GetAnalysis(ctx, userID, id); err != nil {
		return nil, err
	}
	out := map[string]string{}
	if s.archive == nil {
		return out, nil
	}
	names, err := s.archive.List(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		u, err := s.archive.GetURL(ctx, id, name)
		if err != nil {
			return nil, err
		}
		out[name] = u
	}
	return out, nil
}
