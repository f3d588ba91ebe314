package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clonescout/internal/analysis"
)

type memAnalysis struct {
	seq int
	a   Analysis
}

// Memory is a process-local Store.
type Memory struct {
	mu        sync.RWMutex
	seq       int
	providers []Provider
	analyses  map[string]*memAnalysis
	stages    map[string][]Stage
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		analyses: make(map[string]*memAnalysis),
		stages:   make(map[string][]Stage),
		now:      time.Now,
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) ListProviders(_ context.Context, userID string) ([]Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Provider, 0)
	for i := len(m.providers) - 1; i >= 0; i-- {
		if m.providers[i].UserID == userID {
			out = append(out, m.providers[i])
		}
	}
	return out, nil
}

func (m *Memory) ActiveProvider(_ context.Context, userID string) (*Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.providers {
		if p.UserID == userID && p.IsActive {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateProvider(_ context.Context, p Provider) (*Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.IsActive {
		m.deactivateLocked(p.UserID)
	}
	p.ID = uuid.NewString()
	p.CreatedAt = m.now()
	m.providers = append(m.providers, p)
	return &p, nil
}

func (m *Memory) UpdateProvider(_ context.Context, userID, id string, u ProviderUpdate) (*Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, p := range m.providers {
		if p.ID == id && p.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}
	if u.IsActive != nil && *u.IsActive {
		m.deactivateLocked(userID)
	}
	p := &m.providers[idx]
	if u.APIKey != nil {
		p.APIKey = *u.APIKey
	}
	if u.Model != nil {
		p.Model = *u.Model
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) deactivateLocked(userID string) {
	for i := range m.providers {
		if m.providers[i].UserID == userID {
			m.providers[i].IsActive = false
		}
	}
}

func (m *Memory) DeleteProvider(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.providers {
		if p.ID == id && p.UserID == userID {
			m.providers = append(m.providers[:i], m.providers[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) CreateAnalysis(_ context.Context, a Analysis) (*Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = uuid.NewString()
	a.CreatedAt = m.now()
	a.UpdatedAt = a.CreatedAt
	if a.CurrentStage == 0 {
		a.CurrentStage = 1
	}
	m.analyses[a.ID] = &memAnalysis{seq: m.seq, a: a}
	return &a, nil
}

func (m *Memory) GetAnalysis(_ context.Context, userID, id string) (*Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.analyses[id]
	if !ok || rec.a.UserID != userID {
		return nil, ErrNotFound
	}
	cp := rec.a
	return &cp, nil
}

func (m *Memory) UpdateAnalysis(_ context.Context, userID, id string, u AnalysisUpdate) (*Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.analyses[id]
	if !ok || rec.a.UserID != userID {
		return nil, ErrNotFound
	}
	u.apply(&rec.a)
	rec.a.UpdatedAt = m.now()
	cp := rec.a
	return &cp, nil
}

func (m *Memory) ListAnalyses(_ context.Context, userID string, q ListQuery) ([]Analysis, int, error) {
	q = q.Normalized()
	needle := strings.ToLower(q.Search)

	type entry struct {
		a   Analysis
		seq int
	}
	m.mu.RLock()
	recs := make([]entry, 0, len(m.analyses))
	for _, rec := range m.analyses {
		if rec.a.UserID != userID {
			continue
		}
		if needle != "" && !matches(rec.a, needle) {
			continue
		}
		recs = append(recs, entry{a: rec.a, seq: rec.seq})
	}
	m.mu.RUnlock()

	less := func(a, b entry) bool {
		switch q.SortBy {
		case SortOverallScore:
			if a.a.OverallScore != b.a.OverallScore {
				return a.a.OverallScore < b.a.OverallScore
			}
		case SortURL:
			if a.a.URL != b.a.URL {
				return a.a.URL < b.a.URL
			}
		}
		return a.seq < b.seq
	}
	sort.Slice(recs, func(i, j int) bool {
		if q.SortOrder == "asc" {
			return less(recs[i], recs[j])
		}
		return less(recs[j], recs[i])
	})

	total := len(recs)
	out := make([]Analysis, 0, q.Limit)
	for i := q.Offset(); i < total && len(out) < q.Limit; i++ {
		out = append(out, recs[i].a)
	}
	return out, total, nil
}

func matches(a Analysis, needle string) bool {
	return strings.Contains(strings.ToLower(a.URL), needle) ||
		strings.Contains(strings.ToLower(a.BusinessModel), needle) ||
		strings.Contains(strings.ToLower(a.TargetMarket), needle)
}

func (m *Memory) Stats(_ context.Context, userID string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var st Stats
	var sum float64
	for _, rec := range m.analyses {
		a := rec.a
		if a.UserID != userID {
			continue
		}
		st.TotalAnalyses++
		sum += a.OverallScore
		if a.OverallScore >= StrongCandidateScore {
			st.StrongCandidates++
		}
		if a.CurrentStage > 1 && a.CurrentStage < 6 {
			st.InProgress++
		}
	}
	if st.TotalAnalyses > 0 {
		st.AvgScore = analysis.Round1(sum / float64(st.TotalAnalyses))
	}
	return st, nil
}

func (m *Memory) ListStages(_ context.Context, analysisID string) ([]Stage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]Stage{}, m.stages[analysisID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].StageNumber < out[j].StageNumber })
	return out, nil
}

func (m *Memory) UpsertStage(_ context.Context, s Stage) (*Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	list := m.stages[s.AnalysisID]
	for i := range list {
		if list[i].StageNumber == s.StageNumber {
			list[i].StageName = s.StageName
			list[i].Status = s.Status
			list[i].Data = s.Data
			list[i].UpdatedAt = now
			cp := list[i]
			return &cp, nil
		}
	}
	s.ID = uuid.NewString()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.stages[s.AnalysisID] = append(list, s)
	return &s, nil
}
