// Package store persists AI providers, analyses and workflow stages. All
// reads and writes are scoped to a user ID except the stage lookups, which
// are scoped through their analysis.
package store

import (
	"context"
	"errors"
	"math"
	"strings"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	ListProviders(ctx context.Context, userID string) ([]Provider, error)
	ActiveProvider(ctx context.Context, userID string) (*Provider, error)
	// CreateProvider deactivates the user's other providers when p is active.
	CreateProvider(ctx context.Context, p Provider) (*Provider, error)
	UpdateProvider(ctx context.Context, userID, id string, u ProviderUpdate) (*Provider, error)
	DeleteProvider(ctx context.Context, userID, id string) error

	CreateAnalysis(ctx context.Context, a Analysis) (*Analysis, error)
	GetAnalysis(ctx context.Context, userID, id string) (*Analysis, error)
	UpdateAnalysis(ctx context.Context, userID, id string, u AnalysisUpdate) (*Analysis, error)
	ListAnalyses(ctx context.Context, userID string, q ListQuery) ([]Analysis, int, error)
	Stats(ctx context.Context, userID string) (Stats, error)

	ListStages(ctx context.Context, analysisID string) ([]Stage, error)
	// UpsertStage replaces the stage with the same analysis and number.
	UpsertStage(ctx context.Context, s Stage) (*Stage, error)

	Close() error
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = math.MaxInt32

	SortCreatedAt    = "createdAt"
	SortOverallScore = "overallScore"
	SortURL          = "url"
)

type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// Normalized fills defaults and drops unknown sort keys.
func (q ListQuery) Normalized() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	// Past MaxPage the offset overflows; such pages are empty anyway.
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	q.Search = strings.TrimSpace(q.Search)
	switch q.SortBy {
	case SortCreatedAt, SortOverallScore, SortURL:
	default:
		q.SortBy = SortCreatedAt
	}
	if !strings.EqualFold(q.SortOrder, "asc") {
		q.SortOrder = "desc"
	} else {
		q.SortOrder = "asc"
	}
	return q
}

func (q ListQuery) Offset() int { return (q.Page - 1) * q.Limit }
