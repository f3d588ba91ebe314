package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"clonescout/internal/analysis"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS ai_providers (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	provider   TEXT NOT NULL,
	api_key    TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	is_active  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS ai_providers_user_idx ON ai_providers (user_id);

CREATE TABLE IF NOT EXISTS business_analyses (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	url            TEXT NOT NULL,
	business_model TEXT NOT NULL DEFAULT '',
	revenue_stream TEXT NOT NULL DEFAULT '',
	target_market  TEXT NOT NULL DEFAULT '',
	overall_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	score_details  JSONB NOT NULL DEFAULT '{}',
	ai_insights    JSONB NOT NULL DEFAULT '{}',
	current_stage  INTEGER NOT NULL DEFAULT 1,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS business_analyses_user_idx ON business_analyses (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS workflow_stages (
	id           TEXT PRIMARY KEY,
	analysis_id  TEXT NOT NULL REFERENCES business_analyses(id) ON DELETE CASCADE,
	stage_number INTEGER NOT NULL,
	stage_name   TEXT NOT NULL,
	status       TEXT NOT NULL,
	data         JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (analysis_id, stage_number)
);
`

const analysisColumns = `id, user_id, url, business_model, revenue_stream, target_market, overall_score,
	score_details, ai_insights, current_stage, created_at, updated_at`

var sortColumns = map[string]string{
	SortCreatedAt:    "created_at",
	SortOverallScore: "overall_score",
	SortURL:          "url",
}

type analysisRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	URL           string    `db:"url"`
	BusinessModel string    `db:"business_model"`
	RevenueStream string    `db:"revenue_stream"`
	TargetMarket  string    `db:"target_market"`
	OverallScore  float64   `db:"overall_score"`
	ScoreDetails  []byte    `db:"score_details"`
	AIInsights    []byte    `db:"ai_insights"`
	CurrentStage  int       `db:"current_stage"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r analysisRow) model() (Analysis, error) {
	a := Analysis{
		ID:            r.ID,
		UserID:        r.UserID,
		URL:           r.URL,
		BusinessModel: r.BusinessModel,
		RevenueStream: r.RevenueStream,
		TargetMarket:  r.TargetMarket,
		OverallScore:  r.OverallScore,
		CurrentStage:  r.CurrentStage,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(r.ScoreDetails) > 0 {
		if err := json.Unmarshal(r.ScoreDetails, &a.ScoreDetails); err != nil {
			return Analysis{}, fmt.Errorf("decode score_details: %w", err)
		}
	}
	if len(r.AIInsights) > 0 {
		if err := json.Unmarshal(r.AIInsights, &a.AIInsights); err != nil {
			return Analysis{}, fmt.Errorf("decode ai_insights: %w", err)
		}
	}
	return a, nil
}

// Postgres is the Store backed by postgres through the pgx stdlib driver.
// Single analyses are served from an LRU cache that is refreshed on write.
type Postgres struct {
	db    *sqlx.DB
	cache *lru.Cache[string, Analysis]

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	cache, err := lru.New[string, Analysis](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Postgres{db: db, cache: cache}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, schemaDDL)
	})
	return s.schemaErr
}

func (s *Postgres) Close() error { return s.db.Close() }

func (s *Postgres) ListProviders(ctx context.Context, userID string) ([]Provider, error) {
	out := []Provider{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, user_id, provider, api_key, model, is_active, created_at
		FROM ai_providers WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	return out, err
}

func (s *Postgres) ActiveProvider(ctx context.Context, userID string) (*Provider, error) {
	var p Provider
	err := s.db.GetContext(ctx, &p, `
		SELECT id, user_id, provider, api_key, model, is_active, created_at
		FROM ai_providers WHERE user_id = $1 AND is_active LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) CreateProvider(ctx context.Context, p Provider) (*Provider, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if p.IsActive {
			if _, err := tx.ExecContext(ctx, `UPDATE ai_providers SET is_active = FALSE WHERE user_id = $1`, p.UserID); err != nil {
				return err
			}
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO ai_providers (id, user_id, provider, api_key, model, is_active, created_at)
			VALUES (:id, :user_id, :provider, :api_key, :model, :is_active, :created_at)`, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) UpdateProvider(ctx context.Context, userID, id string, u ProviderUpdate) (*Provider, error) {
	var out Provider
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var cur Provider
		err := tx.GetContext(ctx, &cur, `
			SELECT id, user_id, provider, api_key, model, is_active, created_at
			FROM ai_providers WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if u.IsActive != nil && *u.IsActive {
			if _, err := tx.ExecContext(ctx, `UPDATE ai_providers SET is_active = FALSE WHERE user_id = $1`, userID); err != nil {
				return err
			}
		}
		if u.APIKey != nil {
			cur.APIKey = *u.APIKey
		}
		if u.Model != nil {
			cur.Model = *u.Model
		}
		if u.IsActive != nil {
			cur.IsActive = *u.IsActive
		}
		_, err = tx.NamedExecContext(ctx, `
			UPDATE ai_providers SET api_key = :api_key, model = :model, is_active = :is_active
			WHERE id = :id`, cur)
		out = cur
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Postgres) DeleteProvider(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_providers WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CreateAnalysis(ctx context.Context, a Analysis) (*Analysis, error) {
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	if a.CurrentStage == 0 {
		a.CurrentStage = 1
	}
	details, err := json.Marshal(a.ScoreDetails)
	if err != nil {
		return nil, err
	}
	insights, err := json.Marshal(a.AIInsights)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO business_analyses (`+analysisColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.UserID, a.URL, a.BusinessModel, a.RevenueStream, a.TargetMarket, a.OverallScore,
		details, insights, a.CurrentStage, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.cache.Add(a.ID, a)
	return &a, nil
}

func (s *Postgres) GetAnalysis(ctx context.Context, userID, id string) (*Analysis, error) {
	if a, ok := s.cache.Get(id); ok {
		if a.UserID != userID {
			return nil, ErrNotFound
		}
		return &a, nil
	}
	var row analysisRow
	err := s.db.GetContext(ctx, &row, `SELECT `+analysisColumns+` FROM business_analyses WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a, err := row.model()
	if err != nil {
		return nil, err
	}
	s.cache.Add(a.ID, a)
	if a.UserID != userID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *Postgres) UpdateAnalysis(ctx context.Context, userID, id string, u AnalysisUpdate) (*Analysis, error) {
	cur, err := s.GetAnalysis(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	u.apply(cur)
	cur.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE business_analyses
		SET business_model = $3, revenue_stream = $4, target_market = $5, current_stage = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2`,
		id, userID, cur.BusinessModel, cur.RevenueStream, cur.TargetMarket, cur.CurrentStage, cur.UpdatedAt)
	if err != nil {
		s.cache.Remove(id)
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.cache.Remove(id)
		return nil, ErrNotFound
	}
	s.cache.Add(id, *cur)
	return cur, nil
}

func (s *Postgres) ListAnalyses(ctx context.Context, userID string, q ListQuery) ([]Analysis, int, error) {
	q = q.Normalized()
	where := `WHERE user_id = $1`
	args := []any{userID}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		where += ` AND (url ILIKE $2 OR business_model ILIKE $2 OR target_market ILIKE $2)`
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM business_analyses `+where, args...); err != nil {
		return nil, 0, err
	}

	order := sortColumns[q.SortBy] + " " + strings.ToUpper(q.SortOrder) + ", id"
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM business_analyses %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		analysisColumns, where, order, n+1, n+2)
	var rows []analysisRow
	if err := s.db.SelectContext(ctx, &rows, query, append(args, q.Limit, q.Offset())...); err != nil {
		return nil, 0, err
	}
	out := make([]Analysis, 0, len(rows))
	for _, r := range rows {
		a, err := r.model()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Postgres) Stats(ctx context.Context, userID string) (Stats, error) {
	var row struct {
		Total      int     `db:"total"`
		Strong     int     `db:"strong"`
		InProgress int     `db:"in_progress"`
		Avg        float64 `db:"avg"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE overall_score >= $2) AS strong,
			COUNT(*) FILTER (WHERE current_stage > 1 AND current_stage < 6) AS in_progress,
			COALESCE(AVG(overall_score), 0) AS avg
		FROM business_analyses WHERE user_id = $1`, userID, StrongCandidateScore)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalAnalyses:    row.Total,
		StrongCandidates: row.Strong,
		InProgress:       row.InProgress,
		AvgScore:         analysis.Round1(row.Avg),
	}, nil
}

func (s *Postgres) ListStages(ctx context.Context, analysisID string) ([]Stage, error) {
	out := []Stage{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, analysis_id, stage_number, stage_name, status, data, created_at, updated_at
		FROM workflow_stages WHERE analysis_id = $1 ORDER BY stage_number`, analysisID)
	return out, err
}

func (s *Postgres) UpsertStage(ctx context.Context, st Stage) (*Stage, error) {
	now := time.Now().UTC()
	st.ID = uuid.NewString()
	st.CreatedAt = now
	st.UpdatedAt = now
	var out Stage
	err := s.db.GetContext(ctx, &out, `
		INSERT INTO workflow_stages (id, analysis_id, stage_number, stage_name, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (analysis_id, stage_number) DO UPDATE
		SET stage_name = EXCLUDED.stage_name, status = EXCLUDED.status, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		RETURNING id, analysis_id, stage_number, stage_name, status, data, created_at, updated_at`,
		st.ID, st.AnalysisID, st.StageNumber, st.StageName, st.Status, st.Data, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Postgres) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
