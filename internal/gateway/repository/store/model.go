package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"clonescout/internal/analysis"
)

// Provider is one stored AI credential. At most one per user is active.
type Provider struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Provider  string    `json:"provider" db:"provider"`
	APIKey    string    `json:"apiKey" db:"api_key"`
	Model     string    `json:"model,omitempty" db:"model"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type ProviderUpdate struct {
	APIKey   *string
	Model    *string
	IsActive *bool
}

type Analysis struct {
	ID            string                `json:"id"`
	UserID        string                `json:"userId"`
	URL           string                `json:"url"`
	BusinessModel string                `json:"businessModel"`
	RevenueStream string                `json:"revenueStream"`
	TargetMarket  string                `json:"targetMarket"`
	OverallScore  float64               `json:"overallScore"`
	ScoreDetails  analysis.ScoreDetails `json:"scoreDetails"`
	AIInsights    analysis.Insights     `json:"aiInsights"`
	CurrentStage  int                   `json:"currentStage"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// FromResult builds an unsaved analysis at stage 1.
func FromResult(userID string, r *analysis.Result) Analysis {
	return Analysis{
		UserID:        userID,
		URL:           r.URL,
		BusinessModel: r.BusinessModel,
		RevenueStream: r.RevenueStream,
		TargetMarket:  r.TargetMarket,
		OverallScore:  r.OverallScore,
		ScoreDetails:  r.ScoreDetails,
		AIInsights:    r.AIInsights,
		CurrentStage:  1,
	}
}

// Result is the inverse of FromResult.
func (a *Analysis) Result() *analysis.Result {
	return &analysis.Result{
		URL:           a.URL,
		BusinessModel: a.BusinessModel,
		RevenueStream: a.RevenueStream,
		TargetMarket:  a.TargetMarket,
		OverallScore:  a.OverallScore,
		ScoreDetails:  a.ScoreDetails,
		AIInsights:    a.AIInsights,
	}
}

// AnalysisUpdate holds the user-editable fields. Nil means unchanged.
type AnalysisUpdate struct {
	BusinessModel *string
	RevenueStream *string
	TargetMarket  *string
	CurrentStage  *int
}

func (u AnalysisUpdate) apply(a *Analysis) {
	if u.BusinessModel != nil {
		a.BusinessModel = *u.BusinessModel
	}
	if u.RevenueStream != nil {
		a.RevenueStream = *u.RevenueStream
	}
	if u.TargetMarket != nil {
		a.TargetMarket = *u.TargetMarket
	}
	if u.CurrentStage != nil {
		a.CurrentStage = *u.CurrentStage
	}
}

const StatusCompleted = "completed"

type Stage struct {
	ID          string    `json:"id" db:"id"`
	AnalysisID  string    `json:"analysisId" db:"analysis_id"`
	StageNumber int       `json:"stageNumber" db:"stage_number"`
	StageName   string    `json:"stageName" db:"stage_name"`
	Status      string    `json:"status" db:"status"`
	Data        JSONMap   `json:"data" db:"data"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type Stats struct {
	TotalAnalyses    int     `json:"totalAnalyses"`
	StrongCandidates int     `json:"strongCandidates"`
	InProgress       int     `json:"inProgress"`
	AvgScore         float64 `json:"avgScore"`
}

const StrongCandidateScore = 7.0

// JSONMap maps a JSONB column onto a decoded object.
type JSONMap map[string]any

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonmap: unsupported type %T", value)
	}
	if len(raw) == 0 {
		*j = JSONMap{}
		return nil
	}
	out := JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*j = out
	return nil
}
