// Package analysis runs the business cloneability assessment on top of the
// structured pipeline and derives the overall score locally.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"clonescout/internal/schema"
)

// Generator is the structured pipeline as seen by this package.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string, s *schema.Schema, systemPrompt string) (map[string]any, error)
}

type DimensionScore struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

type ScoreDetails struct {
	TechnicalComplexity  DimensionScore `json:"technicalComplexity"`
	MarketOpportunity    DimensionScore `json:"marketOpportunity"`
	CompetitiveLandscape DimensionScore `json:"competitiveLandscape"`
	ResourceRequirements DimensionScore `json:"resourceRequirements"`
	TimeToMarket         DimensionScore `json:"timeToMarket"`
}

// Get returns the named dimension, or the zero score for unknown names.
func (d ScoreDetails) Get(name string) DimensionScore {
	switch name {
	case TechnicalComplexity:
		return d.TechnicalComplexity
	case MarketOpportunity:
		return d.MarketOpportunity
	case CompetitiveLandscape:
		return d.CompetitiveLandscape
	case ResourceRequirements:
		return d.ResourceRequirements
	case TimeToMarket:
		return d.TimeToMarket
	}
	return DimensionScore{}
}

type Insights struct {
	KeyInsight  string `json:"keyInsight"`
	RiskFactor  string `json:"riskFactor"`
	Opportunity string `json:"opportunity"`
}

// Result is one completed analysis.
type Result struct {
	URL           string       `json:"url"`
	BusinessModel string       `json:"businessModel"`
	RevenueStream string       `json:"revenueStream"`
	TargetMarket  string       `json:"targetMarket"`
	OverallScore  float64      `json:"overallScore"`
	ScoreDetails  ScoreDetails `json:"scoreDetails"`
	AIInsights    Insights     `json:"aiInsights"`
}

const (
	unavailableMsg = "AI analysis temporarily unavailable. Please check your AI provider configuration and try again."
	invalidMsg     = "AI failed to generate valid analysis. Please try again."
)

// ErrInvalidAnalysis is returned when the response carries no scoreDetails.
var ErrInvalidAnalysis = errors.New(invalidMsg)

// AnalysisError replaces the message of a pipeline failure while keeping the
// cause reachable, so callers can still classify the provider error.
type AnalysisError struct {
	Msg string
	Err error
}

func (e *AnalysisError) Error() string { return e.Msg }
func (e *AnalysisError) Unwrap() error { return e.Err }

type Analyzer struct {
	gen Generator
	log *zap.Logger
}

func NewAnalyzer(gen Generator, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{gen: gen, log: log}
}

// AnalyzeURL assesses one business URL.
func (a *Analyzer) AnalyzeURL(ctx context.Context, url string) (*Result, error) {
	url = strings.TrimSpace(url)
	obj, err := a.gen.GenerateStructured(ctx, analysisPrompt(url), AnalysisSchema, analysisSystemPrompt)
	if err != nil {
		a.log.Error("business analysis failed", zap.String("url", url), zap.Error(err))
		return nil, &AnalysisError{Msg: unavailableMsg, Err: err}
	}
	if !Backfill(obj) {
		return nil, ErrInvalidAnalysis
	}
	res, err := decodeResult(obj)
	if err != nil {
		return nil, err
	}
	res.URL = url
	res.OverallScore = OverallScore(res.ScoreDetails)
	return res, nil
}

// decodeResult maps the normalized object onto Result. Text fields of the
// wrong type are dropped rather than failing the analysis.
func decodeResult(obj map[string]any) (*Result, error) {
	res := &Result{
		BusinessModel: text(obj["businessModel"]),
		RevenueStream: text(obj["revenueStream"]),
		TargetMarket:  text(obj["targetMarket"]),
	}
	details := obj["scoreDetails"].(map[string]any)
	dims := make(map[string]DimensionScore, len(Weights))
	for name := range Weights {
		entry, _ := details[name].(map[string]any)
		score, _ := entry["score"].(float64)
		dims[name] = DimensionScore{Score: score, Reasoning: text(entry["reasoning"])}
	}
	b, err := json.Marshal(dims)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &res.ScoreDetails); err != nil {
		return nil, err
	}
	ins, _ := obj["aiInsights"].(map[string]any)
	res.AIInsights = Insights{
		KeyInsight:  text(ins["keyInsight"]),
		RiskFactor:  text(ins["riskFactor"]),
		Opportunity: text(ins["opportunity"]),
	}
	return res, nil
}

func text(v any) string {
	s, _ := v.(string)
	return s
}
