package analysis

import (
	"math"

	"clonescout/internal/normalize"
)

// Dimension names, in canonical order.
const (
	TechnicalComplexity  = "technicalComplexity"
	MarketOpportunity    = "marketOpportunity"
	CompetitiveLandscape = "competitiveLandscape"
	ResourceRequirements = "resourceRequirements"
	TimeToMarket         = "timeToMarket"
)

// Weights sum to 1.0.
var Weights = map[string]float64{
	TechnicalComplexity:  0.20,
	MarketOpportunity:    0.25,
	CompetitiveLandscape: 0.15,
	ResourceRequirements: 0.20,
	TimeToMarket:         0.20,
}

const (
	DefaultReasoning = "Unable to assess - using default score"

	PendingInsight     = "Analysis pending"
	PendingRisk        = "To be determined"
	PendingOpportunity = "Further investigation needed"
	roundingEpsilon    = 1e-9
)

// OverallScore is the weighted sum of the five dimension scores rounded to
// one decimal, half away from zero.
func OverallScore(d ScoreDetails) float64 {
	sum := 0.0
	for _, dim := range normalize.ScoreDimensions {
		sum += Weights[dim] * guard(d.Get(dim).Score)
	}
	return Round1(sum)
}

// Round1 rounds to one decimal place, half away from zero. The epsilon
// absorbs binary error so that sums like 6.95 round up.
func Round1(x float64) float64 {
	return math.Round((x+math.Copysign(roundingEpsilon, x))*10) / 10
}

func guard(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return normalize.DefaultScore
	}
	return normalize.ClampScore(score)
}

// Backfill fills the fixed dimensions and insights in a normalized response.
// It reports false when scoreDetails is absent, since there is nothing to
// assess. obj is modified in place.
func Backfill(obj map[string]any) bool {
	details, ok := obj["scoreDetails"].(map[string]any)
	if !ok {
		return false
	}
	for _, dim := range normalize.ScoreDimensions {
		entry, ok := details[dim].(map[string]any)
		if !ok {
			details[dim] = map[string]any{
				"score":     normalize.DefaultScore,
				"reasoning": DefaultReasoning,
			}
			continue
		}
		score, ok := normalize.ParseScore(entry["score"])
		if !ok {
			score = normalize.DefaultScore
		}
		entry["score"] = guard(score)
	}
	if _, ok := obj["aiInsights"].(map[string]any); !ok {
		obj["aiInsights"] = map[string]any{
			"keyInsight":  PendingInsight,
			"riskFactor":  PendingRisk,
			"opportunity": PendingOpportunity,
		}
	}
	return true
}
