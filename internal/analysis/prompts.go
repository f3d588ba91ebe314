package analysis

import (
	"fmt"

	"clonescout/internal/schema"
)

const analysisSystemPrompt = "You are a venture analyst. Be extremely concise. Each reasoning should be 2-3 sentences maximum. Focus on actionable insights."

func analysisPrompt(url string) string {
	return fmt.Sprintf(`Analyze the business at %s for cloneability.

IMPORTANT: Be CONCISE - keep each reasoning to 2-3 sentences maximum.

Provide:
1. Business model (1 sentence)
2. Primary revenue stream (1 sentence)
3. Target market (1 sentence)
4. Scores (1-10) with brief reasoning:
   - Technical complexity
   - Market opportunity
   - Competitive landscape
   - Resource requirements
   - Time to market
5. One key insight (1 sentence)
6. One risk factor (1 sentence)
7. One opportunity (1 sentence)`, url)
}

func dimension() *schema.Schema {
	return schema.Obj(
		schema.F("score", schema.Num().Range(1, 10)),
		schema.F("reasoning", schema.Str()),
	)
}

// AnalysisSchema is the response shape requested for a URL analysis.
var AnalysisSchema = schema.Obj(
	schema.F("businessModel", schema.Str()),
	schema.F("revenueStream", schema.Str()),
	schema.F("targetMarket", schema.Str()),
	schema.F("scoreDetails", schema.Obj(
		schema.F(TechnicalComplexity, dimension()),
		schema.F(MarketOpportunity, dimension()),
		schema.F(CompetitiveLandscape, dimension()),
		schema.F(ResourceRequirements, dimension()),
		schema.F(TimeToMarket, dimension()),
	)),
	schema.F("aiInsights", schema.Obj(
		schema.F("keyInsight", schema.Str()),
		schema.F("riskFactor", schema.Str()),
		schema.F("opportunity", schema.Str()),
	)),
)

const searchSystemPrompt = "You are a business research specialist helping entrepreneurs find cloneable opportunities. Suggest real, existing businesses that match the criteria and would be good learning examples."

func searchPrompt(query string) string {
	return fmt.Sprintf(`Based on the query %q, suggest 5 real web businesses/applications that match this criteria and would be good candidates for cloning. For each business, provide:
1. Business name
2. URL (if publicly known)
3. Brief description
4. Business model
5. Estimated cloneability score (1-10)

Focus on businesses that are:
- Technically feasible to clone
- Have proven market demand
- Not overly complex for a startup to replicate
- Have clear monetization strategies`, query)
}

// SearchSchema is the response shape requested for a business search.
var SearchSchema = schema.Obj(
	schema.F("businesses", schema.ArrayOf(schema.Obj(
		schema.F("name", schema.Str()),
		schema.F("url", schema.Str()),
		schema.F("description", schema.Str()),
		schema.F("businessModel", schema.Str()),
		schema.F("estimatedScore", schema.Num().Range(1, 10)),
	))),
)
