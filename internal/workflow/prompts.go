package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"clonescout/internal/analysis"
)

func renderPrompt(n int, a *analysis.Result, prev map[string]any) string {
	switch n {
	case StageFilter:
		return filterPrompt(a)
	case StageMVP:
		return mvpPrompt(a, prev)
	case StageDemandTest:
		return demandTestPrompt(prev)
	case StageScaling:
		return scalingPrompt(a, prev)
	case StageAIAutomation:
		return automationPrompt(a, prev)
	}
	return ""
}

func filterPrompt(a *analysis.Result) string {
	d := a.ScoreDetails
	return fmt.Sprintf(`Apply the "Lazy Entrepreneur Filter" to %s (%s).

Current Score: %s/10
Business Model: %s
Revenue Stream: %s
Target Market: %s

Evaluate based on:
1. EFFORT ANALYSIS
   - Technical complexity (current score: %s/10)
   - Resource requirements (current score: %s/10)
   - Time to market (current score: %s/10)

2. REWARD POTENTIAL
   - Market opportunity (current score: %s/10)
   - Revenue potential based on %s
   - Competitive advantage possibilities

3. LAZY OPTIMIZATION
   - Identify shortcuts and simplifications
   - Find existing tools/APIs to leverage
   - Suggest MVV (Minimum Viable Version) approach
   - List what NOT to build

Provide actionable recommendation with clear go/no-go decision.`,
		a.URL, a.BusinessModel,
		num2s(a.OverallScore), a.BusinessModel, a.RevenueStream, a.TargetMarket,
		num2s(d.TechnicalComplexity.Score), num2s(d.ResourceRequirements.Score), num2s(d.TimeToMarket.Score),
		num2s(d.MarketOpportunity.Score), a.RevenueStream)
}

func mvpPrompt(a *analysis.Result, prev map[string]any) string {
	return fmt.Sprintf(`Create a detailed MVP Launch Plan for cloning %s business.

Previous Filter Result: %s
Suggested Modifications: %s

Design the MVP with:

1. CORE FEATURE SET (Limit to 5-7 essential features)
   - Focus on %s monetization
   - Target %s specifically
   - Consider competitive landscape score: %s/10

2. TECHNICAL ARCHITECTURE
   - Modern, scalable tech stack
   - Cloud-first approach
   - API-driven design
   - Security best practices

3. DEVELOPMENT ROADMAP
   - Sprint-based timeline (2-week sprints)
   - Milestone deliverables
   - Testing strategy
   - Launch checklist

4. RESOURCE PLANNING
   - Team composition (roles and skills)
   - Budget breakdown by category
   - Tool and service costs
   - Risk buffer allocation

Focus on speed to market while maintaining quality.`,
		a.BusinessModel,
		textOr(prev["recommendation"], "PROCEED"),
		jsonOr(prev["modifications"]),
		a.RevenueStream, a.TargetMarket, num2s(a.ScoreDetails.CompetitiveLandscape.Score))
}

func demandTestPrompt(prev map[string]any) string {
	return fmt.Sprintf(`Design a comprehensive Demand Testing Strategy for the MVP.

MVP Features: %s
Timeline: %s
Budget: %s

Create testing framework including:

1. PRE-LAUNCH VALIDATION
   - Landing page A/B tests
   - Value proposition testing
   - Pricing sensitivity analysis
   - Feature prioritization surveys

2. SOFT LAUNCH STRATEGY
   - Beta user acquisition (target 100-500 users)
   - Cohort analysis setup
   - Feedback loops implementation
   - Iteration protocol

3. METRICS FRAMEWORK
   - North star metric definition
   - Leading indicators
   - Lagging indicators
   - Dashboard requirements

4. PIVOT TRIGGERS
   - Red flags to watch
   - Decision criteria
   - Alternative directions
   - Sunset conditions

Focus on data-driven validation with clear success/failure criteria.`,
		jsonOr(prev["coreFeatures"]),
		textOr(totalOf(prev["timeline"]), "3-6 months"),
		textOr(budgetOf(prev), "TBD"))
}

func scalingPrompt(a *analysis.Result, prev map[string]any) string {
	return fmt.Sprintf(`Develop a Scaling & Growth Strategy for validated business.

Validation Results: %s
Current Target Market: %s

Design growth plan including:

1. GROWTH CHANNELS (Prioritized by CAC/LTV)
   - Organic growth tactics
   - Paid acquisition channels
   - Partnership opportunities
   - Content marketing strategy
   - Community building

2. PRODUCT EXPANSION
   - Feature roadmap (6-12 months)
   - Platform extensions
   - Market segment expansion
   - Geographic expansion

3. OPERATIONAL SCALING
   - Team growth plan
   - System architecture evolution
   - Process automation priorities
   - Quality maintenance strategies

4. FINANCIAL PROJECTIONS
   - Revenue growth targets
   - Unit economics optimization
   - Funding requirements
   - Profitability timeline

Focus on sustainable, capital-efficient growth.`,
		jsonOr(prev["successMetrics"]), a.TargetMarket)
}

func automationPrompt(a *analysis.Result, prev map[string]any) string {
	return fmt.Sprintf(`Map AI Automation Opportunities for %s.

Current Scale: Based on growth strategies %s

Identify AI integration points:

1. CUSTOMER EXPERIENCE AI
   - Chatbot/support automation
   - Personalization engine
   - Recommendation systems
   - Predictive user behavior

2. OPERATIONAL AI
   - Process automation
   - Quality assurance
   - Fraud detection
   - Resource optimization

3. MARKETING & SALES AI
   - Lead scoring
   - Content generation
   - Campaign optimization
   - Churn prediction

4. PRODUCT AI FEATURES
   - Core feature enhancements
   - AI-native features
   - Data insights products
   - API offerings

5. IMPLEMENTATION ROADMAP
   - Priority matrix (impact vs effort)
   - Build vs buy decisions
   - Integration timeline
   - ROI projections

Focus on practical, high-ROI implementations.`,
		a.BusinessModel, jsonOr(prev["growthStrategies"]))
}

func num2s(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// textOr returns v as text, or def when v is missing or blank.
func textOr(v any, def string) string {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) != "" {
			return x
		}
	case float64:
		return num2s(x)
	}
	return def
}

// jsonOr renders v compactly; a missing value renders as an empty list.
func jsonOr(v any) string {
	if v == nil {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// totalOf reads a timeline given either as text or as {total, phases}.
func totalOf(v any) any {
	if m, ok := v.(map[string]any); ok {
		return m["total"]
	}
	return v
}

func budgetOf(prev map[string]any) any {
	if v, ok := prev["budgetEstimate"]; ok && v != nil {
		return v
	}
	if m, ok := prev["budgetBreakdown"].(map[string]any); ok {
		return m["total"]
	}
	return nil
}
