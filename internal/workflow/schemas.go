package workflow

import "clonescout/internal/schema"

// short forms keep the stage schemas readable
var (
	obj     = schema.Obj
	f       = schema.F
	str     = schema.Str
	num     = schema.Num
	enum    = schema.Enum
	arrayOf = schema.ArrayOf
	strs    = schema.Strings
)

var levels = []string{"Low", "Medium", "High"}

var stageSchemas = map[int]*schema.Schema{
	StageFilter: obj(
		f("recommendation", enum("PROCEED", "MODIFY", "SKIP")),
		f("effortScore", num().Range(1, 10)),
		f("rewardScore", num().Range(1, 10)),
		f("effortBreakdown", obj(
			f("technical", num()),
			f("marketing", num()),
			f("operational", num()),
			f("financial", num()),
		)),
		f("reasoning", str()),
		f("modifications", strs()),
		f("shortcuts", strs()),
		f("toolsToLeverage", strs()),
		f("riskMitigation", strs()),
	),

	StageMVP: obj(
		f("coreFeatures", arrayOf(obj(
			f("name", str()),
			f("priority", enum("Must Have", "Should Have", "Nice to Have")),
			f("effort", enum(levels...)),
			f("value", enum(levels...)),
		))),
		f("techStack", obj(
			f("frontend", strs()),
			f("backend", strs()),
			f("database", strs()),
			f("infrastructure", strs()),
			f("thirdPartyServices", strs()),
		)),
		f("timeline", obj(
			f("total", str()),
			f("phases", arrayOf(obj(
				f("name", str()),
				f("duration", str()),
				f("deliverables", strs()),
			))),
		)),
		f("teamRequirements", arrayOf(obj(
			f("role", str()),
			f("level", str()),
			f("commitment", str()),
			f("cost", str()),
		))),
		f("budgetBreakdown", obj(
			f("development", str()),
			f("infrastructure", str()),
			f("marketing", str()),
			f("operations", str()),
			f("buffer", str()),
			f("total", str()),
		)),
		f("validationMetrics", strs()),
		f("launchStrategy", str()),
	),

	StageDemandTest: obj(
		f("validationMethods", arrayOf(obj(
			f("method", str()),
			f("timeline", str()),
			f("cost", str()),
			f("expectedOutcome", str()),
		))),
		f("landingPageStrategy", obj(
			f("variants", strs()),
			f("copyTesting", strs()),
			f("conversionTargets", str()),
		)),
		f("betaProgram", obj(
			f("targetUsers", num()),
			f("acquisitionChannels", strs()),
			f("incentives", strs()),
			f("feedbackMethods", strs()),
		)),
		f("pricingTests", arrayOf(obj(
			f("model", str()),
			f("pricePoints", strs()),
			f("testMethod", str()),
		))),
		f("successMetrics", obj(
			f("northStar", str()),
			f("leading", strs()),
			f("lagging", strs()),
			f("targets", obj()),
		)),
		f("pivotIndicators", arrayOf(obj(
			f("indicator", str()),
			f("threshold", str()),
			f("action", str()),
		))),
	),

	StageScaling: obj(
		f("growthStrategies", arrayOf(obj(
			f("strategy", str()),
			f("timeline", str()),
			f("investment", str()),
			f("expectedROI", str()),
		))),
		f("acquisitionChannels", arrayOf(obj(
			f("channel", str()),
			f("CAC", str()),
			f("scalability", enum(levels...)),
			f("priority", num()),
		))),
		f("retentionStrategies", strs()),
		f("productRoadmap", arrayOf(obj(
			f("quarter", str()),
			f("features", strs()),
			f("objectives", strs()),
		))),
		f("teamScaling", obj(
			f("currentSize", num()),
			f("sixMonthTarget", num()),
			f("twelveMonthTarget", num()),
			f("keyHires", strs()),
		)),
		f("infrastructure", arrayOf(obj(
			f("component", str()),
			f("currentState", str()),
			f("targetState", str()),
			f("timeline", str()),
		))),
		f("positioning", obj(
			f("uniqueValue", str()),
			f("competitiveDifferentiators", strs()),
			f("messaging", str()),
		)),
		f("financialProjections", obj(
			f("sixMonthRevenue", str()),
			f("twelveMonthRevenue", str()),
			f("burnRate", str()),
			f("profitabilityTimeline", str()),
		)),
	),

	StageAIAutomation: obj(
		f("customerServiceAI", arrayOf(obj(
			f("solution", str()),
			f("implementation", str()),
			f("cost", str()),
			f("timeToValue", str()),
		))),
		f("marketingAutomation", arrayOf(obj(
			f("solution", str()),
			f("useCase", str()),
			f("expectedImpact", str()),
		))),
		f("operationsAI", arrayOf(obj(
			f("process", str()),
			f("automationApproach", str()),
			f("efficiencyGain", str()),
		))),
		f("productFeatureAI", arrayOf(obj(
			f("feature", str()),
			f("aiEnhancement", str()),
			f("userValue", str()),
			f("complexity", enum(levels...)),
		))),
		f("dataAnalysisAI", arrayOf(obj(
			f("analysisType", str()),
			f("dataSource", str()),
			f("insights", str()),
			f("businessImpact", str()),
		))),
		f("implementationRoadmap", arrayOf(obj(
			f("phase", str()),
			f("timeline", str()),
			f("initiatives", strs()),
			f("investment", str()),
		))),
		f("roiProjections", obj(
			f("costSavings", str()),
			f("revenueIncrease", str()),
			f("efficiencyGains", str()),
			f("paybackPeriod", str()),
		)),
		f("buildVsBuy", arrayOf(obj(
			f("capability", str()),
			f("recommendation", enum("Build", "Buy", "Partner")),
			f("rationale", str()),
		))),
	),
}

// StageSchema returns the response schema for stages 2-6, or nil.
func StageSchema(n int) *schema.Schema { return stageSchemas[n] }
