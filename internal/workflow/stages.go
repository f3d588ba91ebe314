package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const (
	StageDiscovery    = 1
	StageFilter       = 2
	StageMVP          = 3
	StageDemandTest   = 4
	StageScaling      = 5
	StageAIAutomation = 6

	FirstStage = StageDiscovery
	LastStage  = StageAIAutomation
)

var ErrUnknownStage = errors.New("unknown workflow stage")

var stageNames = [...]string{
	"",
	"Discovery & Selection",
	"Lazy-Entrepreneur Filter",
	"MVP Launch Planning",
	"Demand Testing Strategy",
	"Scaling & Growth",
	"AI Automation Mapping",
}

// Name returns the display name of stage n, or "" when n is out of range.
func Name(n int) string {
	if n < FirstStage || n > LastStage {
		return ""
	}
	return stageNames[n]
}

// Validate returns ErrUnknownStage unless 1 <= n <= 6.
func Validate(n int) error {
	if n < FirstStage || n > LastStage {
		return fmt.Errorf("%w: %d", ErrUnknownStage, n)
	}
	return nil
}

const defaultSystemPrompt = "You are an expert business advisor."

var systemPrompts = map[int]string{
	StageFilter:       "You are a pragmatic startup advisor focused on effort minimization and smart shortcuts. Be brutally honest about feasibility and provide actionable simplifications.",
	StageMVP:          "You are an experienced product manager and technical architect. Focus on practical, implementable plans with realistic timelines and modern best practices.",
	StageDemandTest:   "You are a growth hacker and lean startup expert. Emphasize rapid testing, data-driven decisions, and fail-fast mentality.",
	StageScaling:      "You are a growth strategist and scale-up advisor. Focus on sustainable, capital-efficient growth with clear metrics and milestones.",
	StageAIAutomation: "You are an AI implementation specialist. Provide practical, high-ROI automation opportunities with clear implementation paths.",
}

func systemPrompt(n int) string {
	if p, ok := systemPrompts[n]; ok {
		return p
	}
	return defaultSystemPrompt
}

type Milestone struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// milestones derives progress markers from the generated stage content.
func milestones(n int, data map[string]any) []Milestone {
	has := func(key string) bool { return truthy(data[key]) }
	switch n {
	case StageFilter:
		return []Milestone{
			{"Initial Assessment", true},
			{"Effort Analysis", true},
			{"Simplification Strategy", true},
			{"Go/No-Go Decision", true},
		}
	case StageMVP:
		return []Milestone{
			{"Feature Prioritization", has("coreFeatures")},
			{"Tech Stack Selection", has("techStack")},
			{"Timeline Definition", has("timeline")},
			{"Budget Approval", has("budgetBreakdown")},
		}
	case StageDemandTest:
		return []Milestone{
			{"Landing Page Launch", false},
			{"Beta User Acquisition", false},
			{"Metrics Dashboard Setup", false},
			{"First Cohort Analysis", false},
		}
	case StageScaling:
		return []Milestone{
			{"Growth Channel Validation", false},
			{"Product-Market Fit", false},
			{"Team Expansion", false},
			{"Series A Ready", false},
		}
	case StageAIAutomation:
		return []Milestone{
			{"AI Roadmap Defined", has("implementationRoadmap")},
			{"First AI Feature Live", false},
			{"Automation ROI Validated", false},
			{"Full AI Integration", false},
		}
	}
	return []Milestone{}
}

var completionCriteria = map[int][]string{
	StageFilter: {
		"Clear go/no-go decision made",
		"All simplifications identified",
		"Resource requirements validated",
		"Risk mitigation plan in place",
	},
	StageMVP: {
		"MVP scope fully defined",
		"Development team assembled",
		"Budget secured",
		"Launch date set",
	},
	StageDemandTest: {
		"Minimum 100 beta users acquired",
		"Key metrics tracking live",
		"Initial feedback collected",
		"Pivot decision made",
	},
	StageScaling: {
		"Sustainable CAC/LTV ratio achieved",
		"Growth channels validated",
		"Team scaled appropriately",
		"Next funding round prepared",
	},
	StageAIAutomation: {
		"AI roadmap approved",
		"First implementations live",
		"ROI metrics validated",
		"Scaling plan defined",
	},
}

var nextStepActions = map[int][]string{
	StageFilter: {
		"Review simplification opportunities",
		"Validate resource estimates",
		"Seek advisor feedback",
		"Proceed to MVP planning",
	},
	StageMVP: {
		"Assemble development team",
		"Set up development environment",
		"Create project roadmap",
		"Begin sprint planning",
	},
	StageDemandTest: {
		"Launch landing page",
		"Start user acquisition",
		"Set up analytics",
		"Schedule user interviews",
	},
	StageScaling: {
		"Optimize acquisition channels",
		"Hire key positions",
		"Develop partnerships",
		"Prepare investor deck",
	},
	StageAIAutomation: {
		"Prioritize AI initiatives",
		"Start pilot implementations",
		"Measure impact metrics",
		"Scale successful automations",
	},
}

func listFor(m map[int][]string, n int) []string {
	return append([]string{}, m[n]...)
}

// truthy reports whether v counts as present: nil, false, "" and 0 do not.
// Empty arrays and objects do.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	}
	return true
}
