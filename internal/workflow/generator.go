// Package workflow generates the content of the post-analysis stages.
// Stage 1 is the analysis itself; stages 2 through 6 are one structured
// generation each, chained through the previous stage's output.
package workflow

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"clonescout/internal/analysis"
)

// Context is what a stage prompt is built from. Previous is the content of
// the stage before, or nil.
type Context struct {
	Analysis *analysis.Result
	Previous map[string]any
}

type Generator struct {
	gen analysis.Generator
	log *zap.Logger
}

func NewGenerator(gen analysis.Generator, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{gen: gen, log: log}
}

var errNoAnalysis = errors.New("workflow: analysis is required")

// Generate returns the content for stage n. Stage 1 yields nil, nil.
// The result carries milestones, completionCriteria and nextStepActions
// next to the generated fields.
func (g *Generator) Generate(ctx context.Context, n int, c Context) (map[string]any, error) {
	if err := Validate(n); err != nil {
		return nil, err
	}
	if n == StageDiscovery {
		return nil, nil
	}
	if c.Analysis == nil {
		return nil, errNoAnalysis
	}
	prev := c.Previous
	if prev == nil {
		prev = map[string]any{}
	}
	g.log.Info("generating workflow stage", zap.Int("stage", n), zap.String("name", Name(n)), zap.String("url", c.Analysis.URL))

	out, err := g.gen.GenerateStructured(ctx, renderPrompt(n, c.Analysis, prev), StageSchema(n), systemPrompt(n))
	if err != nil {
		return nil, err
	}
	out["milestones"] = milestones(n, out)
	out["completionCriteria"] = listFor(completionCriteria, n)
	out["nextStepActions"] = listFor(nextStepActions, n)
	return out, nil
}
