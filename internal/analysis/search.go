package analysis

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"clonescout/internal/normalize"
)

type Business struct {
	Name           string  `json:"name"`
	URL            string  `json:"url"`
	Description    string  `json:"description"`
	BusinessModel  string  `json:"businessModel"`
	EstimatedScore float64 `json:"estimatedScore"`
}

type SearchResult struct {
	Businesses []Business `json:"businesses"`
}

// SearchBusinesses asks for real businesses matching query. Entries without
// a name are skipped and estimated scores are kept within [1, 10].
func (a *Analyzer) SearchBusinesses(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	obj, err := a.gen.GenerateStructured(ctx, searchPrompt(query), SearchSchema, searchSystemPrompt)
	if err != nil {
		a.log.Error("business search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	out := &SearchResult{Businesses: []Business{}}
	items, _ := obj["businesses"].([]any)
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		b := Business{
			Name:          strings.TrimSpace(text(m["name"])),
			URL:           strings.TrimSpace(text(m["url"])),
			Description:   text(m["description"]),
			BusinessModel: text(m["businessModel"]),
		}
		if b.Name == "" {
			continue
		}
		score, ok := normalize.ParseScore(m["estimatedScore"])
		if !ok {
			score = normalize.DefaultScore
		}
		b.EstimatedScore = guard(score)
		out.Businesses = append(out.Businesses, b)
	}
	return out, nil
}
