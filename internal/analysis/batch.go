package analysis

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const MaxBatchSize = 10

var ErrBatchSize = fmt.Errorf("batch must contain between 1 and %d URLs", MaxBatchSize)

// BatchItem is the outcome for one URL, reported as soon as it is known.
type BatchItem struct {
	Index    int
	URL      string
	Analysis *Result
	Err      error
}

type BatchFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type BatchResult struct {
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Analyses   []*Result      `json:"analyses"`
	Failures   []BatchFailure `json:"failures"`
}

// AnalyzeBatch analyzes urls one at a time. A failed URL is counted and the
// batch moves on. Once ctx is done the remaining URLs are counted as failed
// without calling the provider. onResult may be nil.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, urls []string, onResult func(BatchItem)) (*BatchResult, error) {
	if len(urls) == 0 || len(urls) > MaxBatchSize {
		return nil, ErrBatchSize
	}
	out := &BatchResult{Analyses: []*Result{}, Failures: []BatchFailure{}}
	for i, url := range urls {
		item := BatchItem{Index: i, URL: url}
		if err := ctx.Err(); err != nil {
			item.Err = err
		} else {
			item.Analysis, item.Err = a.AnalyzeURL(ctx, url)
		}
		if item.Err != nil {
			out.Failed++
			out.Failures = append(out.Failures, BatchFailure{URL: url, Error: item.Err.Error()})
			if !errors.Is(item.Err, context.Canceled) {
				a.log.Warn("batch item failed", zap.Int("index", i), zap.String("url", url), zap.Error(item.Err))
			}
		} else {
			out.Successful++
			out.Analyses = append(out.Analyses, item.Analysis)
		}
		if onResult != nil {
			onResult(item)
		}
	}
	return out, nil
}
