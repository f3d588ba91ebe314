// Command clonescout analyzes one business URL from the terminal and writes
// the analysis and workflow stage documents as JSON files.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"clonescout/internal/analysis"
	"clonescout/internal/gateway/repository/archive"
	"clonescout/internal/llm"
	"clonescout/internal/llmclient"
	"clonescout/internal/logger"
	"clonescout/internal/structured"
	"clonescout/internal/util/jsonutil"
	"clonescout/internal/workflow"
)

var keyEnv = map[llmclient.ProviderKind]string{
	llmclient.OpenAI: "OPENAI_API_KEY",
	llmclient.Gemini: "GEMINI_API_KEY",
	llmclient.Grok:   "XAI_API_KEY",
}

func main() {
	url := flag.String("url", "", "business URL to analyze")
	provider := flag.String("provider", "gemini", "AI provider: openai, gemini or grok")
	model := flag.String("model", "", "model id (vendor default when empty)")
	outDir := flag.String("out", "out", "output directory")
	stageRange := flag.String("stages", "2-6", "workflow stages to generate, e.g. 2-4; empty for none")
	resume := flag.Bool("resume", false, "reuse analysis.json and stage files already in -out")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	defer func() { _ = log.Sync() }()

	if err := run(*url, *provider, *model, *outDir, *stageRange, *resume, log); err != nil {
		log.Fatal("clonescout failed", zap.Error(err))
	}
}

func run(url, provider, model, outDir, stageRange string, resume bool, log *zap.Logger) error {
	if strings.TrimSpace(url) == "" && !resume {
		return errors.New("-url is required")
	}
	from, to, err := parseStages(stageRange)
	if err != nil {
		return err
	}
	kind, err := llmclient.ParseKind(provider)
	if err != nil {
		return err
	}
	apiKey := strings.TrimSpace(os.Getenv(keyEnv[kind]))
	if apiKey == "" {
		return fmt.Errorf("%s is not set", keyEnv[kind])
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := llmclient.New(ctx, llmclient.Credential{Provider: kind, APIKey: apiKey, Model: model})
	if err != nil {
		return err
	}
	defer c.Close()
	pipe := structured.New(
		llm.Wrap(c, llm.RateLimitFromEnv("LLM", strings.ToUpper(string(kind))), llm.WithLogging(log)),
		structured.WithLogger(log),
	)

	var res *analysis.Result
	if resume {
		res = &analysis.Result{}
		if err := readJSON(outDir, archive.AnalysisFile, res); err != nil {
			return err
		}
		log.Info("resuming from saved analysis", zap.String("url", res.URL))
	} else {
		res, err = analysis.NewAnalyzer(pipe, log).AnalyzeURL(ctx, url)
		if err != nil {
			return err
		}
		if err := writeJSON(outDir, archive.AnalysisFile, res); err != nil {
			return err
		}
		log.Info("analysis completed", zap.String("url", res.URL), zap.Float64("overall_score", res.OverallScore))
	}

	gen := workflow.NewGenerator(pipe, log)
	var prev map[string]any
	if from > workflow.StageFilter {
		prev = map[string]any{}
		if err := readJSON(outDir, archive.StageFile(from-1), &prev); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	for n := from; n <= to; n++ {
		name := archive.StageFile(n)
		if resume {
			var saved map[string]any
			if err := readJSON(outDir, name, &saved); err == nil {
				log.Info("stage already generated", zap.Int("stage", n))
				prev = saved
				continue
			}
		}
		data, err := gen.Generate(ctx, n, workflow.Context{Analysis: res, Previous: prev})
		if err != nil {
			return fmt.Errorf("stage %d (%s): %w", n, workflow.Name(n), err)
		}
		if err := writeJSON(outDir, name, data); err != nil {
			return err
		}
		prev = data
	}

	log.Info("documents written", zap.String("dir", outDir))
	return nil
}

// parseStages reads "N" or "N-M". Stage 1 is the analysis itself, so ranges
// start at 2.
func parseStages(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, -1, nil
	}
	lo, hi, found := strings.Cut(s, "-")
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -stages %q", s)
	}
	to := from
	if found {
		if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return 0, 0, fmt.Errorf("invalid -stages %q", s)
		}
	}
	if from < workflow.StageFilter || to > workflow.LastStage || from > to {
		return 0, 0, fmt.Errorf("-stages must lie within %d-%d, got %q", workflow.StageFilter, workflow.LastStage, s)
	}
	return from, to, nil
}

func writeJSON(dir, name string, v any) error {
	b, err := jsonutil.MarshalNoEscapeIndent(v, "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), b, 0o644)
}

func readJSON(dir, name string, v any) error {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}
