package llmclient

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"
)

const defaultGeminiModel = "gemini-1.5-pro"

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (rate limiting, logging, metrics) are applied via middleware.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, cred Credential) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cred.APIKey)
	if apiKey == "" {
		return nil, NewPermanentError(errors.New("gemini: API key is required"))
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if base := strings.TrimSpace(cred.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(cred.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) TestConnection(ctx context.Context) bool {
	return Probe(ctx, g)
}

func (g *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	return g.generate(ctx, req.Prompt, cfg, false)
}

// GenerateStructured uses the native response schema in addition to the
// inlined schema text.
func (g *GeminiClient) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema.GenAI(),
		Temperature:      genai.Ptr[float32](structuredTemperature),
		MaxOutputTokens:  structuredMaxTokens,
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(StructuredSystemPrompt(req.SystemPrompt, false), genai.RoleUser)
	}
	return g.generate(ctx, StructuredUserPrompt(req.Prompt, req.Schema, "IMPORTANT:"), cfg, true)
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig, structured bool) (*Response, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}, Role: genai.RoleUser}},
		cfg,
	)
	if err != nil {
		status := 0
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		return nil, vendorError(g.Name(), status, err)
	}
	content := resp.Text()
	if structured && strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}
	out := &Response{Content: content}
	if u := resp.UsageMetadata; u != nil && u.TotalTokenCount > 0 {
		out.Usage = &Usage{
			PromptTokens:     int64(u.PromptTokenCount),
			CompletionTokens: int64(u.CandidatesTokenCount),
			TotalTokens:      int64(u.TotalTokenCount),
		}
	}
	return out, nil
}
