package llmclient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultOpenAIModel = "gpt-4o"
	defaultGrokModel   = "grok-2-1212"
	grokBaseURL        = "https://api.x.ai/v1"

	structuredTemperature = 0.7
	structuredMaxTokens   = 2000
)

// OpenAIClient talks to the OpenAI chat completions API. Grok speaks the same
// protocol, so it is served by this type with a different endpoint and model.
// Cross-cutting concerns (rate limiting, logging, metrics) are applied via
// middleware in package llm.
type OpenAIClient struct {
	cli   openai.Client
	kind  ProviderKind
	model string
}

// NewOpenAIClient builds a client for the OpenAI or Grok kind. The SDK's own
// retries are disabled.
func NewOpenAIClient(cred Credential, opts ...option.RequestOption) (*OpenAIClient, error) {
	kind := cred.Provider
	if kind == "" {
		kind = OpenAI
	}
	if kind != OpenAI && kind != Grok {
		return nil, NewPermanentError(errors.New("openai client: unsupported provider " + string(kind)))
	}
	apiKey := strings.TrimSpace(cred.APIKey)
	if apiKey == "" {
		return nil, NewPermanentError(errors.New(string(kind) + ": API key is required"))
	}
	model := strings.TrimSpace(cred.Model)
	baseURL := strings.TrimSpace(cred.BaseURL)
	if kind == Grok {
		if model == "" {
			model = defaultGrokModel
		}
		if baseURL == "" {
			baseURL = grokBaseURL
		}
	} else if model == "" {
		model = defaultOpenAIModel
	}

	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(90 * time.Second),
	}
	if baseURL != "" {
		base = append(base, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		cli:   openai.NewClient(append(base, opts...)...),
		kind:  kind,
		model: model,
	}, nil
}

func (c *OpenAIClient) Name() string { return string(c.kind) + ":" + c.model }
func (c *OpenAIClient) Close() error { return nil }

func (c *OpenAIClient) TestConnection(ctx context.Context) bool {
	return Probe(ctx, c)
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Response, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(req.SystemPrompt) != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))
	return c.complete(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
	}, false)
}

// GenerateStructured sends the schema as prompt text and asks for a JSON
// object response format. The format is a hint; the output is not validated here.
func (c *OpenAIClient) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(StructuredSystemPrompt(req.SystemPrompt, true)),
		openai.UserMessage(StructuredUserPrompt(req.Prompt, req.Schema, "Remember:")),
	}
	return c.complete(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(structuredTemperature),
		MaxTokens:   openai.Int(structuredMaxTokens),
	}, true)
}

func (c *OpenAIClient) complete(ctx context.Context, params openai.ChatCompletionNewParams, structured bool) (*Response, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return nil, vendorError(c.Name(), status, err)
	}
	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if structured && strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}
	out := &Response{Content: content}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}
