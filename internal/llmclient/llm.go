package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clonescout/internal/schema"
)

// ProviderKind names a supported vendor.
type ProviderKind string

const (
	OpenAI ProviderKind = "openai"
	Gemini ProviderKind = "gemini"
	Grok   ProviderKind = "grok"
)

// Kinds lists every supported provider.
var Kinds = []ProviderKind{OpenAI, Gemini, Grok}

// ParseKind accepts a provider name in any case.
func ParseKind(s string) (ProviderKind, error) {
	k := ProviderKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", NewPermanentError(fmt.Errorf("unsupported AI provider: %q", s))
}

// Credential selects and authenticates one vendor. It is passed by value and
// never modified by a client.
type Credential struct {
	Provider ProviderKind
	APIKey   string
	// BaseURL overrides the vendor endpoint (optional).
	BaseURL string
	// Model overrides the vendor default model (optional).
	Model string
}

// Request is one generation call. Schema is only consulted by GenerateStructured.
type Request struct {
	Prompt       string
	SystemPrompt string
	Schema       *schema.Schema
}

// Usage is token accounting as reported by the vendor.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response carries the raw model text. Usage is nil when the vendor did not report it.
type Response struct {
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Client is a single vendor behind a uniform call shape. Implementations do
// not retry; the structured pipeline owns retries.
type Client interface {
	Name() string
	// Generate is free-text generation.
	Generate(ctx context.Context, req Request) (*Response, error)
	// GenerateStructured asks for a JSON object; the returned text is expected,
	// not guaranteed, to parse.
	GenerateStructured(ctx context.Context, req Request) (*Response, error)
	// TestConnection reports liveness and never fails.
	TestConnection(ctx context.Context) bool
	Close() error
}

// ErrEmptyResponse is returned when the vendor answered with no text.
var ErrEmptyResponse = errors.New("AI did not return any content")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked as not worth retrying.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
