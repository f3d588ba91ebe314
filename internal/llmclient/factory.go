package llmclient

import (
	"context"
	"fmt"
	"sync"
)

// Factory builds a Client for one provider kind.
type Factory func(ctx context.Context, cred Credential) (Client, error)

var (
	factoryMu sync.RWMutex
	factories = map[ProviderKind]Factory{
		OpenAI: newOpenAICompatible,
		Grok:   newOpenAICompatible,
		Gemini: func(ctx context.Context, cred Credential) (Client, error) {
			return NewGeminiClient(ctx, cred)
		},
	}
)

func newOpenAICompatible(_ context.Context, cred Credential) (Client, error) {
	return NewOpenAIClient(cred)
}

// Register replaces the factory for kind. Tests use it to swap in fakes.
func Register(kind ProviderKind, f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = f
}

// New selects the adapter for cred.Provider.
func New(ctx context.Context, cred Credential) (Client, error) {
	kind, err := ParseKind(string(cred.Provider))
	if err != nil {
		return nil, err
	}
	cred.Provider = kind
	factoryMu.RLock()
	f, ok := factories[kind]
	factoryMu.RUnlock()
	if !ok {
		return nil, NewPermanentError(fmt.Errorf("no client registered for provider %q", kind))
	}
	return f(ctx, cred)
}
