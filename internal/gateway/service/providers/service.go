// Package providers manages stored AI credentials and turns the active one
// into a ready structured pipeline.
package providers

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/llm"
	"clonescout/internal/llmclient"
	"clonescout/internal/structured"
)

var ErrNoActiveProvider = errors.New("No active AI provider configured")

// ClientFactory builds a vendor client. llmclient.New in production.
type ClientFactory func(ctx context.Context, cred llmclient.Credential) (llmclient.Client, error)

type Option func(*Service)

func WithClientFactory(f ClientFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithMiddleware appends adapter middleware, outermost first.
func WithMiddleware(mws ...llm.Middleware) Option {
	return func(s *Service) { s.mws = append(s.mws, mws...) }
}

func WithPipelineOptions(opts ...structured.Option) Option {
	return func(s *Service) { s.pipeOpts = append(s.pipeOpts, opts...) }
}

type Service struct {
	store    store.Store
	factory  ClientFactory
	mws      []llm.Middleware
	pipeOpts []structured.Option
	log      *zap.Logger
}

func New(st store.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: st, factory: llmclient.New, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, userID string) ([]store.Provider, error) {
	return s.store.ListProviders(ctx, userID)
}

// Active returns ErrNoActiveProvider when the user has none.
func (s *Service) Active(ctx context.Context, userID string) (*store.Provider, error) {
	p, err := s.store.ActiveProvider(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoActiveProvider
	}
	return p, err
}

type CreateInput struct {
	Provider string
	APIKey   string
	Model    string
	IsActive bool
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*store.Provider, error) {
	kind, err := llmclient.ParseKind(in.Provider)
	if err != nil {
		return nil, err
	}
	p, err := s.store.CreateProvider(ctx, store.Provider{
		UserID:   userID,
		Provider: string(kind),
		APIKey:   strings.TrimSpace(in.APIKey),
		Model:    strings.TrimSpace(in.Model),
		IsActive: in.IsActive,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("ai provider created", zap.String("user_id", userID), zap.String("provider", p.Provider), zap.Bool("active", p.IsActive))
	return p, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, u store.ProviderUpdate) (*store.Provider, error) {
	return s.store.UpdateProvider(ctx, userID, id, u)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteProvider(ctx, userID, id)
}

// Test builds a throwaway client for the given key and probes it. A client
// that cannot be built is an error; an unreachable one is just false.
func (s *Service) Test(ctx context.Context, provider, apiKey string) (bool, error) {
	kind, err := llmclient.ParseKind(provider)
	if err != nil {
		return false, err
	}
	c, err := s.factory(ctx, llmclient.Credential{Provider: kind, APIKey: strings.TrimSpace(apiKey)})
	if err != nil {
		return false, err
	}
	defer c.Close()
	ok := llm.Wrap(c, s.mws...).TestConnection(ctx)
	s.log.Info("ai provider connection test", zap.String("provider", string(kind)), zap.Bool("connected", ok))
	return ok, nil
}

// Pipeline resolves the user's active provider into a pipeline. Callers
// close the pipeline's client when done.
func (s *Service) Pipeline(ctx context.Context, userID string) (*structured.Pipeline, *store.Provider, error) {
	p, err := s.Active(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	kind, err := llmclient.ParseKind(p.Provider)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.factory(ctx, llmclient.Credential{Provider: kind, APIKey: p.APIKey, Model: p.Model})
	if err != nil {
		return nil, nil, err
	}
	opts := append([]structured.Option{structured.WithLogger(s.log)}, s.pipeOpts...)
	return structured.New(llm.Wrap(c, s.mws...), opts...), p, nil
}
