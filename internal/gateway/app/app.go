package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"clonescout/internal/gateway/config"
	"clonescout/internal/gateway/handler"
	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/gateway/server"
	"clonescout/internal/gateway/service/analyses"
	"clonescout/internal/gateway/service/providers"
	"clonescout/internal/gateway/service/stages"
	"clonescout/internal/llm"
	"clonescout/internal/logger"
	"clonescout/internal/structured"
)

type App struct {
	server *server.Server
	stores *gatewayStores
	log    *zap.Logger
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(context.Background(), cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.New(cfg.Env, cfg.LogLevel)

	stores, err := initStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	providerSvc := providers.New(stores.store, log,
		providers.WithMiddleware(
			llm.RateLimitFromEnv("LLM"),
			llm.WithLogging(log),
			llm.WithMetrics(),
		),
		providers.WithPipelineOptions(
			structured.WithMaxAttempts(cfg.PipelineMaxAttempts),
			structured.WithBackoff(cfg.PipelineBackoff),
		),
	)
	if err := seedProviders(ctx, cfg, providerSvc, log); err != nil {
		_ = stores.Close()
		return nil, err
	}
	analysisSvc := analyses.New(stores.store, stores.archive, stores.search, providerSvc, log)
	stageSvc := stages.New(stores.store, stores.archive, providerSvc, log)

	h := handler.New(providerSvc, analysisSvc, stageSvc, log)
	srv := server.New(cfg.Port, server.NewRouter(h, log), log)

	return &App{server: srv, stores: stores, log: log}, nil
}

// seedProviders inserts providers from PROVIDER_SEED_FILE unless the user
// already has one of the same kind.
func seedProviders(ctx context.Context, cfg *config.Config, svc *providers.Service, log *zap.Logger) error {
	path := strings.TrimSpace(cfg.ProviderSeedFile)
	if path == "" {
		return nil
	}
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	for _, sp := range seed.Providers {
		existing, err := svc.List(ctx, sp.User)
		if err != nil {
			return fmt.Errorf("seed providers: %w", err)
		}
		if hasKind(existing, sp.Provider) {
			log.Debug("seed provider already present", zap.String("user_id", sp.User), zap.String("provider", sp.Provider))
			continue
		}
		if _, err := svc.Create(ctx, sp.User, providers.CreateInput{
			Provider: sp.Provider,
			APIKey:   sp.APIKey,
			Model:    sp.Model,
			IsActive: sp.Active,
		}); err != nil {
			return fmt.Errorf("seed provider %s for %s: %w", sp.Provider, sp.User, err)
		}
	}
	return nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.stores.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = a.log.Sync()
	return err
}

func hasKind(ps []store.Provider, kind string) bool {
	for _, p := range ps {
		if strings.EqualFold(p.Provider, kind) {
			return true
		}
	}
	return false
}

func (a *App) Logger() *zap.Logger { return a.log }
