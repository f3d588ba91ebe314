package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clonescout/internal/gateway/config"
	"clonescout/internal/gateway/repository/archive"
	"clonescout/internal/gateway/repository/searchcache"
	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/gateway/service/providers"
)

func TestSeedProviders_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  - provider: openai
    api_key: sk-one
    active: true
  - provider: gemini
    api_key: g-two
`), 0o600))

	st := store.NewMemory()
	svc := providers.New(st, zap.NewNop())
	cfg := &config.Config{ProviderSeedFile: path}

	require.NoError(t, seedProviders(context.Background(), cfg, svc, zap.NewNop()))
	require.NoError(t, seedProviders(context.Background(), cfg, svc, zap.NewNop()))

	ps, err := svc.List(context.Background(), "local")
	require.NoError(t, err)
	require.Len(t, ps, 2)

	active, err := svc.Active(context.Background(), "local")
	require.NoError(t, err)
	require.Equal(t, "openai", active.Provider)
}

func TestSeedProviders_UnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - provider: claude\n    api_key: k\n"), 0o600))
	svc := providers.New(store.NewMemory(), zap.NewNop())
	err := seedProviders(context.Background(), &config.Config{ProviderSeedFile: path}, svc, zap.NewNop())
	require.Error(t, err)
}

func TestChooseArchiveStore(t *testing.T) {
	fallback := archive.NewMemoryStore()
	called := false
	factory := func() (archive.Store, error) {
		called = true
		return nil, errors.New("unreachable")
	}

	got, err := chooseArchiveStore(&config.Config{}, fallback, "in-memory", factory, zap.NewNop())
	require.NoError(t, err)
	require.Same(t, fallback, got)
	require.False(t, called)

	cfg := &config.Config{Archive: config.ArchiveConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b"}}
	_, err = chooseArchiveStore(cfg, fallback, "in-memory", factory, zap.NewNop())
	require.Error(t, err)
	require.True(t, called)
}

func TestInitStores_Defaults(t *testing.T) {
	stores, err := initStores(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	defer stores.Close()

	require.IsType(t, &store.Memory{}, stores.store)
	require.IsType(t, &searchcache.LRU{}, stores.search)
	require.IsType(t, &archive.MemoryStore{}, stores.archive)
}
