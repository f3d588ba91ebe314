package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"clonescout/internal/gateway/config"
	"clonescout/internal/gateway/repository/archive"
	"clonescout/internal/gateway/repository/searchcache"
	"clonescout/internal/gateway/repository/store"
)

type gatewayStores struct {
	store   store.Store
	archive archive.Store
	search  searchcache.Cache
	closers []func() error
}

func (s *gatewayStores) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func initStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gatewayStores, error) {
	out := &gatewayStores{}

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pg, err := store.NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info("analysis store: postgres")
		out.store = pg
	} else {
		log.Info("analysis store: in-memory")
		out.store = store.NewMemory()
	}
	out.closers = append(out.closers, out.store.Close)

	if url := strings.TrimSpace(cfg.RedisURL); url != "" {
		rc, err := searchcache.NewRedisFromURL(ctx, url, cfg.SearchCacheTTL)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("failed to connect search cache: %w", err)
		}
		log.Info("search cache: redis", zap.Duration("ttl", cfg.SearchCacheTTL))
		out.search = rc
		out.closers = append(out.closers, rc.Close)
	} else {
		log.Info("search cache: in-process lru", zap.Duration("ttl", cfg.SearchCacheTTL))
		out.search = searchcache.NewLRU(0, cfg.SearchCacheTTL)
	}

	ar, err := chooseArchiveStore(cfg, archive.NewMemoryStore(), "in-memory", newArchiveS3StoreFactory(cfg, log), log)
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	out.archive = ar
	return out, nil
}

func newArchiveS3StoreFactory(cfg *config.Config, log *zap.Logger) func() (archive.Store, error) {
	return func() (archive.Store, error) {
		s3Cfg := archive.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		}
		s3Store, err := archive.NewS3Store(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive s3 store: %w", err)
		}
		log.Info("archive store: s3", zap.String("bucket", s3Cfg.Bucket), zap.String("endpoint", s3Cfg.Endpoint))
		return s3Store, nil
	}
}

func chooseArchiveStore(
	cfg *config.Config,
	fallback archive.Store,
	fallbackLabel string,
	s3Factory func() (archive.Store, error),
	log *zap.Logger,
) (archive.Store, error) {
	if cfg.Archive.CanUseS3() {
		return s3Factory()
	}
	if cfg.Archive.Endpoint != "" {
		log.Warn("archive store: s3 config incomplete, using fallback", zap.String("fallback", fallbackLabel))
	} else {
		log.Info("archive store: " + fallbackLabel)
	}
	if fallback == nil {
		return nil, fmt.Errorf("archive fallback store is nil")
	}
	return fallback, nil
}
