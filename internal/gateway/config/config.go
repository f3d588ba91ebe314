package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"clonescout/internal/gateway/repository/searchcache"
	"clonescout/internal/structured"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL    string
	RedisURL       string
	SearchCacheTTL time.Duration

	Archive          ArchiveConfig
	ProviderSeedFile string

	PipelineMaxAttempts int
	PipelineBackoff     time.Duration
}

type ArchiveConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CanUseS3 reports whether enough is configured to reach an S3 endpoint.
func (c ArchiveConfig) CanUseS3() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != ""
}

func (c *Config) IsLocal() bool { return strings.EqualFold(c.Env, "local") }

// Load reads .env if present, then flags and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	ttl, err := durationEnv("SEARCH_CACHE_TTL", searchcache.DefaultTTL)
	if err != nil {
		return nil, err
	}
	backoff, err := durationEnv("PIPELINE_BACKOFF", structured.DefaultBackoff)
	if err != nil {
		return nil, err
	}
	attempts := structured.DefaultMaxAttempts
	if raw := strings.TrimSpace(os.Getenv("PIPELINE_MAX_ATTEMPTS")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("PIPELINE_MAX_ATTEMPTS must be a positive integer, got %q", raw)
		}
		attempts = n
	}

	return &Config{
		Port:                *port,
		Env:                 firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local"),
		LogLevel:            firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "info"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:            strings.TrimSpace(os.Getenv("REDIS_URL")),
		SearchCacheTTL:      ttl,
		Archive:             loadArchiveConfig(),
		ProviderSeedFile:    strings.TrimSpace(os.Getenv("PROVIDER_SEED_FILE")),
		PipelineMaxAttempts: attempts,
		PipelineBackoff:     backoff,
	}, nil
}

func loadArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Endpoint:  strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")), "clonescout-archive"),
		UseSSL:    resolveUseSSL(),
	}
}

func resolveUseSSL() bool {
	raw := strings.TrimSpace(os.Getenv("ARCHIVE_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration, got %q", key, raw)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
