// Package searchcache memoizes business-search results per provider and
// normalized query.
package searchcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"clonescout/internal/analysis"
)

const DefaultTTL = 10 * time.Minute

type Cache interface {
	// Get reports ok=false on a miss.
	Get(ctx context.Context, key string) (*analysis.SearchResult, bool, error)
	Set(ctx context.Context, key string, v *analysis.SearchResult) error
}

// Key folds case and whitespace so equivalent queries share an entry.
func Key(provider, query string) string {
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return strings.ToLower(strings.TrimSpace(provider)) + ":" + q
}

type LRU struct {
	lru *expirable.LRU[string, *analysis.SearchResult]
}

func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRU{lru: expirable.NewLRU[string, *analysis.SearchResult](size, nil, ttl)}
}

func (c *LRU) Get(_ context.Context, key string) (*analysis.SearchResult, bool, error) {
	v, ok := c.lru.Get(key)
	return v, ok, nil
}

func (c *LRU) Set(_ context.Context, key string, v *analysis.SearchResult) error {
	c.lru.Add(key, v)
	return nil
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl, prefix: "clonescout:search:"}
}

// NewRedisFromURL parses a redis:// URL and checks the connection.
func NewRedisFromURL(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedis(client, ttl), nil
}

func (c *Redis) Get(ctx context.Context, key string) (*analysis.SearchResult, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out analysis.SearchResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, v *analysis.SearchResult) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}

func (c *Redis) Close() error { return c.client.Close() }
