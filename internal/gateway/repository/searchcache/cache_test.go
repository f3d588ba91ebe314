package searchcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"clonescout/internal/analysis"
)

func sample() *analysis.SearchResult {
	return &analysis.SearchResult{Businesses: []analysis.Business{{Name: "Acme", URL: "https://acme.io", EstimatedScore: 7}}}
}

func TestKey_Normalizes(t *testing.T) {
	require.Equal(t, Key("OpenAI", "  Meal   KITS "), Key("openai", "meal kits"))
	require.NotEqual(t, Key("openai", "meal kits"), Key("gemini", "meal kits"))
}

func TestRedis_RoundTripAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	c := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", sample()))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sample(), got)
	require.Equal(t, time.Minute, mr.TTL("clonescout:search:k"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRedisFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisFromURL(context.Background(), "redis://"+mr.Addr(), 0)
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, c.ttl)
	require.NoError(t, c.Close())

	_, err = NewRedisFromURL(context.Background(), "not a url", 0)
	require.Error(t, err)
}

func TestLRU(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, time.Minute)
	require.NoError(t, c.Set(ctx, "a", sample()))
	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Acme", got.Businesses[0].Name)

	_, ok, _ = c.Get(ctx, "missing")
	require.False(t, ok)
}
