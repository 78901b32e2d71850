package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/lyzr/raffle/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(logger.NewWithWriter(io.Discard, "error", "json"))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCacheGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	c := newTestCache(t)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	now = now.Add(time.Second)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	c.sweep()
	assert.Equal(t, 0, c.Stats()["entries"])
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
