package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "cart")
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	key := c.GenerateKey("snapshot", "abc")
	assert.Equal(t, "cart:snapshot:abc", key)

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got, "missing keys read as empty")

	require.NoError(t, c.Set(ctx, key, `{"v":1}`, time.Minute))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, got)

	mr.FastForward(2 * time.Minute)
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.Set(ctx, key, "x", 0))
	require.NoError(t, c.Delete(ctx, key))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisCache_PingFailsWhenDown(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "cart")
	mr.Close()

	assert.Error(t, c.Ping(context.Background()))
}

func TestMemoryCache(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache("cart").(*memoryCache)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	key := c.GenerateKey("snapshot", "abc")
	require.NoError(t, c.Set(ctx, key, []byte("payload"), time.Minute))
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	now = now.Add(time.Minute)
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.Set(ctx, key, "forever", 0))
	now = now.Add(24 * time.Hour)
	got, _ = c.Get(ctx, key)
	assert.Equal(t, "forever", got)

	require.NoError(t, c.Delete(ctx, key))
	got, _ = c.Get(ctx, key)
	assert.Empty(t, got)
	assert.NoError(t, c.Ping(ctx))
}
