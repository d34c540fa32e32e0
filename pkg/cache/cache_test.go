package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, "weekendfly"), mr
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	_, err := c.Get(ctx, "deals")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "deals", []byte(`[1,2,3]`), time.Minute))
	got, err := c.Get(ctx, "deals")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1,2,3]`), got)

	require.NoError(t, c.Delete(ctx, "deals"))
	_, err = c.Get(ctx, "deals")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(ctx, "deals", []byte(`{}`), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "deals")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManagerJSON(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	m := NewManager(c)

	type payload struct {
		Origin string  `json:"origin"`
		Price  float64 `json:"price"`
	}
	require.NoError(t, m.SetJSON(ctx, "cheapest", payload{Origin: "PSA", Price: 59.99}, time.Minute))

	var got payload
	require.NoError(t, m.GetJSON(ctx, "cheapest", &got))
	assert.Equal(t, payload{Origin: "PSA", Price: 59.99}, got)

	assert.ErrorIs(t, m.GetJSON(ctx, "missing", &got), ErrCacheMiss)
}
