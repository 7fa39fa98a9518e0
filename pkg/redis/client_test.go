package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furnihub/marketplace-backend/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{Address: srv.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestSetNXStoresOnce(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)
	key := client.IdempotencyKey("7|POST|/api/v1/checkout", "abc")

	ok, err := client.SetNX(ctx, key, "first", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, key, "second", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first", got)
	assert.Equal(t, time.Hour, srv.TTL(key))

	srv.FastForward(2 * time.Hour)
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestGetMissingKeyAndPing(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)

	_, err := client.Get(ctx, client.IdempotencyKey("scope", "missing"))
	assert.ErrorIs(t, err, redis.Nil)

	require.NoError(t, srv.Set("furnihub:raw", "v"))
	got, err := client.Get(ctx, "furnihub:raw")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	require.NoError(t, client.Ping(ctx))
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := New(context.Background(), config.RedisConfig{Address: addr, DialTimeout: 100 * time.Millisecond}, nil)
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:secret@cache:6380/2", PoolSize: 20})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "furnihub:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "furnihub:idempotency:id", client.IdempotencyKey(" ", "id"))
}

func TestUninitializedClient(t *testing.T) {
	ctx := context.Background()
	client := &Client{}
	_, err := client.Get(ctx, "k")
	assert.Error(t, err)
	_, err = client.SetNX(ctx, "k", "v", time.Minute)
	assert.Error(t, err)
	assert.Error(t, client.Ping(ctx))
	assert.NoError(t, client.Close())
}
