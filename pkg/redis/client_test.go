package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	client := NewFromRedis(rdb)
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestClient_IncrWindow(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := client.IncrWindow(ctx, "rl:login:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
		assert.LessOrEqual(t, ttl, time.Minute)
		assert.Greater(t, ttl, time.Duration(0))
	}

	mini.FastForward(time.Minute + time.Second)

	count, _, err := client.IncrWindow(ctx, "rl:login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "window resets after expiry")
}

func TestClient_PingAndStats(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	_, _, err := client.IncrWindow(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, mini.Exists("k"))

	assert.Equal(t, true, client.Stats()["enabled"])
}

func TestClient_Disabled(t *testing.T) {
	client := &Client{}
	ctx := context.Background()

	assert.False(t, client.IsEnabled())
	assert.ErrorIs(t, client.Ping(ctx), ErrDisabled)
	_, _, err := client.IncrWindow(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, client.Close())
	assert.Equal(t, false, client.Stats()["enabled"])
}
