package message

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	store := NewRedisStore(client)
	require.NoError(t, store.Clear(ctx))

	now := time.Now()
	window := time.Hour

	ok, err := store.Claim(ctx, "c1_14d", "abc", window, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "c1_14d", "abc", window, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Claim(ctx, "c1_14d", "abc", window, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Release(ctx, "c1_14d", "abc"))
	ok, err = store.Claim(ctx, "c1_14d", "abc", window, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
}
