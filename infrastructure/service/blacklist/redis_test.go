package blacklist

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisBlacklist(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	b := NewRedisBlacklist(client, "")

	t.Run("add sets ttl to remaining lifetime", func(t *testing.T) {
		require.NoError(t, b.Add(ctx, "jti-1", time.Now().Add(30*time.Minute)))

		ok, err := b.Contains(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, ok)

		ttl := mr.TTL(defaultKeyPrefix + "jti-1")
		assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 2)
	})

	t.Run("entry disappears after expiry", func(t *testing.T) {
		require.NoError(t, b.Add(ctx, "jti-2", time.Now().Add(time.Minute)))
		mr.FastForward(2 * time.Minute)

		ok, err := b.Contains(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("already expired tokens are not stored", func(t *testing.T) {
		require.NoError(t, b.Add(ctx, "jti-3", time.Now().Add(-time.Second)))
		assert.False(t, mr.Exists(defaultKeyPrefix+"jti-3"))
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, b.Add(ctx, "jti-4", time.Now().Add(time.Hour)))
		require.NoError(t, b.Remove(ctx, "jti-4"))
		ok, _ := b.Contains(ctx, "jti-4")
		assert.False(t, ok)
	})

	t.Run("empty id", func(t *testing.T) {
		assert.ErrorIs(t, b.Add(ctx, "", time.Now().Add(time.Hour)), ErrEmptyTokenID)
	})
}

func TestRedisBlacklistAddIfAbsent(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	b := NewRedisBlacklist(client, "")

	won, err := b.AddIfAbsent(ctx, "jti-1", time.Now().Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, won)
	assert.InDelta(t, (10 * time.Minute).Seconds(), mr.TTL(defaultKeyPrefix+"jti-1").Seconds(), 2)

	won, err = b.AddIfAbsent(ctx, "jti-1", time.Now().Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, won, "an existing key is never overwritten")

	won, err = b.AddIfAbsent(ctx, "jti-old", time.Now().Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, won, "expired tokens cannot be redeemed")
	assert.False(t, mr.Exists(defaultKeyPrefix+"jti-old"))

	_, err = b.AddIfAbsent(ctx, "", time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrEmptyTokenID)
}

func TestRedisBlacklistUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	b := NewRedisBlacklist(client, "test:")
	mr.Close()

	_, err = b.Contains(context.Background(), "jti")
	assert.Error(t, err)
	_, err = b.AddIfAbsent(context.Background(), "jti", time.Now().Add(time.Minute))
	assert.Error(t, err)
}
