package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "auth:blacklist:"

// RedisBlacklist shares revoked ids across instances. Keys carry a TTL equal
// to the remaining token lifetime, so no sweep is needed.
type RedisBlacklist struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisBlacklist(client *redis.Client, prefix string) *RedisBlacklist {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisBlacklist{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (b *RedisBlacklist) key(jti string) string {
	return b.prefix + jti
}

func (b *RedisBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return ErrEmptyTokenID
	}
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		// already expired, validation rejects it on expiry alone
		return nil
	}
	if err := b.client.Set(ctx, b.key(jti), expiresAt.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token in redis: %w", err)
	}
	return nil
}

// AddIfAbsent uses SET NX. A token that has already expired is never
// inserted and reports false.
func (b *RedisBlacklist) AddIfAbsent(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if jti == "" {
		return false, ErrEmptyTokenID
	}
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return false, nil
	}
	ok, err := b.client.SetNX(ctx, b.key(jti), expiresAt.UnixMilli(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to blacklist token in redis: %w", err)
	}
	return ok, nil
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check redis blacklist: %w", err)
	}
	return n > 0, nil
}

func (b *RedisBlacklist) Remove(ctx context.Context, jti string) error {
	if err := b.client.Del(ctx, b.key(jti)).Err(); err != nil {
		return fmt.Errorf("failed to remove token from redis blacklist: %w", err)
	}
	return nil
}
