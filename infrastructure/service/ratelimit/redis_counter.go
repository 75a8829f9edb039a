package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "auth:ratelimit:"

// incrementScript makes INCR and the first-hit PEXPIRE one atomic step.
var incrementScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {current, redis.call('PTTL', KEYS[1])}
`)

// RedisCounter shares counters between instances.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCounter{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisCounter) Increment(ctx context.Context, subject string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrementScript.Run(ctx, c.client, []string{c.prefix + subject}, window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}
	count, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit count: %v", values[0])
	}
	pttl, _ := values[1].(int64)
	if pttl < 0 {
		pttl = window.Milliseconds()
	}
	return count, time.Duration(pttl) * time.Millisecond, nil
}
