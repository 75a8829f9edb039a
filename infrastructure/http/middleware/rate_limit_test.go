package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/infrastructure/service/logger"
	"github.com/fixora/flowauth/infrastructure/service/ratelimit"
)

type failingCounter struct{}

func (failingCounter) Increment(ctx context.Context, subject string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

// countingCounter records how many increments reached the store.
type countingCounter struct {
	outbound.RateCounter
	calls int
}

func (c *countingCounter) Increment(ctx context.Context, subject string, window time.Duration) (int64, time.Duration, error) {
	c.calls++
	return c.RateCounter.Increment(ctx, subject, window)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func newLimiter(limit int, counter outbound.RateCounter) inbound.RateLimitService {
	return ratelimit.NewRateLimitService(ratelimit.RateLimitConfig{
		Enabled: true,
		Limit:   limit,
		Window:  time.Minute,
	}, counter, logger.NewNopLogger())
}

func TestRateLimitMiddleware(t *testing.T) {
	tokens := newTokenService(t)
	token, err := tokens.GenerateAccessToken(context.Background(), "alice", 1, nil)
	require.NoError(t, err)

	counter := &countingCounter{RateCounter: ratelimit.NewMemoryCounter(100, time.Minute)}
	h := NewRateLimitMiddleware(newLimiter(3, counter), tokens, testRules, logger.NewNopLogger()).RateLimit(okHandler())

	for i := 1; i <= 3; i++ {
		rec := do(h, http.MethodGet, "/api/tasks", "Bearer "+token)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "3", rec.Header().Get(HeaderRateLimitLimit))
		assert.Equal(t, []string{"2", "1", "0"}[i-1], rec.Header().Get(HeaderRateLimitRemaining))
		assert.NotEmpty(t, rec.Header().Get(HeaderRateLimitReset))
	}

	rec := do(h, http.MethodGet, "/api/tasks", "Bearer "+token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "rate_limit_exceeded", errorCode(t, rec).Error)

	t.Run("whitelisted paths are not counted", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/api/auth/login", "Bearer "+token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get(HeaderRateLimitLimit))
	})

	t.Run("anonymous and unreadable tokens fall through", func(t *testing.T) {
		before := counter.calls
		assert.Equal(t, http.StatusNoContent, do(h, http.MethodGet, "/api/tasks", "").Code)
		assert.Equal(t, http.StatusNoContent, do(h, http.MethodGet, "/api/tasks", "Bearer junk").Code)
		assert.Equal(t, before, counter.calls)
	})
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	tokens := newTokenService(t)
	token, err := tokens.GenerateAccessToken(context.Background(), "alice", 1, nil)
	require.NoError(t, err)

	h := NewRateLimitMiddleware(newLimiter(1, failingCounter{}), tokens, testRules, logger.NewNopLogger()).RateLimit(okHandler())
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, do(h, http.MethodGet, "/api/tasks", "Bearer "+token).Code)
	}
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	tokens := newTokenService(t)
	token, err := tokens.GenerateAccessToken(context.Background(), "alice", 1, nil)
	require.NoError(t, err)

	h := NewRateLimitMiddleware(ratelimit.NewNoopRateLimitService(), tokens, testRules, logger.NewNopLogger()).RateLimit(okHandler())
	rec := do(h, http.MethodGet, "/api/tasks", "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderRateLimitLimit))
}
