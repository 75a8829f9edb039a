package ratelimit

import (
	"context"
	"time"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

// RateLimitConfig configuration untuk rate limiting
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

type rateLimitService struct {
	counter outbound.RateCounter
	logger  logger.Logger
	limit   int
	window  time.Duration
}

// NewRateLimitService membuat instance baru dari RateLimitService
func NewRateLimitService(config RateLimitConfig, counter outbound.RateCounter, log logger.Logger) inbound.RateLimitService {
	if !config.Enabled || counter == nil {
		log.Info(context.Background(), "Rate limiting disabled", nil)
		return NewNoopRateLimitService()
	}

	log.Info(context.Background(), "Rate limiting service initialized", map[string]interface{}{
		"limit":  config.Limit,
		"window": config.Window.String(),
	})

	return &rateLimitService{
		counter: counter,
		logger:  log,
		limit:   config.Limit,
		window:  config.Window,
	}
}

func (s *rateLimitService) Enabled() bool {
	return true
}

// Check counts one request. Store errors are returned as-is so callers can
// fail open; exceeding the limit returns a RateLimitExceeded error.
func (s *rateLimitService) Check(ctx context.Context, subject string) (inbound.RateLimitDecision, error) {
	windowSeconds := int(s.window / time.Second)
	decision := inbound.RateLimitDecision{
		Limit:        s.limit,
		Remaining:    s.limit,
		ResetSeconds: windowSeconds,
	}

	count, resetIn, err := s.counter.Increment(ctx, subject, s.window)
	if err != nil {
		return decision, err
	}

	decision.Count = count
	decision.Remaining = s.limit - int(count)
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if reset := int((resetIn + time.Second - 1) / time.Second); reset > 0 {
		decision.ResetSeconds = reset
	}

	if count > int64(s.limit) {
		return decision, apperr.ErrRateLimitExceeded(subject, s.limit, windowSeconds)
	}

	s.logger.Debug(ctx, "Rate limit check", map[string]interface{}{
		"subject": subject,
		"count":   count,
		"limit":   s.limit,
	})
	return decision, nil
}

type noopRateLimitService struct{}

// NewNoopRateLimitService returns a service that never limits.
func NewNoopRateLimitService() inbound.RateLimitService {
	return &noopRateLimitService{}
}

func (s *noopRateLimitService) Enabled() bool {
	return false
}

func (s *noopRateLimitService) Check(ctx context.Context, subject string) (inbound.RateLimitDecision, error) {
	return inbound.RateLimitDecision{}, nil
}
