package inbound

import (
	"context"
)

// RateLimitDecision is the outcome of counting one request for a subject.
type RateLimitDecision struct {
	Count        int64
	Limit        int
	Remaining    int
	ResetSeconds int
}

// RateLimitService counts requests per subject within a fixed window.
// Implemented by infrastructure/service/ratelimit
type RateLimitService interface {
	// Check increments the subject's counter. It returns a RateLimitExceeded
	// error together with the decision once the limit is passed.
	Check(ctx context.Context, subject string) (RateLimitDecision, error)
	Enabled() bool
}
