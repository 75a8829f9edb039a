package outbound

import (
	"context"
	"time"
)

// RateCounter atomically creates-or-increments a per-subject counter that
// lives for one window.
type RateCounter interface {
	// Increment returns the count after this call and the time left until
	// the window resets.
	Increment(ctx context.Context, subject string, window time.Duration) (int64, time.Duration, error)
}
