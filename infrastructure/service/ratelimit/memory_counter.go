package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrCounterFull is returned when a new subject would exceed the cache size.
var ErrCounterFull = errors.New("rate limit cache is full")

const incrementAttempts = 3

// MemoryCounter keeps counters in a go-cache TTL cache local to the process.
type MemoryCounter struct {
	cache   *gocache.Cache
	maxSize int
}

// NewMemoryCounter creates a counter whose janitor runs every cleanupInterval.
// maxSize <= 0 disables the size guard.
func NewMemoryCounter(maxSize int, cleanupInterval time.Duration) *MemoryCounter {
	return &MemoryCounter{
		cache:   gocache.New(gocache.NoExpiration, cleanupInterval),
		maxSize: maxSize,
	}
}

func (c *MemoryCounter) Increment(ctx context.Context, subject string, window time.Duration) (int64, time.Duration, error) {
	for attempt := 0; attempt < incrementAttempts; attempt++ {
		// create the window on first hit; an existing counter makes Add fail
		if err := c.cache.Add(subject, int64(0), window); err == nil {
			if c.maxSize > 0 && c.cache.ItemCount() > c.maxSize {
				c.cache.Delete(subject)
				return 0, 0, ErrCounterFull
			}
		}

		count, err := c.cache.IncrementInt64(subject, 1)
		if err != nil {
			// the window expired between Add and Increment
			continue
		}

		_, expiresAt, found := c.cache.GetWithExpiration(subject)
		if !found {
			return count, window, nil
		}
		return count, time.Until(expiresAt), nil
	}
	return 0, 0, fmt.Errorf("failed to increment rate counter for %s", subject)
}

// size returns the number of tracked subjects, including expired ones not
// yet collected.
func (c *MemoryCounter) size() int {
	return c.cache.ItemCount()
}
