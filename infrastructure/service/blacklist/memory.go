package blacklist

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrEmptyTokenID is returned when a blacklist operation gets no jti.
var ErrEmptyTokenID = errors.New("token id cannot be empty")

// sweepBatchSize bounds how long Sweep holds the write lock at once.
const sweepBatchSize = 512

// MemoryBlacklist keeps revoked token ids in process memory. Entries do not
// span server instances; use the redis or postgres store for that.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]int64 // jti -> expiresAt in epoch millis
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries: make(map[string]int64),
		now:     time.Now,
	}
}

func (b *MemoryBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return ErrEmptyTokenID
	}
	b.mu.Lock()
	b.entries[jti] = expiresAt.UnixMilli()
	b.mu.Unlock()
	return nil
}

func (b *MemoryBlacklist) AddIfAbsent(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if jti == "" {
		return false, ErrEmptyTokenID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[jti]; ok {
		return false, nil
	}
	b.entries[jti] = expiresAt.UnixMilli()
	return true, nil
}

func (b *MemoryBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	b.mu.RLock()
	_, ok := b.entries[jti]
	b.mu.RUnlock()
	return ok, nil
}

func (b *MemoryBlacklist) Remove(ctx context.Context, jti string) error {
	b.mu.Lock()
	delete(b.entries, jti)
	b.mu.Unlock()
	return nil
}

// Sweep removes entries whose expiry is before now and returns how many
// were removed. Deletion happens in batches so Contains is never blocked
// for long.
func (b *MemoryBlacklist) Sweep(ctx context.Context) (int, error) {
	cutoff := b.now().UnixMilli()

	b.mu.RLock()
	expired := make([]string, 0)
	for jti, exp := range b.entries {
		if exp < cutoff {
			expired = append(expired, jti)
		}
	}
	b.mu.RUnlock()

	removed := 0
	for start := 0; start < len(expired); start += sweepBatchSize {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		end := start + sweepBatchSize
		if end > len(expired) {
			end = len(expired)
		}

		b.mu.Lock()
		for _, jti := range expired[start:end] {
			// re-check: the entry may have been re-added with a later expiry
			if exp, ok := b.entries[jti]; ok && exp < cutoff {
				delete(b.entries, jti)
				removed++
			}
		}
		b.mu.Unlock()
	}
	return removed, nil
}

func (b *MemoryBlacklist) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *MemoryBlacklist) Clear() {
	b.mu.Lock()
	b.entries = make(map[string]int64)
	b.mu.Unlock()
}
