package outbound

import (
	"context"
	"time"
)

// TokenBlacklist stores revoked token ids until the tokens expire.
type TokenBlacklist interface {
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	// AddIfAbsent blacklists jti only when it is not present yet and reports
	// whether this call inserted it. Concurrent callers see exactly one true.
	AddIfAbsent(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
	Contains(ctx context.Context, jti string) (bool, error)
	Remove(ctx context.Context, jti string) error
}

// Sweeper is implemented by blacklists that need explicit eviction of
// expired entries.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
