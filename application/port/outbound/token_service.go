package outbound

import (
	"context"
	"time"

	"github.com/fixora/flowauth/domain/valueobject"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims is the decoded payload of an access or refresh token.
type TokenClaims struct {
	ID          string
	Subject     string
	UserID      int64
	Issuer      string
	Kind        TokenKind
	Authorities []string
	TenantID    string
	DeviceID    string
	ClientType  string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// IsExpired reports whether the token must no longer be accepted at now.
func (c *TokenClaims) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Additional returns the optional per-request claims.
func (c *TokenClaims) Additional() valueobject.AdditionalClaims {
	return valueobject.AdditionalClaims{
		TenantID:   c.TenantID,
		DeviceID:   c.DeviceID,
		ClientType: c.ClientType,
	}
}

// TokenOption customises claims before a token is signed.
type TokenOption func(*TokenClaims)

func WithAdditionalClaims(extra valueobject.AdditionalClaims) TokenOption {
	return func(c *TokenClaims) {
		c.TenantID = extra.TenantID
		c.DeviceID = extra.DeviceID
		c.ClientType = extra.ClientType
	}
}

type TokenService interface {
	GenerateAccessToken(ctx context.Context, username string, userID int64, authorities []string, opts ...TokenOption) (string, error)
	GenerateRefreshToken(ctx context.Context, username string, userID int64, opts ...TokenOption) (string, error)

	// Validate parses the token and checks expiry and revocation.
	Validate(ctx context.Context, token string) (*TokenClaims, error)
	ValidateToken(ctx context.Context, token string) bool
	IsRefreshToken(token string) bool
	Revoke(ctx context.Context, token string) error
	// Consume revokes the token atomically. Only the first caller for a
	// token succeeds; later callers get a TokenRevoked error.
	Consume(ctx context.Context, token string) error

	Username(token string) (string, error)
	UserID(token string) (int64, error)
	Authorities(token string) []string
	TokenID(token string) string
	RemainingSeconds(token string) int64

	AccessTokenTTL() time.Duration
}
