package entity

import (
	"time"
)

// RevokedToken is a blacklisted token id. It only needs to be kept until the
// token would have expired on its own.
type RevokedToken struct {
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
	RevokedAt time.Time `json:"revoked_at"`
}

func NewRevokedToken(jti string, expiresAt time.Time) *RevokedToken {
	return &RevokedToken{
		JTI:       jti,
		ExpiresAt: expiresAt,
		RevokedAt: time.Now(),
	}
}
