package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fixora/flowauth/application/port/outbound"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/infrastructure/config"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

// Sentinels for errors.Is; they match by kind, not identity.
var (
	ErrTokenMalformed        = apperr.ErrTokenMalformed(nil)
	ErrTokenSignatureInvalid = apperr.ErrTokenSignatureInvalid(nil)
	ErrTokenExpired          = apperr.ErrTokenExpired()
	ErrTokenRevoked          = apperr.ErrTokenRevoked()
	ErrInvalidToken          = apperr.ErrInvalidToken(nil)
)

type JWTService struct {
	codec           *Codec
	blacklist       outbound.TokenBlacklist
	logger          logger.Logger
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

type Option func(*JWTService)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
		s.codec.now = now
	}
}

func NewJWTService(cfg *config.Config, blacklist outbound.TokenBlacklist, log logger.Logger, opts ...Option) (*JWTService, error) {
	if blacklist == nil {
		return nil, fmt.Errorf("token blacklist is required")
	}
	codec, err := NewCodec(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}

	service := &JWTService{
		codec:           codec,
		blacklist:       blacklist,
		logger:          log,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

func (s *JWTService) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}

func (s *JWTService) GenerateAccessToken(ctx context.Context, username string, userID int64, authorities []string, opts ...outbound.TokenOption) (string, error) {
	claims := outbound.TokenClaims{
		ID:          uuid.NewString(),
		Subject:     username,
		UserID:      userID,
		Kind:        outbound.TokenKindAccess,
		Authorities: authorities,
	}
	for _, opt := range opts {
		opt(&claims)
	}
	return s.codec.Issue(claims, s.accessTokenTTL)
}

func (s *JWTService) GenerateRefreshToken(ctx context.Context, username string, userID int64, opts ...outbound.TokenOption) (string, error) {
	claims := outbound.TokenClaims{
		ID:      uuid.NewString(),
		Subject: username,
		UserID:  userID,
		Kind:    outbound.TokenKindRefresh,
	}
	for _, opt := range opts {
		opt(&claims)
	}
	claims.Authorities = nil
	return s.codec.Issue(claims, s.refreshTokenTTL)
}

// Validate runs the signature, expiry and revocation checks in that order.
// A blacklist lookup failure rejects the token.
func (s *JWTService) Validate(ctx context.Context, token string) (*outbound.TokenClaims, error) {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return nil, err
	}

	if claims.IsExpired(s.now()) {
		return nil, apperr.ErrTokenExpired()
	}

	revoked, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		s.logger.Error(ctx, "Blacklist lookup failed, rejecting token", err, map[string]interface{}{
			"jti": claims.ID,
		})
		return nil, apperr.ErrTokenUnverifiable(err)
	}
	if revoked {
		return nil, apperr.ErrTokenRevoked()
	}

	return claims, nil
}

func (s *JWTService) ValidateToken(ctx context.Context, token string) bool {
	_, err := s.Validate(ctx, token)
	return err == nil
}

func (s *JWTService) IsRefreshToken(token string) bool {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return false
	}
	return claims.Kind == outbound.TokenKindRefresh
}

// Revoke blacklists the token until its own expiry. Expired tokens are
// accepted so that a late logout still succeeds.
func (s *JWTService) Revoke(ctx context.Context, token string) error {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return apperr.ErrInvalidToken(err)
	}
	if err := s.blacklist.Add(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return apperr.ErrInternal(fmt.Errorf("failed to blacklist token %s: %w", claims.ID, err))
	}
	return nil
}

func (s *JWTService) Consume(ctx context.Context, token string) error {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return apperr.ErrInvalidToken(err)
	}
	won, err := s.blacklist.AddIfAbsent(ctx, claims.ID, claims.ExpiresAt)
	if err != nil {
		return apperr.ErrInternal(fmt.Errorf("failed to consume token %s: %w", claims.ID, err))
	}
	if !won {
		return apperr.ErrTokenRevoked()
	}
	return nil
}

func (s *JWTService) Username(token string) (string, error) {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return "", apperr.ErrInvalidToken(err)
	}
	return claims.Subject, nil
}

func (s *JWTService) UserID(token string) (int64, error) {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return 0, apperr.ErrInvalidToken(err)
	}
	return claims.UserID, nil
}

// Authorities returns an empty slice for unparsable tokens.
func (s *JWTService) Authorities(token string) []string {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return []string{}
	}
	return claims.Authorities
}

// TokenID returns "" for unparsable tokens.
func (s *JWTService) TokenID(token string) string {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return ""
	}
	return claims.ID
}

// RemainingSeconds returns -1 for unparsable tokens and 0 once expired.
func (s *JWTService) RemainingSeconds(token string) int64 {
	claims, err := s.codec.Parse(token)
	if err != nil {
		return -1
	}
	remaining := int64(claims.ExpiresAt.Sub(s.now()) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}
