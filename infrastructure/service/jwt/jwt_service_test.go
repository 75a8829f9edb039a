package jwt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/flowauth/application/port/outbound"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/domain/valueobject"
	"github.com/fixora/flowauth/infrastructure/config"
	"github.com/fixora/flowauth/infrastructure/service/blacklist"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

type unavailableBlacklist struct{}

func (unavailableBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	return errors.New("store offline")
}

func (unavailableBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	return false, errors.New("store offline")
}

func (unavailableBlacklist) Remove(ctx context.Context, jti string) error {
	return errors.New("store offline")
}

func (unavailableBlacklist) AddIfAbsent(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	return false, errors.New("store offline")
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       testSecret,
		JWTIssuer:       testIssuer,
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

func newTestService(t *testing.T, bl outbound.TokenBlacklist, opts ...Option) *JWTService {
	t.Helper()
	s, err := NewJWTService(testConfig(), bl, logger.NewNopLogger(), opts...)
	require.NoError(t, err)
	return s
}

func TestJWTService(t *testing.T) {
	ctx := context.Background()
	bl := blacklist.NewMemoryBlacklist()
	service := newTestService(t, bl)

	t.Run("GenerateAndValidateAccessToken", func(t *testing.T) {
		token, err := service.GenerateAccessToken(ctx, "alice", 42, []string{"ROLE_USER", "leave:apply"})
		require.NoError(t, err)

		assert.True(t, service.ValidateToken(ctx, token))
		assert.False(t, service.IsRefreshToken(token))

		username, err := service.Username(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", username)

		id, err := service.UserID(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)

		assert.Equal(t, []string{"ROLE_USER", "leave:apply"}, service.Authorities(token))
		assert.NotEmpty(t, service.TokenID(token))
		assert.InDelta(t, 3600, service.RemainingSeconds(token), 2)
	})

	t.Run("GenerateRefreshToken", func(t *testing.T) {
		token, err := service.GenerateRefreshToken(ctx, "alice", 42)
		require.NoError(t, err)

		assert.True(t, service.IsRefreshToken(token))
		assert.True(t, service.ValidateToken(ctx, token))
		assert.Empty(t, service.Authorities(token))
		assert.InDelta(t, 7*24*3600, service.RemainingSeconds(token), 2)
	})

	t.Run("UniqueTokenIDs", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			token, err := service.GenerateAccessToken(ctx, "alice", 1, nil)
			require.NoError(t, err)
			jti := service.TokenID(token)
			assert.False(t, seen[jti])
			seen[jti] = true
		}
	})

	t.Run("AdditionalClaims", func(t *testing.T) {
		extra := valueobject.AdditionalClaims{TenantID: "t1", DeviceID: "d1", ClientType: "mobile"}
		token, err := service.GenerateAccessToken(ctx, "alice", 1, nil, outbound.WithAdditionalClaims(extra))
		require.NoError(t, err)

		claims, err := service.Validate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, extra, claims.Additional())
	})

	t.Run("RevokedTokenIsInvalid", func(t *testing.T) {
		token, err := service.GenerateAccessToken(ctx, "alice", 42, nil)
		require.NoError(t, err)

		require.NoError(t, service.Revoke(ctx, token))
		assert.False(t, service.ValidateToken(ctx, token))

		_, err = service.Validate(ctx, token)
		assert.ErrorIs(t, err, ErrTokenRevoked)

		ok, _ := bl.Contains(ctx, service.TokenID(token))
		assert.True(t, ok)
	})

	t.Run("RevokeUnparsable", func(t *testing.T) {
		err := service.Revoke(ctx, "garbage")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTServiceExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }
	service := newTestService(t, blacklist.NewMemoryBlacklist(), WithClock(clock))

	token, err := service.GenerateAccessToken(ctx, "alice", 1, nil)
	require.NoError(t, err)
	assert.True(t, service.ValidateToken(ctx, token))

	now = now.Add(time.Hour + time.Second)
	assert.False(t, service.ValidateToken(ctx, token))
	_, err = service.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, int64(0), service.RemainingSeconds(token))

	// identity stays readable after expiry
	username, err := service.Username(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestJWTServiceSoftAccessors(t *testing.T) {
	service := newTestService(t, blacklist.NewMemoryBlacklist())

	assert.False(t, service.IsRefreshToken("garbage"))
	assert.Equal(t, []string{}, service.Authorities("garbage"))
	assert.Equal(t, "", service.TokenID("garbage"))
	assert.Equal(t, int64(-1), service.RemainingSeconds("garbage"))

	_, err := service.Username("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = service.UserID("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTServiceBlacklistFailsClosed(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, unavailableBlacklist{})

	token, err := service.GenerateAccessToken(ctx, "alice", 1, nil)
	require.NoError(t, err)

	assert.False(t, service.ValidateToken(ctx, token))
	_, err = service.Validate(ctx, token)
	assert.True(t, apperr.IsKind(err, apperr.KindTokenUnverifiable))

	err = service.Revoke(ctx, token)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))

	err = service.Consume(ctx, token)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
}

func TestJWTServiceConsume(t *testing.T) {
	ctx := context.Background()
	bl := blacklist.NewMemoryBlacklist()
	service := newTestService(t, bl)

	token, err := service.GenerateRefreshToken(ctx, "alice", 1)
	require.NoError(t, err)

	require.NoError(t, service.Consume(ctx, token))
	assert.True(t, apperr.IsKind(service.Consume(ctx, token), apperr.KindTokenRevoked), "second redemption loses")

	_, err = service.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked, "a consumed token is blacklisted")

	assert.True(t, apperr.IsKind(service.Consume(ctx, "garbage"), apperr.KindInvalidToken))

	revoked, err := service.GenerateRefreshToken(ctx, "alice", 1)
	require.NoError(t, err)
	require.NoError(t, service.Revoke(ctx, revoked))
	assert.True(t, apperr.IsKind(service.Consume(ctx, revoked), apperr.KindTokenRevoked))
}

func TestNewJWTServiceErrors(t *testing.T) {
	_, err := NewJWTService(testConfig(), nil, logger.NewNopLogger())
	assert.Error(t, err)

	cfg := testConfig()
	cfg.JWTSecret = "short"
	_, err = NewJWTService(cfg, blacklist.NewMemoryBlacklist(), logger.NewNopLogger())
	assert.ErrorIs(t, err, config.ErrWeakJWTSecret)
}
