package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fixora/flowauth/domain/entity"
)

var ErrEmptyTokenID = errors.New("token id cannot be empty")

// RevokedTokenStore is a TokenBlacklist shared by every instance that uses
// the same database.
type RevokedTokenStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewRevokedTokenStore(db *sql.DB) *RevokedTokenStore {
	return &RevokedTokenStore{
		db:  db,
		now: time.Now,
	}
}

func (s *RevokedTokenStore) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return ErrEmptyTokenID
	}
	token := entity.NewRevokedToken(jti, expiresAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO UPDATE SET expires_at = GREATEST(revoked_tokens.expires_at, EXCLUDED.expires_at)
	`, token.JTI, token.ExpiresAt, token.RevokedAt)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *RevokedTokenStore) AddIfAbsent(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if jti == "" {
		return false, ErrEmptyTokenID
	}
	token := entity.NewRevokedToken(jti, expiresAt)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING
	`, token.JTI, token.ExpiresAt, token.RevokedAt)
	if err != nil {
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RevokedTokenStore) Contains(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return exists, nil
}

func (s *RevokedTokenStore) Remove(ctx context.Context, jti string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE jti = $1`, jti); err != nil {
		return fmt.Errorf("failed to remove revoked token: %w", err)
	}
	return nil
}

// Sweep deletes entries that have expired on their own.
func (s *RevokedTokenStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
