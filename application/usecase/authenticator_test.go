package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/flowauth/domain/entity"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/infrastructure/adapter/memory"
	"github.com/fixora/flowauth/infrastructure/service/password"
)

type brokenHasher struct{}

func (brokenHasher) HashPassword(string) (string, error) { return "", errors.New("broken") }
func (brokenHasher) VerifyPassword(string, string) (bool, error) {
	return false, errors.New("broken")
}

func TestCredentialAuthenticator(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	hasher := password.NewBcryptPasswordService(4)
	hash, err := hasher.HashPassword("secret")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, entity.NewUser("alice", hash), nil))

	auth := NewCredentialAuthenticator(repo, hasher)

	user, err := auth.Authenticate(ctx, "  alice ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = auth.Authenticate(ctx, "", "secret")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = auth.Authenticate(ctx, "bob", "secret")
	assert.True(t, apperr.IsKind(err, apperr.KindUserNotFound))

	_, err = NewCredentialAuthenticator(repo, brokenHasher{}).Authenticate(ctx, "alice", "secret")
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
}
