package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/domain/entity"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/domain/valueobject"
)

// CredentialAuthenticator checks passwords against the user store.
type CredentialAuthenticator struct {
	userRepo        outbound.UserRepository
	passwordService outbound.PasswordService
}

func NewCredentialAuthenticator(userRepo outbound.UserRepository, passwordService outbound.PasswordService) *CredentialAuthenticator {
	return &CredentialAuthenticator{
		userRepo:        userRepo,
		passwordService: passwordService,
	}
}

func (a *CredentialAuthenticator) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	credentials, err := valueobject.NewCredentials(username, password)
	if err != nil {
		return nil, apperr.ErrValidation(err.Error())
	}

	user, err := a.userRepo.FindByUsername(ctx, credentials.Username())
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, apperr.ErrUserNotFound()
		}
		return nil, apperr.ErrInternal(fmt.Errorf("failed to find user: %w", err))
	}

	ok, err := a.passwordService.VerifyPassword(credentials.Password(), user.Password)
	if err != nil {
		return nil, apperr.ErrInternal(fmt.Errorf("failed to verify password: %w", err))
	}
	if !ok {
		return nil, apperr.ErrInvalidCredentials()
	}

	// disabled status is only revealed once the password is proven
	if !user.IsEnabled() {
		return nil, apperr.ErrUserDisabled()
	}

	return user, nil
}
