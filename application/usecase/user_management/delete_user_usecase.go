package user_management

import (
	"context"
	"errors"
	"fmt"

	"github.com/fixora/flowauth/application/port/outbound"
)

type DeleteUserUseCase struct {
	userRepo outbound.UserRepository
}

func NewDeleteUserUseCase(userRepo outbound.UserRepository) *DeleteUserUseCase {
	return &DeleteUserUseCase{
		userRepo: userRepo,
	}
}

func (uc *DeleteUserUseCase) Execute(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrUserNotFound
	}

	// Perform soft delete
	if err := uc.userRepo.SoftDelete(ctx, userID); err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
