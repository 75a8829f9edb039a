package user_management

import (
	"context"
	"errors"
	"fmt"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
)

type AssignRolesUseCase struct {
	userRepo outbound.UserRepository
}

func NewAssignRolesUseCase(userRepo outbound.UserRepository) *AssignRolesUseCase {
	return &AssignRolesUseCase{
		userRepo: userRepo,
	}
}

// Execute replaces every role of the user. New authorities show up in tokens
// issued from the next login or refresh.
func (uc *AssignRolesUseCase) Execute(ctx context.Context, userID int64, req inbound.AssignRolesRequest) (*inbound.UserDTO, error) {
	roles, err := normalizeRoles(req.Roles)
	if err != nil {
		return nil, err
	}

	user, err := findUser(ctx, uc.userRepo, userID)
	if err != nil {
		return nil, err
	}
	if err := uc.userRepo.AssignRoles(ctx, user.ID, roles...); err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to assign roles: %w", err)
	}
	return toUserDTO(ctx, uc.userRepo, user)
}
