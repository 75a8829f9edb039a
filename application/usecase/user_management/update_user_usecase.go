package user_management

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/domain/entity"
)

type UpdateUserUseCase struct {
	userRepo    outbound.UserRepository
	passwordSvc outbound.PasswordService
}

func NewUpdateUserUseCase(
	userRepo outbound.UserRepository,
	passwordSvc outbound.PasswordService,
) *UpdateUserUseCase {
	return &UpdateUserUseCase{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
	}
}

// Execute applies the set fields of req. Disabling an account takes effect
// at the next login or refresh; tokens already issued stay valid until they
// expire or are revoked.
func (uc *UpdateUserUseCase) Execute(ctx context.Context, userID int64, req inbound.UpdateUserRequest) (*inbound.UserDTO, error) {
	user, err := findUser(ctx, uc.userRepo, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if !usernamePattern.MatchString(username) {
			return nil, ErrInvalidUsername
		}
		if username != user.Username {
			exists, err := uc.userRepo.ExistsByUsername(ctx, username)
			if err != nil {
				return nil, fmt.Errorf("failed to check username existence: %w", err)
			}
			if exists {
				return nil, ErrUsernameAlreadyExists
			}
			user.Username = username
		}
	}

	if req.Password != nil {
		if len(*req.Password) < 6 {
			return nil, ErrInvalidPassword
		}
		hashedPassword, err := uc.passwordSvc.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hashedPassword
	}

	if req.Status != nil {
		if *req.Status != entity.UserStatusEnabled && *req.Status != entity.UserStatusDisabled {
			return nil, ErrInvalidStatus
		}
		user.Status = *req.Status
	}

	var roles []string
	if req.Roles != nil {
		if roles, err = normalizeRoles(req.Roles); err != nil {
			return nil, err
		}
	}

	if req.RealName != nil {
		user.RealName = *req.RealName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	user.UpdatedAt = time.Now()

	if err := uc.userRepo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, outbound.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, outbound.ErrUserAlreadyExists):
			return nil, ErrUsernameAlreadyExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if req.Roles != nil {
		if err := uc.userRepo.AssignRoles(ctx, user.ID, roles...); err != nil {
			return nil, fmt.Errorf("failed to assign roles: %w", err)
		}
	}

	return toUserDTO(ctx, uc.userRepo, user)
}
