package user_management

import (
	"context"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
)

type GetUserDetailUseCase struct {
	userRepo outbound.UserRepository
}

func NewGetUserDetailUseCase(userRepo outbound.UserRepository) *GetUserDetailUseCase {
	return &GetUserDetailUseCase{
		userRepo: userRepo,
	}
}

func (uc *GetUserDetailUseCase) Execute(ctx context.Context, userID int64) (*inbound.UserDTO, error) {
	if userID <= 0 {
		return nil, ErrUserNotFound
	}

	user, err := findUser(ctx, uc.userRepo, userID)
	if err != nil {
		return nil, err
	}
	return toUserDTO(ctx, uc.userRepo, user)
}
