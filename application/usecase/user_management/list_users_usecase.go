package user_management

import (
	"context"
	"fmt"
	"strings"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
)

// Pagination bounds for ListUsers.
const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type ListUsersUseCase struct {
	userRepo outbound.UserRepository
}

func NewListUsersUseCase(userRepo outbound.UserRepository) *ListUsersUseCase {
	return &ListUsersUseCase{
		userRepo: userRepo,
	}
}

func (uc *ListUsersUseCase) Execute(ctx context.Context, req inbound.ListUsersRequest) (*inbound.ListUsersResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = defaultPageLimit
	}
	if req.Limit > maxPageLimit {
		req.Limit = maxPageLimit
	}
	offset := (req.Page - 1) * req.Limit

	filters := outbound.UserFilters{
		Keyword: strings.TrimSpace(req.Keyword),
	}
	users, total, err := uc.userRepo.FindAll(ctx, offset, req.Limit, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	items := make([]inbound.UserDTO, 0, len(users))
	for _, user := range users {
		dto, err := toUserDTO(ctx, uc.userRepo, user)
		if err != nil {
			return nil, err
		}
		items = append(items, *dto)
	}

	return &inbound.ListUsersResponse{
		Users: items,
		Pagination: inbound.PaginationInfo{
			Page:  req.Page,
			Limit: req.Limit,
			Total: total,
		},
	}, nil
}
