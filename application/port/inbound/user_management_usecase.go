package inbound

import (
	"context"
)

type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=64"`
	Password string   `json:"password" validate:"required,min=6,max=128"`
	RealName string   `json:"real_name" validate:"omitempty,max=64"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Phone    string   `json:"phone" validate:"omitempty,max=32"`
	TenantID string   `json:"tenant_id" validate:"omitempty,max=64"`
	Roles    []string `json:"roles" validate:"omitempty,dive,required"`
}

// UpdateUserRequest changes only the fields that are set. Roles replaces
// every role link when non-nil; an empty list removes them all.
type UpdateUserRequest struct {
	Username *string  `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Password *string  `json:"password,omitempty" validate:"omitempty,min=6,max=128"`
	RealName *string  `json:"real_name,omitempty" validate:"omitempty,max=64"`
	Email    *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string  `json:"phone,omitempty" validate:"omitempty,max=32"`
	Avatar   *string  `json:"avatar,omitempty" validate:"omitempty,max=512"`
	Status   *int     `json:"status,omitempty" validate:"omitempty,oneof=0 1"`
	Roles    []string `json:"roles" validate:"omitempty,dive,required"`
}

type AssignRolesRequest struct {
	Roles []string `json:"roles" validate:"dive,required"`
}

// List Users
type ListUsersRequest struct {
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	Keyword string `json:"keyword,omitempty"`
}

type ListUsersResponse struct {
	Users      []UserDTO      `json:"users"`
	Pagination PaginationInfo `json:"pagination"`
}

type PaginationInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type UserManagementUseCase interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserDTO, error)
	GetUserDetail(ctx context.Context, userID int64) (*UserDTO, error)
	UpdateUser(ctx context.Context, userID int64, req UpdateUserRequest) (*UserDTO, error)
	DeleteUser(ctx context.Context, userID int64) error
	ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error)
	AssignRoles(ctx context.Context, userID int64, req AssignRolesRequest) (*UserDTO, error)
}
