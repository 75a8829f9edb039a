package inbound

import (
	"context"

	"github.com/fixora/flowauth/domain/entity"
	"github.com/fixora/flowauth/domain/valueobject"
)

type LoginRequest struct {
	Username   string `json:"username" validate:"required,max=64"`
	Password   string `json:"password" validate:"required,max=128"`
	TenantID   string `json:"tenant_id,omitempty" validate:"omitempty,max=64"`
	DeviceID   string `json:"device_id,omitempty" validate:"omitempty,max=128"`
	ClientType string `json:"client_type,omitempty" validate:"omitempty,oneof=web mobile desktop api"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UserDTO struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	RealName    string   `json:"real_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
	Status      int      `json:"status"`
	TenantID    string   `json:"tenant_id,omitempty"`
	Authorities []string `json:"authorities"`
}

type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         *UserDTO `json:"user,omitempty"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

// SessionDTO echoes the optional claims the current token was issued with.
type SessionDTO struct {
	TenantID   string `json:"tenant_id,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
	ClientType string `json:"client_type,omitempty"`
}

func NewSessionDTO(extra valueobject.AdditionalClaims) SessionDTO {
	return SessionDTO{
		TenantID:   extra.TenantID,
		DeviceID:   extra.DeviceID,
		ClientType: extra.ClientType,
	}
}

type MeResponse struct {
	UserDTO
	TokenExpiresIn int64      `json:"token_expires_in"`
	Session        SessionDTO `json:"session"`
}

type AuthUseCase interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, principal valueobject.Principal, accessToken string) (*MeResponse, error)
}

// NewUserDTO maps a user and its resolved authorities. The password hash is
// never copied.
func NewUserDTO(user *entity.User, authorities []string) *UserDTO {
	auths := authorities
	if auths == nil {
		auths = []string{}
	}
	return &UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		RealName:    user.RealName,
		Email:       user.Email,
		Phone:       user.Phone,
		Avatar:      user.Avatar,
		Status:      user.Status,
		TenantID:    user.TenantID,
		Authorities: auths,
	}
}
