package user_management

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fixora/flowauth/application/port/inbound"
	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/domain/entity"
)

var (
	ErrInvalidUsername       = errors.New("username must be 3-64 characters of letters, digits, '.', '_' or '-'")
	ErrInvalidPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidRole           = errors.New("role codes must be upper case letters, digits or '_'")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrInvalidStatus         = errors.New("status must be 0 (disabled) or 1 (enabled)")
	ErrUserNotFound          = errors.New("user not found")
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)
	rolePattern     = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

type CreateUserUseCase struct {
	userRepo    outbound.UserRepository
	passwordSvc outbound.PasswordService
}

func NewCreateUserUseCase(
	userRepo outbound.UserRepository,
	passwordSvc outbound.PasswordService,
) *CreateUserUseCase {
	return &CreateUserUseCase{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
	}
}

func (uc *CreateUserUseCase) Execute(ctx context.Context, req inbound.CreateUserRequest) (*inbound.UserDTO, error) {
	if err := uc.validateCreateUserRequest(&req); err != nil {
		return nil, err
	}

	exists, err := uc.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username existence: %w", err)
	}
	if exists {
		return nil, ErrUsernameAlreadyExists
	}

	hashedPassword, err := uc.passwordSvc.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := entity.NewUser(req.Username, hashedPassword)
	user.RealName = req.RealName
	user.Email = req.Email
	user.Phone = req.Phone
	user.TenantID = req.TenantID

	if err := uc.userRepo.Create(ctx, user, req.Roles); err != nil {
		if errors.Is(err, outbound.ErrUserAlreadyExists) {
			return nil, ErrUsernameAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return toUserDTO(ctx, uc.userRepo, user)
}

func (uc *CreateUserUseCase) validateCreateUserRequest(req *inbound.CreateUserRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(req.Username) {
		return ErrInvalidUsername
	}
	if len(req.Password) < 6 {
		return ErrInvalidPassword
	}
	roles, err := normalizeRoles(req.Roles)
	if err != nil {
		return err
	}
	req.Roles = roles
	return nil
}

// normalizeRoles upper-cases role codes and strips a ROLE_ prefix. It
// returns a new slice.
func normalizeRoles(in []string) ([]string, error) {
	roles := make([]string, 0, len(in))
	for _, role := range in {
		role = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(role)), "ROLE_")
		if !rolePattern.MatchString(role) {
			return nil, ErrInvalidRole
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func toUserDTO(ctx context.Context, repo outbound.UserRepository, user *entity.User) (*inbound.UserDTO, error) {
	authorities, err := repo.FindAuthorities(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve authorities: %w", err)
	}
	return inbound.NewUserDTO(user, authorities), nil
}

func findUser(ctx context.Context, repo outbound.UserRepository, userID int64) (*entity.User, error) {
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
