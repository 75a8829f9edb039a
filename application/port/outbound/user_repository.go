package outbound

import (
	"context"
	"errors"

	"github.com/fixora/flowauth/domain/entity"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	// FindAuthorities returns ROLE_<code> entries followed by permission codes.
	FindAuthorities(ctx context.Context, userID int64) ([]string, error)
	Create(ctx context.Context, user *entity.User, roleCodes []string) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Update writes every profile column of user, including the password hash.
	Update(ctx context.Context, user *entity.User) error
	UpdateStatus(ctx context.Context, userID int64, status int) error
	// AssignRoles replaces the role links of a user.
	AssignRoles(ctx context.Context, userID int64, roleCodes ...string) error
	// SoftDelete hides the user and drops its role links. The username stays
	// reserved.
	SoftDelete(ctx context.Context, userID int64) error
	// FindAll returns one page of live users ordered by ID and the total
	// number of matches.
	FindAll(ctx context.Context, offset, limit int, filters UserFilters) ([]*entity.User, int, error)
}

// UserFilters narrows FindAll. Keyword matches username or real name,
// case-insensitively.
type UserFilters struct {
	Keyword string
	Status  *int
}
