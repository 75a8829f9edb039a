package outbound

import (
	"context"

	"github.com/fixora/flowauth/domain/entity"
)

// Authenticator checks a username and password. It fails with
// InvalidCredentials, UserDisabled or UserNotFound.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*entity.User, error)
}
