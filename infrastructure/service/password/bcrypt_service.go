package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

type BcryptPasswordService struct {
	cost int
}

// NewBcryptPasswordService clamps cost into bcrypt's accepted range. Zero
// selects bcrypt.DefaultCost.
func NewBcryptPasswordService(cost int) *BcryptPasswordService {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptPasswordService{
		cost: cost,
	}
}

func (s *BcryptPasswordService) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedPassword), nil
}

// VerifyPassword reports whether password matches hash. A mismatch is not an
// error; a hash that is not bcrypt is.
func (s *BcryptPasswordService) VerifyPassword(password, hash string) (bool, error) {
	if password == "" {
		return false, nil
	}
	if hash == "" {
		return false, fmt.Errorf("stored password hash is empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("failed to compare passwords: %w", err)
	}

	return true, nil
}

// Cost returns the work factor used for new hashes.
func (s *BcryptPasswordService) Cost() int {
	return s.cost
}
