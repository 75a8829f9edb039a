package valueobject

import (
	"errors"
	"strings"
)

var (
	ErrMissingUsername = errors.New("username is required")
	ErrMissingPassword = errors.New("password is required")
)

type Credentials struct {
	username string
	password string
}

func NewCredentials(username, password string) (*Credentials, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrMissingUsername
	}
	if password == "" {
		return nil, ErrMissingPassword
	}
	return &Credentials{
		username: username,
		password: password,
	}, nil
}

func (c *Credentials) Username() string {
	return c.username
}

func (c *Credentials) Password() string {
	return c.password
}
