package entity

import (
	"time"
)

// User status codes as stored in sys_user.status.
const (
	UserStatusDisabled = 0
	UserStatusEnabled  = 1
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	RealName  string    `json:"real_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Avatar    string    `json:"avatar"`
	Status    int       `json:"status"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUser(username, passwordHash string) *User {
	now := time.Now()
	return &User{
		Username:  username,
		Password:  passwordHash,
		Status:    UserStatusEnabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsEnabled reports whether the account may sign in.
func (u *User) IsEnabled() bool {
	return u.Status == UserStatusEnabled
}
