package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is an administrator allowed to manage events.
type User struct {
	Id            uuid.UUID
	Name          string
	Email         string
	PasswordHash  string
	RememberToken *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
