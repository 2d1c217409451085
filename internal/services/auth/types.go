package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// RateLimitedError carries the wait the throttled caller was told to honor.
// It matches ErrTooManyAttempts under errors.Is.
type RateLimitedError struct {
	RetryAfterSec int64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many login attempts, retry after %ds", e.RetryAfterSec)
}

func (e *RateLimitedError) Unwrap() error { return ErrTooManyAttempts }

// Claims is the decoded payload of a signed token. Refresh tokens carry only
// the user id; the remaining fields are empty for them.
type Claims struct {
	UserID    string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type AuthUser struct {
	ID    string
	Email string
	Role  string
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	User          AuthUser
}
