package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/olegbrv/storefront/backend/internal/domain/enums"
	"github.com/olegbrv/storefront/backend/internal/domain/model"
	"github.com/olegbrv/storefront/backend/internal/pkg/security"
	"github.com/olegbrv/storefront/backend/internal/pkg/validate"
)

const DefaultBcryptCost = 10

// UserStore is the persistent identity store. Email uniqueness is enforced at
// the store level; implementations report a missing user as ErrUserNotFound
// and an email collision on Insert as ErrEmailTaken.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	// FindByID resolves a user without the password hash.
	FindByID(ctx context.Context, id string) (model.User, error)
	Insert(ctx context.Context, user model.User) (model.User, error)
}

type LoginLimiter interface {
	AllowAttempt(ctx context.Context, email string) (retryAfterSec int64, ok bool, err error)
}

// Service registers accounts and authenticates login attempts, issuing tokens
// through the TokenCodec. It holds no request state.
type Service struct {
	codec      *TokenCodec
	users      UserStore
	limiter    LoginLimiter
	bcryptCost int
}

func NewService(codec *TokenCodec, users UserStore, bcryptCost int) *Service {
	if bcryptCost <= 0 {
		bcryptCost = DefaultBcryptCost
	}

	return &Service{
		codec:      codec,
		users:      users,
		bcryptCost: bcryptCost,
	}
}

// AttachLoginLimiter enables per-email throttling of login attempts.
func (s *Service) AttachLoginLimiter(limiter LoginLimiter) {
	s.limiter = limiter
}

// Register creates an account with role "user" and returns a fresh access
// token. No refresh token is issued at registration; the client obtains one
// by logging in.
func (s *Service) Register(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if !validate.Email(email) || !validate.Required(password) {
		return AuthResult{}, ErrInvalidInput
	}

	hash, err := security.HashPassword(password, s.bcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Insert(ctx, model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         enums.RoleUser,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, fmt.Errorf("insert user: %w", err)
	}

	accessToken, accessExpires, err := s.codec.IssueAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		AccessExpires: accessExpires,
		User: AuthUser{
			ID:    user.ID,
			Email: user.Email,
			Role:  string(user.Role),
		},
	}, nil
}

// Login authenticates an email/password pair. On success it issues both an
// access token and a refresh token carrying the stored role and id.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if !validate.Required(email) || !validate.Required(password) {
		return AuthResult{}, ErrInvalidInput
	}

	if s.limiter != nil {
		retryAfter, ok, err := s.limiter.AllowAttempt(ctx, email)
		if err != nil {
			return AuthResult{}, fmt.Errorf("check login rate: %w", err)
		}
		if !ok {
			return AuthResult{}, &RateLimitedError{RetryAfterSec: retryAfter}
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return AuthResult{}, ErrUserNotFound
		}
		return AuthResult{}, fmt.Errorf("find user by email: %w", err)
	}

	if err := security.CheckPassword(user.PasswordHash, password); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	accessToken, accessExpires, err := s.codec.IssueAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, _, err := s.codec.IssueRefreshToken(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		User: AuthUser{
			ID:    user.ID,
			Email: user.Email,
			Role:  string(user.Role),
		},
	}, nil
}
