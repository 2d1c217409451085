package auth

import (
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenCodec mints and verifies access and refresh tokens. The two kinds are
// signed with independent secrets so a leak of one cannot forge the other.
// Tokens are stateless: validity is signature plus expiry, nothing is tracked
// server-side and nothing can be revoked before expiry.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenCodec, error) {
	if strings.TrimSpace(accessSecret) == "" {
		return nil, fmt.Errorf("access token secret is not configured")
	}
	if strings.TrimSpace(refreshSecret) == "" {
		return nil, fmt.Errorf("refresh token secret is not configured")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}

	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

// IssueAccessToken signs {id, email, role} with the access secret, expiring
// one access TTL from now.
func (c *TokenCodec) IssueAccessToken(userID, email, role string) (string, time.Time, error) {
	return c.issue(userID, email, role, c.accessSecret, c.accessTTL)
}

// IssueRefreshToken signs the user id with the refresh secret. Email and role
// are intentionally left out: a refresh token only proves who may be issued a
// new access token.
func (c *TokenCodec) IssueRefreshToken(userID string) (string, time.Time, error) {
	return c.issue(userID, "", "", c.refreshSecret, c.refreshTTL)
}

func (c *TokenCodec) VerifyAccessToken(raw string) (Claims, error) {
	return c.verify(raw, c.accessSecret)
}

func (c *TokenCodec) VerifyRefreshToken(raw string) (Claims, error) {
	return c.verify(raw, c.refreshSecret)
}

// IsRefreshTokenValid is a non-throwing predicate over refresh verification.
func (c *TokenCodec) IsRefreshTokenValid(raw string) bool {
	_, err := c.VerifyRefreshToken(raw)
	return err == nil
}

func (c *TokenCodec) issue(userID, email, role string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, ErrInvalidInput
	}

	now := c.now().UTC()
	expiresAt := now.Add(ttl)
	claims := tokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

func (c *TokenCodec) verify(raw string, secret []byte) (Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return Claims{}, ErrInvalidToken
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(c.now))
	if err != nil || token == nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}

	return out, nil
}
