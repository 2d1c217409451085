package apiapp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/olegbrv/storefront/backend/internal/domain/enums"
	"github.com/olegbrv/storefront/backend/internal/domain/model"
	authsvc "github.com/olegbrv/storefront/backend/internal/services/auth"
	httperrors "github.com/olegbrv/storefront/backend/internal/transport/http/errors"
)

const (
	accessCookieName   = "accessToken"
	refreshCookieName  = "refreshToken"
	accessCookieMaxAge = 24 * 60 * 60

	// DefaultRefreshWindow is how close to expiry an access token must be
	// before the middleware silently mints a replacement.
	DefaultRefreshWindow = 12 * time.Hour
)

func ApplyMiddlewares(r chiRouter, log *zap.Logger) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(log))
}

// UserLoader resolves an identity by id without its password hash.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (model.User, error)
}

// SessionMiddleware authenticates a request from its bearer access token,
// silently rotating a near-expiry token via the refresh cookie.
//
// Requests arriving with no bearer token but a valid refresh cookie are
// admitted with a fresh access cookie and NO identity in the context; this
// mirrors the storefront clients, which rely on the cookie to recover a lost
// token. Handlers that need an identity must check for its absence.
func SessionMiddleware(codec *authsvc.TokenCodec, users UserLoader, refreshWindow time.Duration, log *zap.Logger) func(http.Handler) http.Handler {
	if refreshWindow <= 0 {
		refreshWindow = DefaultRefreshWindow
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if codec == nil || users == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Message: "auth is unavailable",
				})
				return
			}

			accessToken, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				authorizeFromRefreshCookie(w, r, codec, next, log)
				return
			}

			claims, err := codec.VerifyAccessToken(accessToken)
			if err != nil {
				writeSessionRejection(w, log, "Not authorized, token failed", err)
				return
			}

			user, err := users.FindByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, authsvc.ErrUserNotFound) {
					writeSessionRejection(w, log, "User not found", err)
					return
				}
				writeSessionRejection(w, log, "Not authorized, token failed", err)
				return
			}

			ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{
				UserID: user.ID,
				Email:  user.Email,
				Role:   string(user.Role),
			})

			if time.Until(claims.ExpiresAt) < refreshWindow {
				cookie, cookieErr := r.Cookie(refreshCookieName)
				if cookieErr != nil {
					writeSessionRejection(w, log, "No refresh token available", cookieErr)
					return
				}

				refreshClaims, verifyErr := codec.VerifyRefreshToken(cookie.Value)
				if verifyErr != nil {
					writeSessionRejection(w, log, "Invalid refresh token", verifyErr)
					return
				}

				// The replacement carries only the id claim, exactly what
				// the refresh token proves. The current request still runs
				// on the old, still-valid claims.
				newToken, _, issueErr := codec.IssueAccessToken(refreshClaims.UserID, "", "")
				if issueErr != nil {
					writeSessionRejection(w, log, "Invalid refresh token", issueErr)
					return
				}
				setAccessCookie(w, newToken)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authorizeFromRefreshCookie(w http.ResponseWriter, r *http.Request, codec *authsvc.TokenCodec, next http.Handler, log *zap.Logger) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		writeSessionRejection(w, log, "Not authorized, no token", err)
		return
	}

	claims, err := codec.VerifyRefreshToken(cookie.Value)
	if err != nil {
		writeSessionRejection(w, log, "Invalid or expired refresh token", err)
		return
	}

	newToken, _, err := codec.IssueAccessToken(claims.UserID, "", "")
	if err != nil {
		writeSessionRejection(w, log, "Invalid or expired refresh token", err)
		return
	}
	setAccessCookie(w, newToken)

	// No identity is attached here: the user record was never loaded.
	next.ServeHTTP(w, r)
}

// RequireAdmin restricts an operation to admin identities. A request with no
// resolved identity fails closed.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok || identity.Role != string(enums.RoleAdmin) {
			httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
				Message: "Access denied. Admins only.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setAccessCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    token,
		HttpOnly: true,
		MaxAge:   accessCookieMaxAge,
		Path:     "/",
	})
}

func writeSessionRejection(w http.ResponseWriter, log *zap.Logger, message string, err error) {
	if log != nil {
		log.Debug("session middleware rejection", zap.String("reason", message), zap.Error(err))
	}
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Message: message})
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("duration", time.Since(start)),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}
