package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	authsvc "github.com/olegbrv/storefront/backend/internal/services/auth"
	"github.com/olegbrv/storefront/backend/internal/transport/http/dto"
	httperrors "github.com/olegbrv/storefront/backend/internal/transport/http/errors"
)

// RefreshCookieMaxAge matches the refresh token lifetime.
const RefreshCookieMaxAge = 7 * 24 * 60 * 60

type AuthHandler struct {
	service *authsvc.Service
}

func NewAuthHandler(service *authsvc.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "auth service is unavailable")
		return
	}

	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	res, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.AuthResponse{
		Message: "User registered successfully",
		Token:   res.AccessToken,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "auth service is unavailable")
		return
	}

	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    res.RefreshToken,
		HttpOnly: true,
		MaxAge:   RefreshCookieMaxAge,
		Path:     "/",
	})

	httperrors.Write(w, http.StatusOK, dto.AuthResponse{
		Message: "Login successful",
		Token:   res.AccessToken,
	})
}

// Me reports the identity the session middleware resolved. Requests admitted
// on a refresh cookie alone carry no identity; those get a 401 here rather
// than in the middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "No identity resolved for this request")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MeResponse{
		ID:    identity.UserID,
		Email: identity.Email,
		Role:  identity.Role,
	})
}

func handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authsvc.ErrInvalidInput):
		writeBadRequest(w, "Email and password are required")
	case errors.Is(err, authsvc.ErrEmailTaken):
		writeBadRequest(w, "User already exists")
	case errors.Is(err, authsvc.ErrUserNotFound):
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Message: "User not found"})
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		writeUnauthorized(w, "Invalid email or password")
	case errors.Is(err, authsvc.ErrTooManyAttempts):
		payload := httperrors.RateLimitError{Message: "Too many login attempts"}
		var limited *authsvc.RateLimitedError
		if errors.As(err, &limited) {
			payload.RetryAfterSec = limited.RetryAfterSec
			w.Header().Set("Retry-After", strconv.FormatInt(limited.RetryAfterSec, 10))
		}
		httperrors.Write(w, http.StatusTooManyRequests, payload)
	default:
		writeInternal(w, "internal server error")
	}
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Message: message})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Message: message})
}

func writeInternal(w http.ResponseWriter, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Message: message})
}
