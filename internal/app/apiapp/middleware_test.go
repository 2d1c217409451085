package apiapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/olegbrv/storefront/backend/internal/domain/enums"
	"github.com/olegbrv/storefront/backend/internal/domain/model"
	authsvc "github.com/olegbrv/storefront/backend/internal/services/auth"
)

func TestSessionAllowsFreshBearerToken(t *testing.T) {
	codec := newTestCodec(t, 24*time.Hour)
	users := fakeUserLoader{"u1": {ID: "u1", Email: "a@x.com", Role: enums.RoleUser}}
	mw := SessionMiddleware(codec, users, 0, zap.NewNop())

	token := issueAccess(t, codec, "u1", "a@x.com", "user")
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	var seen authsvc.Identity
	var seenOK bool
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, seenOK = authsvc.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
	if !seenOK || seen.UserID != "u1" || seen.Email != "a@x.com" || seen.Role != "user" {
		t.Fatalf("identity not attached: ok=%v identity=%+v", seenOK, seen)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("no cookie must be set for a token far from expiry")
	}
}

func TestSessionRotatesNearExpiryToken(t *testing.T) {
	// One-hour TTL puts the token inside the 12h refresh window immediately.
	codec := newTestCodec(t, time.Hour)
	users := fakeUserLoader{"u1": {ID: "u1", Email: "a@x.com", Role: enums.RoleUser}}
	mw := SessionMiddleware(codec, users, 0, zap.NewNop())

	refresh, _, err := codec.IssueRefreshToken("u1")
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueAccess(t, codec, "u1", "a@x.com", "user"))
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("request with valid refresh cookie must pass: got %d", rr.Code)
	}

	cookie := findCookie(t, rr, "accessToken")
	if !cookie.HttpOnly {
		t.Fatalf("access cookie must be http-only")
	}
	if cookie.MaxAge != 24*60*60 {
		t.Fatalf("unexpected access cookie max age: %d", cookie.MaxAge)
	}

	claims, err := codec.VerifyAccessToken(cookie.Value)
	if err != nil {
		t.Fatalf("rotated token must verify: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("rotated token carries wrong id: %q", claims.UserID)
	}
}

func TestSessionNearExpiryWithoutRefreshCookie(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	users := fakeUserLoader{"u1": {ID: "u1", Email: "a@x.com", Role: enums.RoleUser}}
	mw := SessionMiddleware(codec, users, 0, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueAccess(t, codec, "u1", "a@x.com", "user"))
	rr := httptest.NewRecorder()

	mw(forbiddenHandler(t)).ServeHTTP(rr, req)

	// The access token itself is still valid; the missing refresh cookie
	// alone forces the rejection.
	assertRejected(t, rr, "No refresh token available")
}

func TestSessionNearExpiryWithBadRefreshCookie(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	users := fakeUserLoader{"u1": {ID: "u1", Email: "a@x.com", Role: enums.RoleUser}}
	mw := SessionMiddleware(codec, users, 0, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueAccess(t, codec, "u1", "a@x.com", "user"))
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "garbage"})
	rr := httptest.NewRecorder()

	mw(forbiddenHandler(t)).ServeHTTP(rr, req)

	assertRejected(t, rr, "Invalid refresh token")
}

func TestSessionRejectsBadBearerToken(t *testing.T) {
	codec := newTestCodec(t, 24*time.Hour)
	users := fakeUserLoader{}
	mw := SessionMiddleware(codec, users, 0, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()

	mw(forbiddenHandler(t)).ServeHTTP(rr, req)

	assertRejected(t, rr, "Not authorized, token failed")
}

func TestSessionRejectsDeletedUser(t *testing.T) {
	codec := newTestCodec(t, 24*time.Hour)
	mw := SessionMiddleware(codec, fakeUserLoader{}, 0, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueAccess(t, codec, "gone", "gone@x.com", "user"))
	rr := httptest.NewRecorder()

	mw(forbiddenHandler(t)).ServeHTTP(rr, req)

	assertRejected(t, rr, "User not found")
}

func TestSessionWithoutAnyToken(t *testing.T) {
	codec := newTestCodec(t, 24*time.Hour)
	mw := SessionMiddleware(codec, fakeUserLoader{}, 0, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	rr := httptest.NewRecorder()

	mw(forbiddenHandler(t)).ServeHTTP(rr, req)

	assertRejected(t, rr, "Not authorized, no token")
}

func TestSessionRefreshCookieOnlyAdmitsWithoutIdentity(t *testing.T) {
	codec := newTestCodec(t, 24*time.Hour)
	mw := SessionMiddleware(codec, fakeUserLoader{}, 0, zap.NewNop())

	refresh, _, err := codec.IssueRefreshToken("u1")
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})
	rr := httptest.NewRecorder()

	var identityOK bool
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, identityOK = authsvc.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("refresh-only request must be admitted: got %d", rr.Code)
	}
	if identityOK {
		t.Fatalf("refresh-only request must not carry an identity")
	}
	if findCookie(t, rr, "accessToken").Value == "" {
		t.Fatalf("refresh-only request must receive an access cookie")
	}
}

func TestSessionRejectsBadRefreshCookieWithoutBearer(t *testing.T) {
	codec := newTestCodec(t, 24*time.Hour)
	mw := SessionMiddleware(codec, fakeUserLoader{}, 0, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "garbage"})
	rr := httptest.NewRecorder()

	mw(forbiddenHandler(t)).ServeHTTP(rr, req)

	assertRejected(t, rr, "Invalid or expired refresh token")
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users/", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: "u1",
		Role:   "admin",
	}))
	rr := httptest.NewRecorder()

	RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestRequireAdminRejectsStandardRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users/", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: "u2",
		Role:   "user",
	}))
	rr := httptest.NewRecorder()

	RequireAdmin(forbiddenHandler(t)).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestRequireAdminFailsClosedWithoutIdentity(t *testing.T) {
	// A refresh-cookie-only request reaches the gate with no identity at
	// all; that must read as a role mismatch, never as admin.
	req := httptest.NewRequest(http.MethodGet, "/api/users/", nil)
	rr := httptest.NewRecorder()

	RequireAdmin(forbiddenHandler(t)).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

type fakeUserLoader map[string]model.User

func (f fakeUserLoader) FindByID(_ context.Context, id string) (model.User, error) {
	user, ok := f[id]
	if !ok {
		return model.User{}, authsvc.ErrUserNotFound
	}
	user.PasswordHash = ""
	return user, nil
}

func newTestCodec(t *testing.T, accessTTL time.Duration) *authsvc.TokenCodec {
	t.Helper()

	codec, err := authsvc.NewTokenCodec("test-access-secret", "test-refresh-secret", accessTTL, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("create token codec: %v", err)
	}
	return codec
}

func issueAccess(t *testing.T, codec *authsvc.TokenCodec, id, email, role string) string {
	t.Helper()

	token, _, err := codec.IssueAccessToken(id, email, role)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	return token
}

func forbiddenHandler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not be called")
	})
}

func findCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func assertRejected(t *testing.T, rr *httptest.ResponseRecorder, message string) {
	t.Helper()

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode rejection body: %v", err)
	}
	if body.Message != message {
		t.Fatalf("unexpected rejection message: got %q want %q", body.Message, message)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("rejections must not set cookies")
	}
}
