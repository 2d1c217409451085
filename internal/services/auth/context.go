package auth

import "context"

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

// Identity is the resolved account attached to a request by the session
// middleware. It is deliberately optional: refresh-cookie-only requests pass
// the middleware without one, so downstream code must check the ok flag.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
