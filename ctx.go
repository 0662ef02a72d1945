package auth

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var tokenCtxKey = &contextKey{"token"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// WithTokenContext sets the raw session token in the given context
func WithTokenContext(r context.Context, token string) context.Context {
	return context.WithValue(r, tokenCtxKey, token)
}

// TokenFromContext returns the session token the request was
// authenticated with.
func TokenFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(tokenCtxKey).(string)
	return raw, ok && raw != ""
}

// EnrichContext stores both the user and the token. It matches the
// sessionware context enricher signature.
func EnrichContext(ctx context.Context, user *User, token string) context.Context {
	return WithTokenContext(WithContext(ctx, user), token)
}
