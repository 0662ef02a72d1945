package auth

import (
	"context"

	"github.com/google/uuid"
)

// TokenIssuer creates session tokens and records them on the user
type TokenIssuer struct {
	tokens            TokenService
	users             Users
	logger            Logger
	conflictDetection bool
}

// TokenIssuerOption configures a TokenIssuer
type TokenIssuerOption func(*TokenIssuer)

// WithIssuerConflictDetection makes token appends fail with
// ErrWriteConflict when the user changed since it was read.
func WithIssuerConflictDetection(enabled bool) TokenIssuerOption {
	return func(i *TokenIssuer) {
		i.conflictDetection = enabled
	}
}

// WithIssuerLogger sets the logger
func WithIssuerLogger(logger Logger) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewTokenIssuer creates a TokenIssuer
func NewTokenIssuer(tokens TokenService, users Users, opts ...TokenIssuerOption) *TokenIssuer {
	i := &TokenIssuer{
		tokens: tokens,
		users:  users,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// GenerateAuthToken signs a token for user, appends it to the user's
// token list and persists the record. The token is only returned once
// the write succeeded. On failure the in memory list is restored.
func (i *TokenIssuer) GenerateAuthToken(ctx context.Context, user *User) (string, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", ErrUserRequired
	}

	token, err := i.tokens.Sign(user.ID.String(), ScopeAuth)
	if err != nil {
		i.logger.Error("token issuer failed to sign token", "user_id", user.GetID(), "error", err)
		return "", err
	}

	previous := user.Tokens
	user.AddToken(ScopeAuth, token)

	save := i.users.Update
	if i.conflictDetection {
		save = i.users.UpdateVersioned
	}

	if _, err := save(ctx, user); err != nil {
		user.Tokens = previous
		i.logger.Error("token issuer failed to persist token", "user_id", user.GetID(), "error", err)
		return "", err
	}

	i.logger.Debug("token issued", "user_id", user.GetID(), "sessions", len(user.Tokens))

	return token, nil
}
