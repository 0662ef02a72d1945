package auth

import (
	"context"

	"github.com/samber/oops"
)

// TokenVerifier resolves a session token to its user
type TokenVerifier struct {
	tokens TokenService
	users  Users
	logger Logger
}

// NewTokenVerifier creates a TokenVerifier
func NewTokenVerifier(tokens TokenService, users Users, logger Logger) *TokenVerifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenVerifier{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

// FindByToken validates the signature and then requires the stored
// user to still hold the exact token with the auth scope. Signature
// failures return before any store lookup.
func (v *TokenVerifier) FindByToken(ctx context.Context, token string) (*User, error) {
	claims, err := v.tokens.Validate(token)
	if err != nil {
		v.logger.Debug("token verifier rejected token", "error", err)
		return nil, err
	}

	user, err := v.users.GetByToken(ctx, claims.UserID(), token, ScopeAuth)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, oops.
				In("auth").
				Code("token_not_found").
				With("user_id", claims.UserID()).
				Wrap(ErrTokenNotFound)
		}
		v.logger.Error("token verifier lookup failed", "user_id", claims.UserID(), "error", err)
		return nil, err
	}

	return user, nil
}
