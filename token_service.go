package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// SessionClaims is the payload of a session token. The user id is
// carried both as `_id`, which existing clients read, and as `sub`.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID    string `json:"_id"`
	Access string `json:"access"`
}

// UserID returns the user id embedded in the token
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// TokenService signs and validates session tokens
type TokenService interface {
	Sign(userID, scope string) (string, error)
	Validate(token string) (*SessionClaims, error)
}

// JWTTokenService implements TokenService with HS256 tokens
type JWTTokenService struct {
	signingKey []byte
	issuer     string
	logger     Logger
	now        func() time.Time
}

var _ TokenService = (*JWTTokenService)(nil)

// TokenServiceOption configures a JWTTokenService
type TokenServiceOption func(*JWTTokenService)

// WithTokenIssuer sets the `iss` claim. When set, tokens without a
// matching issuer fail validation.
func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *JWTTokenService) {
		ts.issuer = issuer
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *JWTTokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenClock overrides the clock used for `iat`
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *JWTTokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService. The key is copied.
func NewTokenService(signingKey []byte, opts ...TokenServiceOption) (*JWTTokenService, error) {
	if len(signingKey) == 0 {
		return nil, ErrSigningKeyRequired
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	ts := &JWTTokenService{
		signingKey: key,
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// Sign creates a token for the user and scope
func (ts *JWTTokenService) Sign(userID, scope string) (string, error) {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   ts.issuer,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(ts.now()),
			ID:       uuid.NewString(),
		},
		UID:    userID,
		Access: scope,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", oops.
			In("auth").
			Code("token_sign").
			With("user_id", userID).
			Wrapf(ErrTokenSigning, "%v", err)
	}

	return signed, nil
}

// Validate checks the signature and decodes the claims. It never
// touches storage.
func (ts *JWTTokenService) Validate(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service found unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, oops.
			In("auth").
			Code("token_malformed").
			Wrapf(ErrTokenMalformed, "%v", err)
	}

	if !token.Valid || claims.UserID() == "" {
		return nil, oops.
			In("auth").
			Code("token_malformed").
			Wrap(ErrTokenMalformed)
	}

	return claims, nil
}
