package auth

import (
	"context"
	"strings"

	"github.com/samber/oops"
)

// Auther ties the store, hasher and token components into the
// register, login and verify flows.
type Auther struct {
	users    Users
	hasher   PasswordHasher
	tokens   TokenService
	issuer   *TokenIssuer
	verifier *TokenVerifier
	provider *UserProvider
	logger   Logger

	conflictDetection bool
}

var _ Authenticator = (*Auther)(nil)

// AutherOption configures an Auther
type AutherOption func(*Auther)

// WithPasswordHasher sets the hasher used to check credentials. It
// should match the one the users repository hashes with.
func WithPasswordHasher(h PasswordHasher) AutherOption {
	return func(a *Auther) {
		if h != nil {
			a.hasher = h
		}
	}
}

// WithLogger sets the logger for the Auther and its components
func WithLogger(l Logger) AutherOption {
	return func(a *Auther) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTokenService replaces the token service built from config
func WithTokenService(ts TokenService) AutherOption {
	return func(a *Auther) {
		if ts != nil {
			a.tokens = ts
		}
	}
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(users Users, cfg Config, opts ...AutherOption) (*Auther, error) {
	a := &Auther{
		users:             users,
		logger:            defLogger{},
		conflictDetection: cfg.GetConflictDetection(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.hasher == nil {
		a.hasher = NewBcryptHasher(cfg.GetPasswordCost())
	}

	if a.tokens == nil {
		ts, err := NewTokenService(
			[]byte(cfg.GetSigningKey()),
			WithTokenIssuer(cfg.GetIssuer()),
			WithTokenLogger(a.logger),
		)
		if err != nil {
			return nil, err
		}
		a.tokens = ts
	}

	a.issuer = NewTokenIssuer(a.tokens, users,
		WithIssuerConflictDetection(a.conflictDetection),
		WithIssuerLogger(a.logger),
	)
	a.verifier = NewTokenVerifier(a.tokens, users, a.logger)
	a.provider = NewUserProvider(users, a.hasher).WithLogger(a.logger)

	return a, nil
}

// TokenService returns the TokenService used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Register stores a new user and issues its first session token
func (s *Auther) Register(ctx context.Context, email, password string) (*User, string, error) {
	user := NewUser(strings.TrimSpace(email), password)

	created, err := s.users.Create(ctx, user)
	if err != nil {
		s.logger.Info("register failed", "email", user.Email, "error", err)
		return nil, "", err
	}

	token, err := s.issuer.GenerateAuthToken(ctx, created)
	if err != nil {
		return nil, "", oops.
			In("auth").
			Code("register_token").
			With("user_id", created.GetID()).
			Wrap(err)
	}

	s.logger.Info("user registered", "user_id", created.GetID())
	return created, token, nil
}

// Login checks credentials and issues a new session token
func (s *Auther) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.provider.FindByCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.issuer.GenerateAuthToken(ctx, user)
	if err != nil {
		return nil, "", oops.
			In("auth").
			Code("login_token").
			With("user_id", user.GetID()).
			Wrap(err)
	}

	s.logger.Info("user logged in", "user_id", user.GetID(), "sessions", len(user.Tokens))
	return user, token, nil
}

// FindByToken resolves a session token to its user
func (s *Auther) FindByToken(ctx context.Context, token string) (*User, error) {
	return s.verifier.FindByToken(ctx, token)
}

// FindByCredentials resolves an email and password pair to its user
func (s *Auther) FindByCredentials(ctx context.Context, email, password string) (*User, error) {
	return s.provider.FindByCredentials(ctx, email, password)
}

// GenerateAuthToken issues a new session token for an existing user
func (s *Auther) GenerateAuthToken(ctx context.Context, user *User) (string, error) {
	return s.issuer.GenerateAuthToken(ctx, user)
}
