package auth

import (
	"context"
	"log/slog"
)

// Logger is the logging surface used across the package. Arguments
// after the message are key value pairs, as with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetTokenHeader() string
	GetPasswordCost() int
	GetConflictDetection() bool
}

// Authenticator holds the session flows exposed over HTTP
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*User, string, error)
	Login(ctx context.Context, email, password string) (*User, string, error)
	FindByToken(ctx context.Context, token string) (*User, error)
}

// defLogger forwards to the process wide slog logger at call time
type defLogger struct{}

func (defLogger) Debug(msg string, args ...any) {
	slog.Default().With("component", "auth").Debug(msg, args...)
}

func (defLogger) Info(msg string, args ...any) {
	slog.Default().With("component", "auth").Info(msg, args...)
}

func (defLogger) Warn(msg string, args ...any) {
	slog.Default().With("component", "auth").Warn(msg, args...)
}

func (defLogger) Error(msg string, args ...any) {
	slog.Default().With("component", "auth").Error(msg, args...)
}
