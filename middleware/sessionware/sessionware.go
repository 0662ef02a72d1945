package sessionware

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// DefaultHeader is the request header carrying the session token
const DefaultHeader = "x-auth"

const TextCodeMissingToken = "session_missing_token"

var defaultTokenLookup = "header:" + DefaultHeader

// ErrMissingToken no extractor found a token
var ErrMissingToken = errors.New("missing session token", errors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(errors.CodeUnauthorized)

// Verifier resolves a raw token into the authenticated value. It
// mirrors auth.TokenVerifier without importing the auth package.
type Verifier[T any] interface {
	FindByToken(ctx context.Context, token string) (T, error)
}

// VerifierFunc adapts a function to Verifier
type VerifierFunc[T any] func(ctx context.Context, token string) (T, error)

func (f VerifierFunc[T]) FindByToken(ctx context.Context, token string) (T, error) {
	return f(ctx, token)
}

type Config[T any] struct {
	// Verifier is required
	Verifier Verifier[T]
	Filter   func(router.Context) bool
	// ErrorHandler defaults to 401 with an empty body
	ErrorHandler router.ErrorHandler
	// ContextKey is the locals key for the verified value
	ContextKey string
	// TokenContextKey is the locals key for the raw token
	TokenContextKey string
	// TokenLookup is a comma separated list of source:name pairs,
	// e.g. "header:x-auth,cookie:session,query:token"
	TokenLookup string
	// ContextEnricher propagates the verified value to the request
	// context.Context
	ContextEnricher func(ctx context.Context, value T, token string) context.Context
}

// New returns a middleware that authenticates the request or short
// circuits with the error handler.
func New[T any](config Config[T]) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config)
	extractors := GetExtractors(cfg.TokenLookup)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			token, err := ExtractRawToken(ctx, extractors)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			value, err := cfg.Verifier.FindByToken(ctx.Context(), token)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, value)
			ctx.Locals(cfg.TokenContextKey, token)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), value, token))
			}

			return ctx.Next()
		}
	}
}

func GetDefaultConfig[T any](cfg Config[T]) Config[T] {
	if cfg.Verifier == nil {
		panic("AUTH: session middleware configuration: Verifier is required.")
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, _ error) error {
			return ctx.Status(router.StatusUnauthorized).SendString("")
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenContextKey == "" {
		cfg.TokenContextKey = "token"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	return cfg
}

// Value returns the verified value stored under key
func Value[T any](ctx router.Context, key string) (T, bool) {
	v, ok := ctx.Locals(key).(T)
	return v, ok
}

// Extractor pulls a raw token from the request
type Extractor func(ctx router.Context) (string, error)

func ExtractRawToken(ctx router.Context, extractors []Extractor) (string, error) {
	var err error = ErrMissingToken
	for _, extractor := range extractors {
		var raw string
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			return raw, nil
		}
	}
	return "", err
}

func GetExtractors(tokenLookup string) []Extractor {
	extractors := make([]Extractor, 0)

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		name := strings.TrimSpace(parts[1])
		switch strings.TrimSpace(parts[0]) {
		case "header":
			extractors = append(extractors, fromHeader(name))
		case "query":
			extractors = append(extractors, fromQuery(name))
		case "cookie":
			extractors = append(extractors, fromCookie(name))
		}
	}

	return extractors
}

// fromHeader reads the raw header value, no auth scheme prefix
func fromHeader(header string) Extractor {
	return func(ctx router.Context) (string, error) {
		token := strings.TrimSpace(ctx.GetString(header, ""))
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}

func fromQuery(param string) Extractor {
	return func(ctx router.Context) (string, error) {
		token := ctx.Query(param, "")
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}

func fromCookie(name string) Extractor {
	return func(ctx router.Context) (string, error) {
		token := ctx.Cookies(name)
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}
