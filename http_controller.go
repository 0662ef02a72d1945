package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-session-auth/middleware/sessionware"
)

// UsersControllerRoutes holds the route paths
type UsersControllerRoutes struct {
	Users string
	Login string
	Me    string
}

type UsersController struct {
	Debug       bool
	Logger      Logger
	Auther      Authenticator
	Routes      *UsersControllerRoutes
	TokenHeader string
	ContextKey  string
}

type UsersControllerOption func(*UsersController) *UsersController

// WithControllerDebug dumps request payloads, passwords redacted
func WithControllerDebug(debug bool) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Debug = debug
		return c
	}
}

// WithControllerLogger sets the controller logger
func WithControllerLogger(l Logger) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// WithControllerTokenHeader sets the header carrying session tokens
func WithControllerTokenHeader(header string) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		if header != "" {
			c.TokenHeader = header
		}
		return c
	}
}

func NewUsersController(auther Authenticator, opts ...UsersControllerOption) *UsersController {
	c := &UsersController{
		Logger:      defLogger{},
		Auther:      auther,
		TokenHeader: sessionware.DefaultHeader,
		ContextKey:  "user",
		Routes: &UsersControllerRoutes{
			Users: "/users",
			Login: "/users/login",
			Me:    "/users/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in users controller...")
	}

	return c
}

// RegisterUserRoutes mounts the user routes on r. The me route is
// guarded by the session middleware.
func RegisterUserRoutes[T any](r router.Router[T], controller *UsersController) {
	protected := sessionware.New(sessionware.Config[*User]{
		Verifier:        controller.Auther,
		ContextKey:      controller.ContextKey,
		TokenLookup:     "header:" + controller.TokenHeader,
		ContextEnricher: EnrichContext,
		ErrorHandler:    controller.sessionError,
	})

	r.Post(controller.Routes.Users, controller.Create).SetName("users.create")
	r.Post(controller.Routes.Login, controller.Login).SetName("users.login")
	r.Get(controller.Routes.Me, controller.Me, protected).SetName("users.me")
}

// CredentialsPayload is the request body of the register and login routes
type CredentialsPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate checks both fields are present
func (r CredentialsPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (r CredentialsPayload) redacted() CredentialsPayload {
	if r.Password != "" {
		r.Password = "********"
	}
	return r
}

// Create registers a user and returns its public view with a token
// in the session header.
func (a *UsersController) Create(ctx router.Context) error {
	payload := new(CredentialsPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"errors": map[string]string{"body": "unable to parse request body"},
		})
	}

	a.dump("users.create", payload)

	user, token, err := a.Auther.Register(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		if details := ValidationDetails(err); details != nil {
			return ctx.JSON(StatusCode(err), map[string]any{
				"errors": details,
			})
		}
		return a.failure(ctx, "users.create", err)
	}

	ctx.SetHeader(a.TokenHeader, token)
	return ctx.JSON(router.StatusOK, user)
}

// Login checks credentials and returns a new token in the session
// header. Failures carry no body.
func (a *UsersController) Login(ctx router.Context) error {
	payload := new(CredentialsPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.empty(ctx, router.StatusBadRequest)
	}

	payload.Email = strings.TrimSpace(payload.Email)

	a.dump("users.login", payload)

	if err := payload.Validate(); err != nil {
		return a.empty(ctx, router.StatusBadRequest)
	}

	user, token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		// rejections answer 400 so a client can not tell them from bad input
		if IsAuthenticationRejection(err) || IsValidationError(err) {
			a.Logger.Debug("login rejected", "error", err)
			return a.empty(ctx, router.StatusBadRequest)
		}
		return a.failure(ctx, "users.login", err)
	}

	ctx.SetHeader(a.TokenHeader, token)
	return ctx.JSON(router.StatusOK, user)
}

// Me returns the authenticated user
func (a *UsersController) Me(ctx router.Context) error {
	user, ok := sessionware.Value[*User](ctx, a.ContextKey)
	if !ok || user == nil {
		return a.empty(ctx, router.StatusUnauthorized)
	}
	return ctx.JSON(router.StatusOK, user)
}

// sessionError answers a failed session check. Rejections are 401,
// anything else is a server failure.
func (a *UsersController) sessionError(ctx router.Context, err error) error {
	if IsAuthenticationRejection(err) {
		a.Logger.Debug("session rejected", "error", err)
		return a.empty(ctx, router.StatusUnauthorized)
	}
	return a.failure(ctx, "users.me", err)
}

func (a *UsersController) failure(ctx router.Context, route string, err error) error {
	status := StatusCode(err)
	if status < router.StatusInternalServerError {
		status = router.StatusInternalServerError
	}
	a.Logger.Error("request failed", "route", route, "status", status, "error", err)
	return a.empty(ctx, status)
}

func (a *UsersController) empty(ctx router.Context, status int) error {
	return ctx.Status(status).SendString("")
}

func (a *UsersController) dump(route string, payload *CredentialsPayload) {
	if !a.Debug {
		return
	}
	a.Logger.Debug("request payload", "route", route, "payload", print.MaybePrettyJSON(payload.redacted()))
}
