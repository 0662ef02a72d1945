package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	auth "github.com/goliatone/go-session-auth"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthenticator implements auth.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Register(ctx context.Context, email, password string) (*auth.User, string, error) {
	args := m.Called(ctx, email, password)
	return userOrNil(args.Get(0)), args.String(1), args.Error(2)
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*auth.User, string, error) {
	args := m.Called(ctx, email, password)
	return userOrNil(args.Get(0)), args.String(1), args.Error(2)
}

func (m *MockAuthenticator) FindByToken(ctx context.Context, token string) (*auth.User, error) {
	args := m.Called(ctx, token)
	return userOrNil(args.Get(0)), args.Error(1)
}

func newTestApp(a auth.Authenticator, opts ...auth.UsersControllerOption) *fiber.App {
	var app *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		return app
	})
	auth.RegisterUserRoutes(srv.Router(), auth.NewUsersController(a, opts...))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (*http.Response, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	return resp, string(raw)
}

func TestUsersRoutes_EndToEnd(t *testing.T) {
	app := newTestApp(newTestAuther(t, newTestUsers(t)))

	resp, body := doJSON(t, app, http.MethodPost, "/users",
		`{"email":"andrew@example.com","password":"userOnePass"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	token := resp.Header.Get("x-auth")
	require.NotEmpty(t, token)

	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Len(t, created, 2)
	assert.Equal(t, "andrew@example.com", created["email"])
	assert.NotEmpty(t, created["id"])

	resp, body = doJSON(t, app, http.MethodGet, "/users/me", "", map[string]string{"x-auth": token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &me))
	assert.Equal(t, created["id"], me["id"])
	assert.Equal(t, "andrew@example.com", me["email"])

	resp, body = doJSON(t, app, http.MethodPost, "/users/login",
		`{"email":"andrew@example.com","password":"userOnePass"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loginToken := resp.Header.Get("x-auth")
	assert.NotEmpty(t, loginToken)
	assert.NotEqual(t, token, loginToken)
	assert.Contains(t, body, "andrew@example.com")

	resp, _ = doJSON(t, app, http.MethodGet, "/users/me", "", map[string]string{"x-auth": loginToken})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUsersRoutes_CreateRejections(t *testing.T) {
	app := newTestApp(newTestAuther(t, newTestUsers(t)))

	resp, _ := doJSON(t, app, http.MethodPost, "/users",
		`{"email":"andrew@example.com","password":"userOnePass"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "invalid email", body: `{"email":"and","password":"123mnb!"}`, field: "email"},
		{name: "short password", body: `{"email":"jen@example.com","password":"123"}`, field: "password"},
		{name: "duplicate email", body: `{"email":"andrew@example.com","password":"userOnePass"}`, field: "email"},
		{name: "malformed body", body: `{"email":`, field: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/users", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Empty(t, resp.Header.Get("x-auth"))

			var out struct {
				Errors map[string]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &out))
			assert.Contains(t, out.Errors, tt.field)
		})
	}
}

func TestUsersRoutes_LoginRejectionsHaveEmptyBody(t *testing.T) {
	app := newTestApp(newTestAuther(t, newTestUsers(t)))

	resp, _ := doJSON(t, app, http.MethodPost, "/users",
		`{"email":"andrew@example.com","password":"userOnePass"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tests := []struct {
		name string
		body string
	}{
		{name: "wrong password", body: `{"email":"andrew@example.com","password":"wrongPass"}`},
		{name: "unknown email", body: `{"email":"nobody@example.com","password":"userOnePass"}`},
		{name: "missing password", body: `{"email":"andrew@example.com"}`},
		{name: "malformed body", body: `{"email":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/users/login", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Empty(t, body)
			assert.Empty(t, resp.Header.Get("x-auth"))
		})
	}
}

func TestUsersRoutes_MeRejections(t *testing.T) {
	users := newTestUsers(t)
	app := newTestApp(newTestAuther(t, users))

	foreign, err := newTestTokenService(t, "other-secret").Sign(uuid.NewString(), auth.ScopeAuth)
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "no header"},
		{name: "garbage token", headers: map[string]string{"x-auth": "garbage"}},
		{name: "foreign signature", headers: map[string]string{"x-auth": foreign}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodGet, "/users/me", "", tt.headers)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Empty(t, body)
		})
	}
}

func TestUsersRoutes_PersistenceFailureIs500(t *testing.T) {
	a := new(MockAuthenticator)
	a.On("Register", mock.Anything, "andrew@example.com", "userOnePass").
		Return(nil, "", auth.ErrWriteConflict).Once()
	a.On("Login", mock.Anything, "andrew@example.com", "userOnePass").
		Return(nil, "", auth.ErrPersistence).Once()
	a.On("FindByToken", mock.Anything, "session-token").
		Return(nil, oops.In("auth").Code("user_get_by_token").Wrap(auth.ErrPersistence)).Once()

	app := newTestApp(a)

	resp, body := doJSON(t, app, http.MethodPost, "/users",
		`{"email":"andrew@example.com","password":"userOnePass"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, body)

	resp, body = doJSON(t, app, http.MethodPost, "/users/login",
		`{"email":"andrew@example.com","password":"userOnePass"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, body)

	resp, body = doJSON(t, app, http.MethodGet, "/users/me", "", map[string]string{"x-auth": "session-token"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, body)

	a.AssertExpectations(t)
}

func TestUsersRoutes_MeRejectedTokenIs401(t *testing.T) {
	a := new(MockAuthenticator)
	a.On("FindByToken", mock.Anything, "stale-token").Return(nil, auth.ErrTokenNotFound).Once()

	app := newTestApp(a)

	resp, body := doJSON(t, app, http.MethodGet, "/users/me", "", map[string]string{"x-auth": "stale-token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, body)
	a.AssertExpectations(t)
}

func TestUsersRoutes_LoginTrimsEmail(t *testing.T) {
	app := newTestApp(newTestAuther(t, newTestUsers(t)))

	resp, _ := doJSON(t, app, http.MethodPost, "/users",
		`{"email":"  andrew@example.com ","password":"userOnePass"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/users/login",
		`{"email":"  andrew@example.com ","password":"userOnePass"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("x-auth"))
	assert.Contains(t, body, "andrew@example.com")
	assert.NotContains(t, body, "  andrew")
}

func TestUsersRoutes_CustomTokenHeader(t *testing.T) {
	user := &auth.User{ID: uuid.New(), Email: "andrew@example.com"}

	a := new(MockAuthenticator)
	a.On("FindByToken", mock.Anything, "session-token").Return(user, nil).Once()

	app := newTestApp(a, auth.WithControllerTokenHeader("x-session"))

	resp, _ := doJSON(t, app, http.MethodGet, "/users/me", "", map[string]string{"x-auth": "session-token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/users/me", "", map[string]string{"x-session": "session-token"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, user.ID.String())
	a.AssertExpectations(t)
}
