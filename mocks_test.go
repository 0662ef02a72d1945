package auth_test

import (
	"context"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockConfig implements auth.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetIssuer() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetTokenHeader() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetPasswordCost() int {
	return m.Called().Int(0)
}

func (m *MockConfig) GetConflictDetection() bool {
	return m.Called().Bool(0)
}

func newMockConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetSigningKey").Return("test-signing-key").Maybe()
	cfg.On("GetIssuer").Return("").Maybe()
	cfg.On("GetTokenHeader").Return("x-auth").Maybe()
	cfg.On("GetPasswordCost").Return(4).Maybe()
	cfg.On("GetConflictDetection").Return(false).Maybe()
	return cfg
}

// MockUsers implements auth.Users
type MockUsers struct {
	mock.Mock
}

var _ auth.Users = (*MockUsers)(nil)

func userOrNil(v any) *auth.User {
	if v == nil {
		return nil
	}
	return v.(*auth.User)
}

func (m *MockUsers) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, user)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id string) (*auth.User, error) {
	args := m.Called(ctx, id)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	args := m.Called(ctx, tx, email)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByToken(ctx context.Context, id, token, scope string) (*auth.User, error) {
	args := m.Called(ctx, id, token, scope)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, user)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) UpdateVersioned(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) UpdateVersionedTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, user)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *MockUsers) CountByEmail(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

// MockTokenService implements auth.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Sign(userID, scope string) (string, error) {
	args := m.Called(userID, scope)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(token string) (*auth.SessionClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.SessionClaims), args.Error(1)
}

// MockPasswordHasher implements auth.PasswordHasher
type MockPasswordHasher struct {
	mock.Mock
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Compare(password, hash string) error {
	return m.Called(password, hash).Error(0)
}
