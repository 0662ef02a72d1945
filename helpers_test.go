package auth_test

import (
	"context"
	"fmt"
	"testing"

	auth "github.com/goliatone/go-session-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

type testDBConfig struct {
	dsn string
}

func (c testDBConfig) GetDriver() string { return auth.DriverSQLite }
func (c testDBConfig) GetDSN() string    { return c.dsn }
func (c testDBConfig) GetDebug() bool    { return false }

// newTestDB opens a private in memory SQLite database with the schema
// in place.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := auth.OpenDB(testDBConfig{
		dsn: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := auth.NewRepositoryManager(db)
	require.NoError(t, repo.EnsureSchema(context.Background()))

	return db
}

var testHasher = auth.NewBcryptHasher(bcrypt.MinCost)

func newTestUsers(t *testing.T) auth.Users {
	t.Helper()
	return auth.NewUsersRepository(newTestDB(t), auth.WithUsersPasswordHasher(testHasher))
}

func newTestAuther(t *testing.T, users auth.Users, opts ...auth.AutherOption) *auth.Auther {
	t.Helper()
	opts = append([]auth.AutherOption{auth.WithPasswordHasher(testHasher)}, opts...)
	a, err := auth.NewAuthenticator(users, newMockConfig(), opts...)
	require.NoError(t, err)
	return a
}

func newTestTokenService(t *testing.T, key string, opts ...auth.TokenServiceOption) *auth.JWTTokenService {
	t.Helper()
	ts, err := auth.NewTokenService([]byte(key), opts...)
	require.NoError(t, err)
	return ts
}
