package auth

import (
	"context"
	"database/sql"
	"log"

	goerrors "github.com/goliatone/go-errors"
	"github.com/samber/oops"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	EnsureSchema(ctx context.Context) error
}

type mngr struct {
	db    *bun.DB
	users Users
}

// NewRepositoryManager wires the repositories over db
func NewRepositoryManager(db *bun.DB, opts ...UsersOption) RepositoryManager {
	return &mngr{
		db:    db,
		users: NewUsersRepository(db, opts...),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return goerrors.New("repository database should be initialized", goerrors.CategoryInternal)
	}

	if m.users == nil {
		return goerrors.New("repository users should be initialized", goerrors.CategoryInternal)
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

// EnsureSchema creates the users table when missing
func (m mngr) EnsureSchema(ctx context.Context) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewCreateTable().
			Model((*User)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return oops.
				In("auth").
				Code("schema_users").
				Wrap(wrapPersistence(err, "unable to create users table"))
		}
		return nil
	})
}
