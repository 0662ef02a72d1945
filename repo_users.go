package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/uptrace/bun"
)

// Users is the credential store
type Users interface {
	Create(ctx context.Context, user *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByToken(ctx context.Context, id, token, scope string) (*User, error)
	// Update writes the full record, last write wins.
	Update(ctx context.Context, user *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	// UpdateVersioned writes the full record only if the stored
	// version still matches the one the caller read.
	UpdateVersioned(ctx context.Context, user *User) (*User, error)
	UpdateVersionedTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	CountByEmail(ctx context.Context, email string) (int, error)
}

type users struct {
	base   repository.Repository[*User]
	db     *bun.DB
	save   SavePipeline
	logger Logger
	now    func() time.Time
}

var _ Users = (*users)(nil)

// UsersOption configures the users repository
type UsersOption func(*users)

// NewUsersRepository returns the bun backed credential store. Every
// write goes through the save pipeline, by default validation plus
// bcrypt hashing of staged passwords.
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	base := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repo := &users{
		base:   base,
		db:     db,
		save:   DefaultSavePipeline(NewBcryptHasher(DefaultPasswordCost)),
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}

	return repo
}

// WithUsersSavePipeline replaces the pipeline run before each write
func WithUsersSavePipeline(p SavePipeline) UsersOption {
	return func(u *users) {
		u.save = p
	}
}

// WithUsersPasswordHasher keeps the default stages with a custom hasher
func WithUsersPasswordHasher(h PasswordHasher) UsersOption {
	return func(u *users) {
		if h != nil {
			u.save = DefaultSavePipeline(h)
		}
	}
}

// WithUsersLogger sets the repository logger
func WithUsersLogger(l Logger) UsersOption {
	return func(u *users) {
		if l != nil {
			u.logger = l
		}
	}
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	return a.CreateTx(ctx, a.db, user)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if err := a.save.Run(ctx, user); err != nil {
		return nil, err
	}

	prepareUserDefaults(user, a.now())

	if _, err := a.GetByEmailTx(ctx, tx, user.Email); err == nil {
		return nil, oops.
			In("auth").
			Code("user_duplicate_email").
			With("email", user.Email).
			Wrap(ErrDuplicateEmail)
	} else if !IsRecordNotFound(err) {
		return nil, err
	}

	record, err := a.base.CreateTx(ctx, tx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.
				In("auth").
				Code("user_duplicate_email").
				With("email", user.Email).
				Wrap(ErrDuplicateEmail)
		}
		return nil, persistenceError("user_create", err, user)
	}

	return record, nil
}

func (a *users) GetByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, oops.
			In("auth").
			Code("user_not_found").
			With("user_id", id).
			Wrap(ErrUserNotFound)
	}

	record, err := a.base.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if isNoRows(err) {
			return nil, oops.
				In("auth").
				Code("user_not_found").
				With("user_id", id).
				Wrap(ErrUserNotFound)
		}
		return nil, persistenceError("user_get", err, nil)
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, oops.
				In("auth").
				Code("user_not_found").
				With("email", email).
				Wrap(ErrUserNotFound)
		}
		return nil, persistenceError("user_get_by_email", err, nil)
	}

	return record, nil
}

// GetByToken finds the user with the given id holding the exact
// token under scope.
func (a *users) GetByToken(ctx context.Context, id, token, scope string) (*User, error) {
	record, err := a.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !record.HasToken(token, scope) {
		return nil, oops.
			In("auth").
			Code("user_token_not_found").
			With("user_id", id).
			Wrap(ErrUserNotFound)
	}

	return record, nil
}

func (a *users) Update(ctx context.Context, user *User) (*User, error) {
	return a.UpdateTx(ctx, a.db, user)
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.update(ctx, tx, user, false)
}

func (a *users) UpdateVersioned(ctx context.Context, user *User) (*User, error) {
	return a.UpdateVersionedTx(ctx, a.db, user)
}

func (a *users) UpdateVersionedTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.update(ctx, tx, user, true)
}

func (a *users) update(ctx context.Context, tx bun.IDB, user *User, versioned bool) (*User, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, ErrUserRequired
	}

	if err := a.save.Run(ctx, user); err != nil {
		return nil, err
	}

	expected := user.Version
	updatedAt := user.UpdatedAt

	user.Version = expected + 1
	user.UpdatedAt = a.now()

	q := tx.NewUpdate().
		Model(user).
		ExcludeColumn("created_at").
		WherePK()

	if versioned {
		q = q.Where("?TableAlias.version = ?", expected)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		user.Version = expected
		user.UpdatedAt = updatedAt
		if isUniqueViolation(err) {
			return nil, oops.
				In("auth").
				Code("user_duplicate_email").
				With("email", user.Email).
				Wrap(ErrDuplicateEmail)
		}
		return nil, persistenceError("user_update", err, user)
	}

	if rows, rerr := res.RowsAffected(); rerr == nil && rows == 0 {
		user.Version = expected
		user.UpdatedAt = updatedAt

		if versioned {
			a.logger.Warn("user update lost a version race", "user_id", user.GetID(), "version", expected)
			return nil, oops.
				In("auth").
				Code("user_write_conflict").
				With("user_id", user.GetID()).
				With("version", expected).
				Wrap(ErrWriteConflict)
		}

		return nil, oops.
			In("auth").
			Code("user_not_found").
			With("user_id", user.GetID()).
			Wrap(ErrUserNotFound)
	}

	return user, nil
}

func (a *users) CountByEmail(ctx context.Context, email string) (int, error) {
	count, err := a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Count(ctx)
	if err != nil {
		return 0, persistenceError("user_count", err, nil)
	}
	return count, nil
}

// IsRecordNotFound checks for a missing user
func IsRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUserNotFound) || isNoRows(err)
}

func isNoRows(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

func prepareUserDefaults(record *User, now time.Time) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Tokens == nil {
		record.Tokens = []TokenEntry{}
	}

	if record.Version == 0 {
		record.Version = 1
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}

func persistenceError(code string, err error, user *User) error {
	b := oops.In("auth").Code(code)
	if user != nil {
		b = b.With("user_id", user.GetID())
	}
	return b.Wrap(wrapPersistence(err, "users store failure"))
}
