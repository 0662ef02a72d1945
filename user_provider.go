package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// UserFinder is the store lookup UserProvider needs
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserProvider checks email and password pairs
type UserProvider struct {
	store  UserFinder
	hasher PasswordHasher
	logger Logger

	dummyOnce sync.Once
	dummyHash string
	dummyErr  error
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder, hasher PasswordHasher) *UserProvider {
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultPasswordCost)
	}
	return &UserProvider{
		store:  store,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// FindByCredentials returns the user for the given email and password.
// Unknown email and wrong password produce the same error after the
// same amount of hashing work.
func (u *UserProvider) FindByCredentials(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)

	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			u.compareDummy(password)
			return nil, u.rejected(email)
		}
		u.logger.Error("user provider lookup failed", "error", err)
		return nil, err
	}

	if err := u.hasher.Compare(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, u.rejected(email)
		}
		u.logger.Error("user provider compare failed", "user_id", user.GetID(), "error", err)
		return nil, oops.
			In("auth").
			Code("password_compare").
			With("user_id", user.GetID()).
			Wrap(wrapInternal(err, "unable to compare password"))
	}

	return user, nil
}

func (u *UserProvider) rejected(email string) error {
	u.logger.Debug("user provider rejected credentials", "email", email)
	return oops.
		In("auth").
		Code("invalid_credentials").
		Wrap(ErrInvalidCredentials)
}

func (u *UserProvider) compareDummy(password string) {
	u.dummyOnce.Do(func() {
		u.dummyHash, u.dummyErr = RandomPasswordHash(u.hasher)
	})
	if u.dummyErr != nil {
		return
	}
	_ = u.hasher.Compare(password, u.dummyHash)
}
