package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

const (
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 6
	// MaxPasswordLength is the longest password bcrypt can hash
	MaxPasswordLength = 72
)

// Validate checks the user fields. The password is only checked
// while a plaintext value is staged.
func (u *User) Validate() error {
	u.Email = strings.TrimSpace(u.Email)

	errs := validation.Errors{
		"email": validation.Validate(u.Email,
			validation.Required,
			is.Email,
		),
	}

	if u.passwordModified {
		errs["password"] = validation.Validate(u.password,
			validation.Required,
			validation.Length(MinPasswordLength, MaxPasswordLength),
		)
	}

	return errs.Filter()
}

// SaveStage runs against a user right before it is written
type SaveStage func(ctx context.Context, user *User) error

// SavePipeline is an ordered list of stages. The first failing
// stage aborts the save.
type SavePipeline struct {
	stages []SaveStage
}

// NewSavePipeline creates a pipeline from the given stages
func NewSavePipeline(stages ...SaveStage) SavePipeline {
	return SavePipeline{stages: stages}
}

// DefaultSavePipeline validates and then hashes a staged password
func DefaultSavePipeline(hasher PasswordHasher) SavePipeline {
	return NewSavePipeline(
		ValidateUserStage(),
		HashPasswordStage(hasher),
	)
}

// Run executes the stages in order
func (p SavePipeline) Run(ctx context.Context, user *User) error {
	if user == nil {
		return ErrUserRequired
	}
	for _, stage := range p.stages {
		if stage == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stage(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUserStage rejects records with invalid fields
func ValidateUserStage() SaveStage {
	return func(_ context.Context, user *User) error {
		if err := user.Validate(); err != nil {
			return oops.
				In("auth").
				Code("user_invalid").
				With("email", user.Email).
				Wrap(validationError(err))
		}
		return nil
	}
}

// HashPasswordStage replaces a staged plaintext password with its
// hash. Records without a staged password pass through untouched.
func HashPasswordStage(hasher PasswordHasher) SaveStage {
	return func(_ context.Context, user *User) error {
		if !user.PasswordModified() {
			return nil
		}

		hash, err := hasher.Hash(user.plaintextPassword())
		if err != nil {
			return oops.
				In("auth").
				Code("password_hash").
				With("user_id", user.GetID()).
				Wrapf(ErrPasswordHash, "%v", err)
		}

		user.PasswordHash = hash
		user.clearPassword()
		return nil
	}
}
