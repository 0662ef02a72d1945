package auth

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUserInvalid        = "auth_user_invalid"
	TextCodeDuplicateEmail     = "auth_duplicate_email"
	TextCodeUserRequired       = "auth_user_required"
	TextCodeEmptyPassword      = "auth_empty_password"
	TextCodeUnsupportedDriver  = "auth_unsupported_driver"
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodePasswordMismatch   = "auth_password_mismatch"
	TextCodeTokenMalformed     = "auth_token_malformed"
	TextCodeTokenNotFound      = "auth_token_not_found"
	TextCodeMissingToken       = "auth_missing_token"
	TextCodeUserNotFound       = "auth_user_not_found"
	TextCodeWriteConflict      = "auth_write_conflict"
	TextCodePersistence        = "auth_persistence_failure"
	TextCodePasswordHash       = "auth_password_hash_failed"
	TextCodeTokenSigning       = "auth_token_signing_failed"
	TextCodeSigningKeyRequired = "auth_signing_key_required"
	TextCodeInternal           = "auth_internal_failure"
)

// ErrDuplicateEmail email is already registered
var ErrDuplicateEmail = goerrors.New("email is already in use", goerrors.CategoryValidation).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrUserRequired a user with an id is needed for this operation
var ErrUserRequired = goerrors.New("user is required", goerrors.CategoryValidation).
	WithTextCode(TextCodeUserRequired).
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString an empty password can not be hashed
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrUnsupportedDriver the database driver is not one we can open
var ErrUnsupportedDriver = goerrors.New("unsupported database driver", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUnsupportedDriver).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials unknown email or wrong password
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword password does not match the hash
var ErrMismatchedHashAndPassword = goerrors.New("password mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed token failed signature or format checks
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenNotFound token is valid but no user holds it
var ErrTokenNotFound = goerrors.New("token not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingToken request carried no token
var ErrMissingToken = goerrors.New("missing token", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserNotFound no record matched the lookup
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrWriteConflict the record changed since it was read
var ErrWriteConflict = goerrors.New("write conflict", goerrors.CategoryConflict).
	WithTextCode(TextCodeWriteConflict).
	WithCode(goerrors.CodeConflict)

// ErrPersistence the store failed for a reason we do not classify
var ErrPersistence = goerrors.New("persistence failure", goerrors.CategoryOperation).
	WithTextCode(TextCodePersistence).
	WithCode(goerrors.CodeInternal)

// ErrPasswordHash the hasher failed
var ErrPasswordHash = goerrors.New("unable to hash password", goerrors.CategoryInternal).
	WithTextCode(TextCodePasswordHash).
	WithCode(goerrors.CodeInternal)

// ErrTokenSigning the token could not be signed
var ErrTokenSigning = goerrors.New("unable to sign token", goerrors.CategoryInternal).
	WithTextCode(TextCodeTokenSigning).
	WithCode(goerrors.CodeInternal)

// ErrSigningKeyRequired no signing key was configured
var ErrSigningKeyRequired = goerrors.New("signing key is required", goerrors.CategoryInternal).
	WithTextCode(TextCodeSigningKeyRequired).
	WithCode(goerrors.CodeInternal)

// IsValidationError reports bad input
func IsValidationError(err error) bool {
	richErr, ok := richError(err)
	if !ok {
		return false
	}
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return true
	}
	return false
}

// IsAuthenticationRejection reports refused credentials or tokens
func IsAuthenticationRejection(err error) bool {
	richErr, ok := richError(err)
	return ok && richErr.Category == goerrors.CategoryAuth
}

// IsPersistenceFailure reports storage failures, including lookups
// that found nothing and versioned writes that lost a race.
func IsPersistenceFailure(err error) bool {
	richErr, ok := richError(err)
	if !ok {
		return false
	}
	switch richErr.Category {
	case goerrors.CategoryOperation, goerrors.CategoryNotFound, goerrors.CategoryConflict:
		return true
	}
	return false
}

// IsInternalError reports hashing and signing failures
func IsInternalError(err error) bool {
	richErr, ok := richError(err)
	return ok && richErr.Category == goerrors.CategoryInternal
}

// StatusCode returns the HTTP status carried by err. Errors without
// a code are treated as internal failures.
func StatusCode(err error) int {
	richErr, ok := richError(err)
	if !ok || richErr.Code == 0 {
		return goerrors.CodeInternal
	}
	return richErr.Code
}

// ValidationDetails returns field level messages for a validation
// error. It returns nil for any other error.
func ValidationDetails(err error) map[string]string {
	if !IsValidationError(err) {
		return nil
	}

	richErr, _ := richError(err)
	out := map[string]string{}

	for field, msg := range richErr.Metadata {
		out[field] = fmt.Sprint(msg)
	}

	if richErr.TextCode == TextCodeDuplicateEmail {
		out["email"] = richErr.Message
	}

	if len(out) == 0 {
		out["user"] = richErr.Message
	}

	return out
}

func richError(err error) (*goerrors.Error, bool) {
	if err == nil {
		return nil, false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return nil, false
	}
	return richErr, true
}

// validationError turns ozzo field errors into a validation error
// whose metadata holds one message per field.
func validationError(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]any{}
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	}

	return goerrors.Wrap(err, goerrors.CategoryValidation, "user is invalid").
		WithTextCode(TextCodeUserInvalid).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(fields)
}

// wrapPersistence classifies a raw store error. Errors that already
// carry a category pass through.
func wrapPersistence(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := richError(err); ok {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryOperation, message).
		WithTextCode(TextCodePersistence).
		WithCode(goerrors.CodeInternal)
}

func wrapInternal(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := richError(err); ok {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodeInternal).
		WithCode(goerrors.CodeInternal)
}

// isUniqueViolation matches the unique constraint errors of the
// supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
