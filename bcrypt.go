package auth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost matches the salt rounds used by existing
// deployments so their hashes keep verifying.
const DefaultPasswordCost = 10

// PasswordHasher hashes and checks passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) error
}

// BcryptHasher is a bcrypt PasswordHasher
type BcryptHasher struct {
	cost int
}

var _ PasswordHasher = BcryptHasher{}

// NewBcryptHasher returns a hasher for the given cost. Out of range
// costs fall back to the build default.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return BcryptHasher{cost: cost}
}

// Cost returns the configured work factor
func (h BcryptHasher) Cost() int {
	return h.cost
}

// Hash will generate a salted password hash
func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	cost := h.cost
	if cost == 0 {
		cost = passwordHashCost()
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Compare will validate the given cleartext password matches
// the hashed password
func (h BcryptHasher) Compare(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash hashes a random value. Useful as a stand in hash
// that no password will match.
func RandomPasswordHash(h PasswordHasher) (string, error) {
	return h.Hash(uuid.NewString())
}
