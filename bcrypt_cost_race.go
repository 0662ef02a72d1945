//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Race builds run much slower, keep hashing cheap there.
	return bcrypt.MinCost
}
