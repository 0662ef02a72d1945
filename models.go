package auth

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ScopeAuth is the scope of tokens that authorize protected requests
const ScopeAuth = "auth"

// TokenEntry is a session token issued to a user
type TokenEntry struct {
	Scope string `json:"scope"`
	Token string `json:"token"`
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID    `bun:"id,pk,type:uuid" json:"id"`
	Email         string       `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string       `bun:"password_hash,notnull" json:"-"`
	Tokens        []TokenEntry `bun:"tokens" json:"-"`
	Version       int64        `bun:"version,notnull,default:1" json:"-"`
	CreatedAt     time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
	UpdatedAt     time.Time    `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"-"`

	password         string
	passwordModified bool
}

// NewUser returns a user with the given email and plaintext password
// staged for hashing on the next save.
func NewUser(email, password string) *User {
	u := &User{Email: email}
	u.SetPassword(password)
	return u
}

// SetPassword stages a plaintext password. The save pipeline
// replaces it with a hash before the record is written.
func (u *User) SetPassword(password string) {
	u.password = password
	u.passwordModified = true
}

// PasswordModified reports whether a plaintext password is staged.
func (u *User) PasswordModified() bool {
	return u.passwordModified
}

func (u *User) plaintextPassword() string {
	return u.password
}

func (u *User) clearPassword() {
	u.password = ""
	u.passwordModified = false
}

// AddToken appends a token entry. The previous backing array is
// never shared with the new slice.
func (u *User) AddToken(scope, token string) {
	u.Tokens = append(slices.Clip(u.Tokens), TokenEntry{
		Scope: scope,
		Token: token,
	})
}

// HasToken checks for an entry matching both token and scope
func (u *User) HasToken(token, scope string) bool {
	if token == "" {
		return false
	}
	for _, t := range u.Tokens {
		if t.Token == token && t.Scope == scope {
			return true
		}
	}
	return false
}

// GetID returns the user id as a string
func (u *User) GetID() string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}
