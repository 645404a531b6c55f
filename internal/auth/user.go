// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// User represents a registered account.
//
// PasswordHash is produced only by a PasswordHasher; plaintext never
// reaches the store. SessionToken and ResetToken hold at most one live
// opaque value each; nil means absent.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	SessionToken *string
	ResetToken   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenChange describes what an update does to an optional token
// column: set a new value, clear it, or leave it alone (the zero
// value). The three cases are distinct so a partial update cannot
// accidentally wipe a token.
type TokenChange struct {
	touch bool
	value *string
}

// SetToken returns a TokenChange that overwrites the column with token.
func SetToken(token string) TokenChange {
	return TokenChange{touch: true, value: &token}
}

// ClearToken returns a TokenChange that sets the column to absent.
func ClearToken() TokenChange {
	return TokenChange{touch: true}
}

// Touched reports whether the update modifies the column at all.
func (c TokenChange) Touched() bool { return c.touch }

// Value returns the new column value; nil means absent. Only
// meaningful when Touched is true.
func (c TokenChange) Value() *string { return c.value }

// UserUpdate is the closed set of fields a store update may touch:
// exactly {password_hash, session_token, reset_token}. Anything else
// is unrepresentable, so an unknown-field failure cannot occur at
// runtime. The zero value updates nothing.
type UserUpdate struct {
	PasswordHash *string
	SessionToken TokenChange
	ResetToken   TokenChange
}

// Empty reports whether the update touches no fields.
func (u UserUpdate) Empty() bool {
	return u.PasswordHash == nil && !u.SessionToken.Touched() && !u.ResetToken.Touched()
}

// UserStore manages user persistence. Lookups are typed per unique
// field. Update must apply as a single atomic read-modify-write:
// concurrent token issuance and consumption for the same user must
// never leave two tokens valid at once or a consumed token resolving.
type UserStore interface {
	// Create stores a new user. Returns ErrConflict if the email is
	// already registered (case-sensitive, as stored).
	Create(ctx context.Context, email, passwordHash string) (*User, error)

	// GetByID retrieves a user by ID. Returns ErrNotFound on miss.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by exact email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetBySessionToken retrieves the user holding the given live
	// session token.
	GetBySessionToken(ctx context.Context, token string) (*User, error)

	// GetByResetToken retrieves the user holding the given live reset
	// token.
	GetByResetToken(ctx context.Context, token string) (*User, error)

	// Update applies a partial update atomically. Returns ErrNotFound
	// for an unknown id.
	Update(ctx context.Context, id ulid.ULID, update UserUpdate) error
}
