// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

// Package authtest provides test doubles for the auth package: an
// in-memory UserStore with the same atomicity guarantees as the
// postgres implementation, and deterministic token sources.
package authtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/credgate/credgate/internal/auth"
)

// MemoryStore is a mutex-guarded in-memory auth.UserStore. Every
// Update is applied under the lock, so token overwrites are atomic.
type MemoryStore struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[ulid.ULID]*auth.User)}
}

// Create stores a new user, enforcing case-sensitive email uniqueness.
func (s *MemoryStore) Create(_ context.Context, email, passwordHash string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, auth.ErrConflict
		}
	}

	now := time.Now()
	user := &auth.User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	return snapshot(user), nil
}

// GetByID retrieves a user by ID.
func (s *MemoryStore) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return snapshot(user), nil
}

// GetByEmail retrieves a user by exact email.
func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return s.findOne(func(u *auth.User) bool { return u.Email == email })
}

// GetBySessionToken retrieves the user holding the session token.
func (s *MemoryStore) GetBySessionToken(_ context.Context, token string) (*auth.User, error) {
	return s.findOne(func(u *auth.User) bool {
		return u.SessionToken != nil && *u.SessionToken == token
	})
}

// GetByResetToken retrieves the user holding the reset token.
func (s *MemoryStore) GetByResetToken(_ context.Context, token string) (*auth.User, error) {
	return s.findOne(func(u *auth.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token
	})
}

// Update applies a partial update atomically under the store lock.
func (s *MemoryStore) Update(_ context.Context, id ulid.ULID, update auth.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}

	if update.PasswordHash != nil {
		user.PasswordHash = *update.PasswordHash
	}
	if update.SessionToken.Touched() {
		user.SessionToken = copyToken(update.SessionToken.Value())
	}
	if update.ResetToken.Touched() {
		user.ResetToken = copyToken(update.ResetToken.Value())
	}
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) findOne(match func(*auth.User) bool) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if match(u) {
			return snapshot(u), nil
		}
	}
	return nil, auth.ErrNotFound
}

// snapshot copies a user so callers never alias store-internal state.
func snapshot(u *auth.User) *auth.User {
	c := *u
	c.SessionToken = copyToken(u.SessionToken)
	c.ResetToken = copyToken(u.ResetToken)
	return &c
}

func copyToken(t *string) *string {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SequenceTokens is an auth.TokenSource handing out "token-1",
// "token-2", ... for deterministic assertions.
type SequenceTokens struct {
	mu sync.Mutex
	n  int
}

// NewToken returns the next token in the sequence.
func (t *SequenceTokens) NewToken() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	return fmt.Sprintf("token-%d", t.n), nil
}

// FailingTokens is an auth.TokenSource that always fails.
type FailingTokens struct{ Err error }

// NewToken returns the configured error.
func (t FailingTokens) NewToken() (string, error) { return "", t.Err }

// Verify interfaces are satisfied.
var (
	_ auth.UserStore   = (*MemoryStore)(nil)
	_ auth.TokenSource = (*SequenceTokens)(nil)
	_ auth.TokenSource = FailingTokens{}
)
