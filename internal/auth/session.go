// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionManager issues, resolves, and invalidates session tokens.
type SessionManager struct {
	store  UserStore
	tokens TokenSource
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(store UserStore, tokens TokenSource) (*SessionManager, error) {
	if store == nil {
		return nil, oops.Code("SESSION_NIL_DEPENDENCY").Errorf("user store is required")
	}
	if tokens == nil {
		return nil, oops.Code("SESSION_NIL_DEPENDENCY").Errorf("token source is required")
	}
	return &SessionManager{store: store, tokens: tokens}, nil
}

// Create looks up the user by email, mints a fresh session token, and
// atomically overwrites any previous one; the old token stops resolving
// the instant the new one exists. Returns ErrNotFound for an unknown
// email — the caller maps that to "login failed", not an internal
// fault.
func (m *SessionManager) Create(ctx context.Context, email string) (string, error) {
	user, err := m.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("SESSION_USER_NOT_FOUND").
				With("email", email).
				Wrap(ErrNotFound)
		}
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := m.tokens.NewToken()
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	if err := m.store.Update(ctx, user.ID, UserUpdate{SessionToken: SetToken(token)}); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return token, nil
}

// Resolve returns the user holding the given session token, or nil if
// the token resolves to no identity. An empty token is rejected before
// any store call: the store never contains an empty token, so "no
// cookie" must not turn into a lookup for one. Only store failures are
// errors; an unknown token is (nil, nil).
func (m *SessionManager) Resolve(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}

	user, err := m.store.GetBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get user by session token").
			Wrap(err)
	}
	return user, nil
}

// Invalidate clears the user's session token. Idempotent: invalidating
// an already-logged-out or unknown user is a no-op, not an error.
func (m *SessionManager) Invalidate(ctx context.Context, userID ulid.ULID) error {
	err := m.store.Update(ctx, userID, UserUpdate{SessionToken: ClearToken()})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_INVALIDATE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}
