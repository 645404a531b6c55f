// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// ResetTokenManager issues single-use password reset tokens and
// consumes them to rotate a password.
type ResetTokenManager struct {
	store  UserStore
	hasher PasswordHasher
	tokens TokenSource
}

// NewResetTokenManager creates a ResetTokenManager.
func NewResetTokenManager(store UserStore, hasher PasswordHasher, tokens TokenSource) (*ResetTokenManager, error) {
	if store == nil {
		return nil, oops.Code("RESET_NIL_DEPENDENCY").Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("RESET_NIL_DEPENDENCY").Errorf("token source is required")
	}
	return &ResetTokenManager{store: store, hasher: hasher, tokens: tokens}, nil
}

// Issue mints a reset token for the account registered under email,
// overwriting any previous one. Returns ErrNotFound for an unknown
// email; the boundary renders that as the same opaque failure as an
// invalid consume so the wire never confirms whether an email exists.
func (m *ResetTokenManager) Issue(ctx context.Context, email string) (string, error) {
	user, err := m.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("RESET_USER_NOT_FOUND").
				With("email", email).
				Wrap(ErrNotFound)
		}
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := m.tokens.NewToken()
	if err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	if err := m.store.Update(ctx, user.ID, UserUpdate{ResetToken: SetToken(token)}); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "persist token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return token, nil
}

// Consume rotates the password of the user holding the given reset
// token. The new hash is written and the token cleared in ONE atomic
// store update, so a consumed token can never resolve again — retrying
// Consume with the identical value fails with ErrInvalidToken because
// the field is already absent.
func (m *ResetTokenManager) Consume(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	user, err := m.store.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "get user by reset token").
			Wrap(err)
	}

	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	update := UserUpdate{
		PasswordHash: &hash,
		ResetToken:   ClearToken(),
	}
	if err := m.store.Update(ctx, user.ID, update); err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "persist password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return nil
}
