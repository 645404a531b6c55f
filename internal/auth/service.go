// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Service provides registration and credential verification. It is the
// explicit context object the rest of the system shares: store handle,
// hasher, nothing hidden.
type Service struct {
	store  UserStore
	hasher PasswordHasher
}

// NewService creates a Service.
func NewService(store UserStore, hasher PasswordHasher) (*Service, error) {
	if store == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	return &Service{store: store, hasher: hasher}, nil
}

// dummyPasswordHash is verified when a user doesn't exist so lookups
// for known and unknown emails take comparable time. It is NOT a real
// credential and matches no password.
//
//nolint:gosec // G101: intentionally fake hash for timing-attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates an account with a freshly hashed password.
// Returns ErrConflict if the email is already registered.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if email == "" {
		return nil, oops.Code("AUTH_EMPTY_EMAIL").Errorf("email cannot be empty")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := s.store.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("AUTH_EMAIL_TAKEN").
				With("email", email).
				Wrap(ErrConflict)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	return user, nil
}

// Authenticate resolves an email/password pair to a user. Unknown
// email and wrong password both return ErrNotFound after a full hash
// verification, so response time does not reveal which one it was.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, lookupErr := s.store.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOOKUP_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify, even against the dummy hash.
	valid := s.hasher.Verify(password, targetHash)

	if !userExists || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrNotFound)
	}

	return user, nil
}
