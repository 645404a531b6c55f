// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import "errors"

// Sentinel errors returned by stores and managers. Callers branch with
// errors.Is; the HTTP boundary maps each kind to a status code.
var (
	// ErrNotFound is returned when no record matches a lookup, and by
	// Service.Authenticate when credentials do not resolve to a user.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert violates email uniqueness.
	ErrConflict = errors.New("email already registered")

	// ErrInvalidToken is returned when a reset token does not resolve,
	// including a second consume of an already-spent token.
	ErrInvalidToken = errors.New("invalid token")
)
