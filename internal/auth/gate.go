// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
)

// Decision is the outcome of evaluating one request against the gate.
//
// The two failure decisions are a deliberate contract, not an
// artifact: MissingCredentials means no authorization evidence was
// presented at all (401 at the boundary); InvalidCredentials means
// evidence was presented but resolved to no identity (403).
type Decision int

const (
	// NoAuthRequired: the path is excluded from authentication.
	NoAuthRequired Decision = iota
	// Authenticated: evidence resolved to a user.
	Authenticated
	// MissingCredentials: neither header nor session cookie present.
	MissingCredentials
	// InvalidCredentials: evidence present but no identity resolved.
	InvalidCredentials
)

// String returns the decision name for logs and metrics labels.
func (d Decision) String() string {
	switch d {
	case NoAuthRequired:
		return "no_auth_required"
	case Authenticated:
		return "authenticated"
	case MissingCredentials:
		return "missing_credentials"
	case InvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// Gate decides, per request path, whether authentication is required,
// and resolves identity from a Basic header or a session token.
type Gate struct {
	service  *Service
	sessions *SessionManager
	excluded map[string]struct{}
}

// NewGate creates a Gate. excludedPaths are stored
// trailing-slash-normalized; there is no wildcard matching.
func NewGate(service *Service, sessions *SessionManager, excludedPaths []string) (*Gate, error) {
	if service == nil {
		return nil, oops.Code("GATE_NIL_DEPENDENCY").Errorf("auth service is required")
	}
	if sessions == nil {
		return nil, oops.Code("GATE_NIL_DEPENDENCY").Errorf("session manager is required")
	}

	excluded := make(map[string]struct{}, len(excludedPaths))
	for _, p := range excludedPaths {
		excluded[normalizePath(p)] = struct{}{}
	}
	return &Gate{service: service, sessions: sessions, excluded: excluded}, nil
}

// normalizePath strips a single trailing slash so a path and its
// trailing-slash variant compare equal. The root path stays "/".
func normalizePath(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}

// RequiresAuth reports whether the path is gated.
func (g *Gate) RequiresAuth(path string) bool {
	_, excluded := g.excluded[normalizePath(path)]
	return !excluded
}

// Evaluate runs the per-request state machine. authorization is the
// raw Authorization header ("" if absent); sessionToken is the session
// cookie value ("" if absent). The returned user is non-nil exactly
// when the decision is Authenticated. An error means the store failed,
// not that the request was unauthorized.
func (g *Gate) Evaluate(ctx context.Context, path, authorization, sessionToken string) (Decision, *User, error) {
	if !g.RequiresAuth(path) {
		return NoAuthRequired, nil, nil
	}

	if authorization == "" && sessionToken == "" {
		return MissingCredentials, nil, nil
	}

	if authorization != "" {
		user, err := g.identityFromHeader(ctx, authorization)
		if err != nil {
			return InvalidCredentials, nil, err
		}
		if user != nil {
			return Authenticated, user, nil
		}
	}

	if sessionToken != "" {
		user, err := g.sessions.Resolve(ctx, sessionToken)
		if err != nil {
			return InvalidCredentials, nil, err
		}
		if user != nil {
			return Authenticated, user, nil
		}
	}

	return InvalidCredentials, nil, nil
}

// identityFromHeader resolves a Basic authorization header to a user.
// A header that fails any decode stage, or credentials that do not
// verify, yield (nil, nil): no identity, but also no fault.
func (g *Gate) identityFromHeader(ctx context.Context, header string) (*User, error) {
	creds, ok := DecodeBasicHeader(header)
	if !ok {
		return nil, nil
	}

	user, err := g.service.Authenticate(ctx, creds.Identifier, creds.Secret)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
