// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package httpapi

import (
	"context"
	"net/http"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/pkg/errutil"
)

type ctxKey int

const userKey ctxKey = 0

// UserFromContext returns the user the gate authenticated for this
// request, or nil on an excluded path.
func UserFromContext(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userKey).(*auth.User)
	return user
}

// sessionCookie returns the session_id cookie value, "" if absent.
func sessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// gateMiddleware evaluates every request against the gate before it
// reaches a handler. No evidence at all is 401; evidence that resolves
// to no identity is 403.
func (s *Server) gateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, user, err := s.deps.Gate.Evaluate(r.Context(),
			r.URL.Path,
			r.Header.Get("Authorization"),
			sessionCookie(r),
		)
		if err != nil {
			errutil.LogError(s.deps.Logger, "gate evaluation failed", err)
			s.internalError(w)
			return
		}

		if s.deps.Metrics != nil {
			s.deps.Metrics.GateDecisions.WithLabelValues(decision.String()).Inc()
		}

		switch decision {
		case auth.NoAuthRequired:
			next.ServeHTTP(w, r)
		case auth.Authenticated:
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		case auth.MissingCredentials:
			s.unauthorized(w)
		default:
			s.forbidden(w)
		}
	})
}
