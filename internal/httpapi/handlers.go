// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/pkg/errutil"
)

const sessionCookieName = "session_id"

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.deps.Logger.Error("response write failed", "error", err)
	}
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}

// forbidden is the single rendering for every 403. Reset issuance for
// an unknown email and consumption of a stale token both land here, so
// the response does not reveal which emails or tokens are live.
func (s *Server) forbidden(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
}

func (s *Server) internalError(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Bienvenue"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	_, err := s.deps.Service.Register(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrConflict) {
			if s.deps.Metrics != nil {
				s.deps.Metrics.Registrations.WithLabelValues("conflict").Inc()
			}
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email already registered"})
			return
		}
		errutil.LogError(s.deps.Logger, "registration failed", err)
		s.internalError(w)
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.Registrations.WithLabelValues("success").Inc()
	}
	s.deps.Logger.InfoContext(r.Context(), "user registered", "email", email)
	s.writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "user created"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	_, err := s.deps.Service.Authenticate(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			if s.deps.Metrics != nil {
				s.deps.Metrics.Logins.WithLabelValues("failure").Inc()
			}
			s.unauthorized(w)
			return
		}
		errutil.LogError(s.deps.Logger, "login failed", err)
		s.internalError(w)
		return
	}

	token, err := s.deps.Sessions.Create(r.Context(), email)
	if err != nil {
		errutil.LogError(s.deps.Logger, "session creation failed", err)
		s.internalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if s.deps.Metrics != nil {
		s.deps.Metrics.Logins.WithLabelValues("success").Inc()
	}
	s.deps.Logger.InfoContext(r.Context(), "user logged in", "email", email)
	s.writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "logged in"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := sessionCookie(r)

	user, err := s.deps.Sessions.Resolve(r.Context(), token)
	if err != nil {
		errutil.LogError(s.deps.Logger, "session lookup failed", err)
		s.internalError(w)
		return
	}
	if user == nil {
		s.forbidden(w)
		return
	}

	if err := s.deps.Sessions.Invalidate(r.Context(), user.ID); err != nil {
		errutil.LogError(s.deps.Logger, "session invalidation failed", err)
		s.internalError(w)
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.SessionsInvalidated.Inc()
	}
	s.deps.Logger.InfoContext(r.Context(), "user logged out", "email", user.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		// Profile is gated, so the middleware always supplies a user.
		s.forbidden(w)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"email": user.Email})
}

func (s *Server) handleResetIssue(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")

	token, err := s.deps.Resets.Issue(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			s.forbidden(w)
			return
		}
		errutil.LogError(s.deps.Logger, "reset token issuance failed", err)
		s.internalError(w)
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ResetsIssued.Inc()
	}
	s.deps.Logger.InfoContext(r.Context(), "reset token issued", "email", email)
	s.writeJSON(w, http.StatusOK, map[string]string{"email": email, "reset_token": token})
}

func (s *Server) handleResetConsume(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	token := r.PostFormValue("reset_token")
	newPassword := r.PostFormValue("new_password")

	err := s.deps.Resets.Consume(r.Context(), token, newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrNotFound) {
			if s.deps.Metrics != nil {
				s.deps.Metrics.ResetsConsumed.WithLabelValues("failure").Inc()
			}
			s.forbidden(w)
			return
		}
		errutil.LogError(s.deps.Logger, "password update failed", err)
		s.internalError(w)
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ResetsConsumed.WithLabelValues("success").Inc()
	}
	s.deps.Logger.InfoContext(r.Context(), "password updated", "email", email)
	s.writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "Password updated"})
}
