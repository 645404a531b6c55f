// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

// Package httpapi exposes the credential and session operations over
// HTTP. Handlers are thin glue over the auth managers; all policy
// lives below this layer.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/observability"
)

// DefaultExcludedPaths are served without authentication. The
// credential flows themselves must stay reachable for a caller who has
// no credentials yet.
var DefaultExcludedPaths = []string{
	"/",
	"/users",
	"/sessions",
	"/reset_password",
	"/api/v1/status",
}

// Deps bundles what the server needs. Metrics may be nil.
type Deps struct {
	Service  *auth.Service
	Sessions *auth.SessionManager
	Resets   *auth.ResetTokenManager
	Gate     *auth.Gate
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Server serves the HTTP API.
type Server struct {
	addr       string
	deps       Deps
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a Server listening on addr once started.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Service == nil || deps.Sessions == nil || deps.Resets == nil || deps.Gate == nil {
		return nil, oops.Code("HTTP_NIL_DEPENDENCY").
			Errorf("service, sessions, resets, and gate are all required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{addr: addr, deps: deps}, nil
}

// Handler builds the full request pipeline: trailing-slash
// normalization, then the authentication gate, then the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /users", s.handleRegister)
	mux.HandleFunc("POST /sessions", s.handleLogin)
	mux.HandleFunc("DELETE /sessions", s.handleLogout)
	mux.HandleFunc("GET /profile", s.handleProfile)
	mux.HandleFunc("POST /reset_password", s.handleResetIssue)
	mux.HandleFunc("PUT /reset_password", s.handleResetConsume)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)

	return normalizeSlashes(s.gateMiddleware(mux))
}

// Start begins serving. It returns an error channel that receives any
// error from the HTTP server after startup; the channel is closed on
// graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.deps.Logger.Error("http server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.deps.Logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_http_server").Wrap(err)
		}
	}

	s.deps.Logger.Info("http server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// normalizeSlashes strips a single trailing slash before routing so a
// path and its trailing-slash variant hit the same handler. The root
// path is untouched.
func normalizeSlashes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && p[len(p)-1] == '/' {
			r.URL.Path = p[:len(p)-1]
		}
		next.ServeHTTP(w, r)
	})
}
