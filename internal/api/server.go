// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Every module screen is mounted under /api/v1/modules/{key} behind the
    guard its key calls for: the admin role for admin screens, a grant for
    feature screens.
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/config"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/metrics"
	"github.com/taibuivan/opsdash/internal/platform/middleware"
	"github.com/taibuivan/opsdash/internal/users/account"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// Screen is one module page of the dashboard.
type Screen interface {
	Key() module.Key
	Routes() chi.Router
}

// # Handler Registry

// Handlers groups all HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler.
	Readiness http.HandlerFunc

	// Metrics instruments every request and serves /metrics.
	Metrics *metrics.Metrics

	// Sessions resolves the session named by a verified token.
	Sessions auth.SessionStore

	// Auth handles login, logout, refresh and password reset.
	Auth *auth.Handler

	// Account handles the self-service profile endpoints.
	Account *account.Handler

	// Dashboard renders the landing view.
	Dashboard http.Handler

	// Screens holds one screen per module key.
	Screens []Screen
}

// # Screen Guards

// screenGuard returns the access check in front of the screen for key.
func screenGuard(key module.Key) (func(http.Handler) http.Handler, error) {
	switch key {
	case module.KeyAdminUsers, module.KeyAdminPermissions, module.KeyAdminLogs, module.KeyAdminModules:
		return auth.AdminRequired, nil
	case module.KeyOrderExtractor, module.KeyStockPriceUpdater, module.KeyProductManagement,
		module.KeyShippingLabelGenerator, module.KeyMRPLabelGenerator, module.KeyWooZohoExport:
		return auth.ModuleRequired(key), nil
	}
	return nil, fmt.Errorf("api: no screen is defined for module %q", key)
}

// mountScreens mounts every screen and fails unless each key has exactly one.
func mountScreens(router chi.Router, screens []Screen) error {
	mounted := make(map[module.Key]bool, len(screens))
	for _, screen := range screens {
		key := screen.Key()
		if mounted[key] {
			return fmt.Errorf("api: module %q has two screens", key)
		}
		guard, err := screenGuard(key)
		if err != nil {
			return err
		}

		router.With(guard).Mount("/"+key.String(), screen.Routes())
		mounted[key] = true
	}

	for _, key := range module.Keys() {
		if !mounted[key] {
			return fmt.Errorf("api: module %q has no screen", key)
		}
	}
	return nil
}

// # Server Initialization

/*
NewServer constructs the chi router with the full middleware chain and
registers all route groups.

Description: Module screens get [constants.ModuleRequestTimeout] since label
generation and store syncs run long. Every other route gets
[constants.GlobalRequestTimeout].

Returns:
  - *Server: Ready to listen on cfg.ServerPort
  - error: A module key without a screen, or with two
*/
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) (*Server, error) {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(h.Metrics.Instrument)
	r.Use(middleware.RateLimit(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.Authenticate(verifier))
	r.Use(auth.LoadSession(h.Sessions))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health checks for container orchestration and scraping.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	// # Application API
	var mountErr error
	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(short chi.Router) {
			short.Use(chimw.Timeout(constants.GlobalRequestTimeout))
			short.Mount("/auth", h.Auth.Routes())
			short.Mount("/account", h.Account.Routes())
			short.With(auth.LoginRequired).Method(http.MethodGet, "/dashboard", h.Dashboard)
		})

		api.Route("/modules", func(modules chi.Router) {
			modules.Use(chimw.Timeout(constants.ModuleRequestTimeout))
			mountErr = mountScreens(modules, h.Screens)
		})
	})
	if mountErr != nil {
		return nil, mountErr
	}

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}, nil
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
