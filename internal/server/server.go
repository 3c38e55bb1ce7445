// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package server provides HTTP server wiring and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	authapi "github.com/gatherhub/gatherhub-go/internal/api/auth"
	checkinsapi "github.com/gatherhub/gatherhub-go/internal/api/checkins"
	eventsapi "github.com/gatherhub/gatherhub-go/internal/api/events"
	rsvpsapi "github.com/gatherhub/gatherhub-go/internal/api/rsvps"
	"github.com/gatherhub/gatherhub-go/internal/checkins"
	"github.com/gatherhub/gatherhub-go/internal/config"
	"github.com/gatherhub/gatherhub-go/internal/events"
	"github.com/gatherhub/gatherhub-go/internal/identity"
	"github.com/gatherhub/gatherhub-go/internal/rsvps"
	"github.com/gatherhub/gatherhub-go/internal/store"
)

// ErrMissingDep is returned when a required dependency is nil.
var ErrMissingDep = errors.New("missing required dependency")

// Deps holds all server dependencies.
type Deps struct {
	// Required: persistence
	Store store.Store

	// Required: identity and auth
	SessionRepo identity.SessionRepo
	UserAuth    *identity.UserAuth

	// Required: domain services
	Events   *events.Service
	Rsvps    *rsvps.Service
	Checkins *checkins.Service
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	logger     *slog.Logger
	deps       *Deps

	authHandler     *authapi.Handler
	eventsHandler   *eventsapi.Handler
	rsvpsHandler    *rsvpsapi.Handler
	checkinsHandler *checkinsapi.Handler
}

// New creates a new Server with the given configuration.
// Returns an error if required dependencies are missing.
func New(cfg *config.Config, logger *slog.Logger, deps *Deps) (*Server, error) {
	if err := validateDeps(deps); err != nil {
		return nil, err
	}

	sessionTTL := time.Duration(cfg.Session.TTLHours) * time.Hour

	s := &Server{
		cfg:    cfg,
		logger: logger,
		deps:   deps,
	}

	s.authHandler = authapi.NewHandler(deps.Store, deps.SessionRepo, deps.UserAuth, sessionTTL, logger)
	s.eventsHandler = eventsapi.NewHandler(deps.Events, CurrentUser, logger)
	s.rsvpsHandler = rsvpsapi.NewHandler(deps.Rsvps, CurrentUser, logger)
	s.checkinsHandler = checkinsapi.NewHandler(deps.Checkins, deps.Store, CurrentUser, logger)

	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the configured router, used by tests to drive the server
// without a listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.cfg.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// validateDeps checks that all required dependencies are provided.
func validateDeps(deps *Deps) error {
	if deps == nil {
		return errors.New("deps is nil")
	}

	if deps.Store == nil {
		return fmt.Errorf("%w: Store", ErrMissingDep)
	}
	if deps.SessionRepo == nil {
		return fmt.Errorf("%w: SessionRepo", ErrMissingDep)
	}
	if deps.UserAuth == nil {
		return fmt.Errorf("%w: UserAuth", ErrMissingDep)
	}
	if deps.Events == nil {
		return fmt.Errorf("%w: Events", ErrMissingDep)
	}
	if deps.Rsvps == nil {
		return fmt.Errorf("%w: Rsvps", ErrMissingDep)
	}
	if deps.Checkins == nil {
		return fmt.Errorf("%w: Checkins", ErrMissingDep)
	}

	return nil
}
