// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gatherhub/gatherhub-go/internal/api"
	"github.com/gatherhub/gatherhub-go/internal/identity"
)

// publicExceptions are specific paths that don't require auth.
var publicExceptions = []string{
	"/api/v1/healthz",
	"/api/v1/auth/register",
	"/api/v1/auth/login",
}

// IsAuthRequired checks if a given path requires authentication.
// This is used by the auth middleware to make gating decisions.
func IsAuthRequired(path string) bool {
	for _, exc := range publicExceptions {
		if pathMatchesPrefix(path, exc) {
			return false
		}
	}
	return true
}

// pathMatchesPrefix checks if path equals or is a subpath of prefix.
func pathMatchesPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		if path[len(prefix)] == '/' {
			return true
		}
	}
	return false
}

// setupRoutes creates the chi router with all endpoints mounted.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	// Global middleware stack (order matters for correct logging)
	// RequestID must come first so GetReqID works in loggingMiddleware.
	// loggingMiddleware wraps the response, Recoverer writes through the
	// wrapper, so the access log captures correct status for panics.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if len(s.cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Rate limiting for credential endpoints
	r.Use(s.rateLimitMiddleware(map[string]RateLimitConfig{
		"/api/v1/auth/login":    {RequestsPerMinute: 5, Burst: 2},
		"/api/v1/auth/register": {RequestsPerMinute: 5, Burst: 2},
	}))

	// Auth middleware for all routes (checks IsAuthRequired)
	r.Use(s.authMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health endpoint (public)
		r.Get("/healthz", api.HealthHandler)

		// Auth endpoints (register and login are public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.authHandler.HandleRegister)
			r.Post("/login", s.authHandler.HandleLogin)
			r.Post("/logout", s.authHandler.HandleLogout)
			r.Get("/me", s.authHandler.HandleMe)
		})

		// Event endpoints: reads for any authenticated user, writes for hosts
		r.Route("/events", func(r chi.Router) {
			r.Get("/{eventId}", s.eventsHandler.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(identity.RoleHost))
				r.Post("/", s.eventsHandler.HandleCreate)
				r.Get("/mine", s.eventsHandler.HandleListMine)
				r.Patch("/{eventId}", s.eventsHandler.HandleUpdate)
				r.Post("/{eventId}/close", s.eventsHandler.HandleClose)
				r.Delete("/{eventId}", s.eventsHandler.HandleDelete)
			})
		})

		// RSVP endpoints: responding to an invitation is attendee-side,
		// roster views are host-side
		r.Route("/rsvps", func(r chi.Router) {
			r.Get("/me", s.rsvpsHandler.HandleListMine)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(identity.RoleAttendee))
				r.Patch("/{rsvpId}/accept", s.rsvpsHandler.HandleAccept)
				r.Delete("/{rsvpId}", s.rsvpsHandler.HandleCancel)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(identity.RoleHost))
				r.Post("/invite", s.rsvpsHandler.HandleInvite)
				r.Get("/event/{eventId}/confirmed", s.rsvpsHandler.HandleConfirmed)
				r.Get("/event/{eventId}", s.rsvpsHandler.HandleManage)
			})
		})

		// Check-in endpoints
		r.Route("/checkin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(identity.RoleAttendee))
				r.Post("/{eventId}", s.checkinsHandler.HandleSelfCheckIn)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(identity.RoleHost))
				r.Post("/{eventId}/walk-in", s.checkinsHandler.HandleWalkIn)
				r.Get("/{eventId}", s.checkinsHandler.HandleList)
			})
		})
	})

	return r
}
