// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package auth implements registration, login, logout, and current-user
// endpoints backed by token sessions.
package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatherhub/gatherhub-go/internal/api"
	"github.com/gatherhub/gatherhub-go/internal/identity"
	"github.com/gatherhub/gatherhub-go/internal/logutil"
	"github.com/gatherhub/gatherhub-go/internal/store"
)

// DefaultSessionTTL is used when the handler is constructed with a zero TTL.
const DefaultSessionTTL = 24 * time.Hour

// Handler handles authentication endpoints.
type Handler struct {
	users      store.UserStore
	sessions   identity.SessionRepo
	auth       *identity.UserAuth
	sessionTTL time.Duration
	log        *slog.Logger
}

// NewHandler creates a new authentication handler.
func NewHandler(users store.UserStore, sessions identity.SessionRepo, auth *identity.UserAuth, sessionTTL time.Duration, log *slog.Logger) *Handler {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Handler{
		users:      users,
		sessions:   sessions,
		auth:       auth,
		sessionTTL: sessionTTL,
		log:        logutil.NoopIfNil(log),
	}
}

// UserView is the public view of an account.
type UserView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Timezone string `json:"timezone,omitempty"`
}

func userView(u *store.User) UserView {
	return UserView{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Timezone: u.Timezone,
	}
}

// RegisterRequest is the request body for POST /api/v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Timezone string `json:"timezone"`
}

// HandleRegister handles POST /api/v1/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if req.Name == "" || req.Email == "" || req.Password == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "name, email, and password are required")
		return
	}
	if len(req.Password) < 8 {
		api.WriteBadRequest(w, api.ReasonInvalidField, "password must be at least 8 characters")
		return
	}
	if req.Role == "" {
		req.Role = identity.RoleAttendee
	}
	if !identity.ValidRole(req.Role) {
		api.WriteBadRequest(w, api.ReasonInvalidField, "role must be host or attendee")
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("failed to hash password", "error", err)
		api.WriteInternalError(w, "failed to register")
		return
	}

	now := time.Now().Unix()
	user := &store.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Timezone:     req.Timezone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			api.WriteConflict(w, "an account with this email already exists")
			return
		}
		h.log.Error("failed to create user", "email", req.Email, "error", err)
		api.WriteInternalError(w, "failed to register")
		return
	}

	h.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	api.WriteJSON(w, http.StatusCreated, userView(user))
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response for a successful login.
type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	User      UserView `json:"user"`
}

// HandleLogin handles POST /api/v1/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "email and password are required")
		return
	}

	ctx := r.Context()

	user, err := h.auth.Authenticate(ctx, h.users, req.Email, req.Password)
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonInvalidCredentials, "invalid email or password")
		return
	}

	session, err := h.sessions.Create(ctx, user.ID, h.sessionTTL)
	if err != nil {
		h.log.Error("failed to create session", "user_id", user.ID, "error", err)
		api.WriteInternalError(w, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	api.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		User:      userView(user),
	})
}

// HandleLogout handles POST /api/v1/auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := ExtractToken(r)
	if token == "" {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "no session token provided")
		return
	}

	h.sessions.Delete(r.Context(), token)

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		MaxAge:   -1,
	})

	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// HandleMe handles GET /api/v1/auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	token := ExtractToken(r)
	if token == "" {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "no session token provided")
		return
	}

	ctx := r.Context()
	session, err := h.sessions.Get(ctx, token)
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonSessionExpired, "session expired or invalid")
		return
	}

	user, err := h.users.GetUser(ctx, session.UserID)
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "user not found")
		return
	}

	api.WriteJSON(w, http.StatusOK, userView(user))
}

// ExtractToken gets the session token from the Authorization header or the
// session cookie, preferring the header.
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return auth[7:]
	}

	cookie, err := r.Cookie("session")
	if err == nil {
		return cookie.Value
	}

	return ""
}
