// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package checkins implements the check-in gate: attendee self check-in plus
// host-only walk-in admission and roster listing.
package checkins

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatherhub/gatherhub-go/internal/api"
	"github.com/gatherhub/gatherhub-go/internal/checkins"
	"github.com/gatherhub/gatherhub-go/internal/logutil"
	"github.com/gatherhub/gatherhub-go/internal/store"
)

// CheckinView is the public view of a check-in record.
type CheckinView struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	AttendeeID  string `json:"attendee_id,omitempty"`
	IsWalkIn    bool   `json:"is_walk_in"`
	GuestName   string `json:"guest_name,omitempty"`
	GuestEmail  string `json:"guest_email,omitempty"`
	CheckinTime int64  `json:"checkin_time"`
}

func checkinView(c *store.Checkin) CheckinView {
	return CheckinView{
		ID:          c.ID,
		EventID:     c.EventID,
		AttendeeID:  c.AttendeeID,
		IsWalkIn:    c.IsWalkIn,
		GuestName:   c.GuestName,
		GuestEmail:  c.GuestEmail,
		CheckinTime: c.CheckinTime,
	}
}

// Handler handles check-in endpoints.
type Handler struct {
	svc         *checkins.Service
	events      store.EventStore
	currentUser func(context.Context) (*store.User, error)
	log         *slog.Logger
}

// NewHandler creates a new check-in handler.
func NewHandler(svc *checkins.Service, events store.EventStore, currentUser func(context.Context) (*store.User, error), log *slog.Logger) *Handler {
	return &Handler{
		svc:         svc,
		events:      events,
		currentUser: currentUser,
		log:         logutil.NoopIfNil(log),
	}
}

// HandleSelfCheckIn handles POST /api/v1/checkin/{eventId}.
// Requires an accepted invitation and an event that has already started.
func (h *Handler) HandleSelfCheckIn(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "eventId is required")
		return
	}

	record, err := h.svc.SelfCheckIn(r.Context(), user.ID, eventID)
	if err != nil {
		h.writeServiceError(w, user.ID, err, "failed to check in")
		return
	}

	h.log.Info("attendee checked in", "event_id", eventID, "attendee_id", user.ID)
	api.WriteJSON(w, http.StatusCreated, checkinView(record))
}

// WalkInRequest is the request body for POST /api/v1/checkin/{eventId}/walk-in.
type WalkInRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HandleWalkIn handles POST /api/v1/checkin/{eventId}/walk-in.
// Host-only: records a guest with no account. Walk-ins are never merged, so
// repeated submissions create separate records.
func (h *Handler) HandleWalkIn(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "eventId is required")
		return
	}

	if err := h.requireHost(r, eventID, user.ID); err != nil {
		h.writeServiceError(w, user.ID, err, "failed to record walk-in")
		return
	}

	var req WalkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "name is required")
		return
	}

	record, err := h.svc.WalkIn(r.Context(), eventID, checkins.WalkInGuest{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.writeServiceError(w, user.ID, err, "failed to record walk-in")
		return
	}

	h.log.Info("walk-in recorded", "event_id", eventID, "host_id", user.ID)
	api.WriteJSON(w, http.StatusCreated, checkinView(record))
}

// ListResponse wraps an event's check-in roster.
type ListResponse struct {
	Checkins []*checkins.Entry `json:"checkins"`
}

// HandleList handles GET /api/v1/checkin/{eventId}.
// Host-only roster of everyone admitted so far.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "eventId is required")
		return
	}

	if err := h.requireHost(r, eventID, user.ID); err != nil {
		h.writeServiceError(w, user.ID, err, "failed to list check-ins")
		return
	}

	entries, err := h.svc.List(r.Context(), eventID)
	if err != nil {
		h.writeServiceError(w, user.ID, err, "failed to list check-ins")
		return
	}

	api.WriteJSON(w, http.StatusOK, ListResponse{Checkins: entries})
}

// errNotHost marks a host-only endpoint hit by a non-owner.
var errNotHost = errors.New("not your event")

func (h *Handler) requireHost(r *http.Request, eventID, userID string) error {
	event, err := h.events.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return checkins.ErrEventNotFound
		}
		return err
	}
	if event.HostID != userID {
		return errNotHost
	}
	return nil
}

func (h *Handler) writeServiceError(w http.ResponseWriter, userID string, err error, internalMsg string) {
	switch {
	case errors.Is(err, checkins.ErrEventNotFound):
		api.WriteNotFound(w, "event not found")
	case errors.Is(err, errNotHost):
		api.WriteForbidden(w, "you do not own this event")
	case errors.Is(err, checkins.ErrNotOpenYet):
		api.WriteInvalidState(w, "check-in is not open yet")
	case errors.Is(err, checkins.ErrNoConfirmedRsvp):
		api.WriteInvalidState(w, "no confirmed rsvp for this event")
	case errors.Is(err, checkins.ErrAlreadyCheckedIn):
		api.WriteConflict(w, "already checked in")
	default:
		h.log.Error(internalMsg, "user_id", userID, "error", err)
		api.WriteInternalError(w, internalMsg)
	}
}
