// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package events implements session-gated event CRUD handlers.
// Mutating endpoints are restricted to hosts; ownership is enforced by the
// service layer.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatherhub/gatherhub-go/internal/api"
	"github.com/gatherhub/gatherhub-go/internal/events"
	"github.com/gatherhub/gatherhub-go/internal/logutil"
	"github.com/gatherhub/gatherhub-go/internal/store"
)

// EventView is the public view of an event.
type EventView struct {
	ID             string `json:"id"`
	HostID         string `json:"host_id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	StartDateTime  int64  `json:"start_date_time"`
	RsvpDeadline   int64  `json:"rsvp_deadline"`
	MaxAttendees   int    `json:"max_attendees"`
	IsVirtual      bool   `json:"is_virtual"`
	Location       string `json:"location,omitempty"`
	Status         string `json:"status"`
	CheckInEnabled bool   `json:"check_in_enabled"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// View converts a stored event into its public view.
func View(ev *store.Event) EventView {
	return EventView{
		ID:             ev.ID,
		HostID:         ev.HostID,
		Title:          ev.Title,
		Description:    ev.Description,
		StartDateTime:  ev.StartDateTime,
		RsvpDeadline:   ev.RsvpDeadline,
		MaxAttendees:   ev.MaxAttendees,
		IsVirtual:      ev.IsVirtual,
		Location:       ev.Location,
		Status:         ev.Status,
		CheckInEnabled: ev.CheckInEnabled,
		CreatedAt:      ev.CreatedAt,
		UpdatedAt:      ev.UpdatedAt,
	}
}

// ListResponse wraps the event views returned by list endpoints.
type ListResponse struct {
	Events []EventView `json:"events"`
}

// Handler handles event CRUD endpoints.
type Handler struct {
	svc         *events.Service
	currentUser func(context.Context) (*store.User, error)
	log         *slog.Logger
}

// NewHandler creates a new events handler.
func NewHandler(svc *events.Service, currentUser func(context.Context) (*store.User, error), log *slog.Logger) *Handler {
	return &Handler{
		svc:         svc,
		currentUser: currentUser,
		log:         logutil.NoopIfNil(log),
	}
}

// CreateRequest is the request body for POST /api/v1/events.
type CreateRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartDateTime int64  `json:"start_date_time"`
	RsvpDeadline  int64  `json:"rsvp_deadline"`
	MaxAttendees  int    `json:"max_attendees"`
	IsVirtual     bool   `json:"is_virtual"`
	Location      string `json:"location"`
}

// HandleCreate handles POST /api/v1/events.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}

	ev, err := h.svc.Create(r.Context(), user.ID, events.CreateParams{
		Title:         req.Title,
		Description:   req.Description,
		StartDateTime: time.Unix(req.StartDateTime, 0),
		RsvpDeadline:  time.Unix(req.RsvpDeadline, 0),
		MaxAttendees:  req.MaxAttendees,
		IsVirtual:     req.IsVirtual,
		Location:      req.Location,
	})
	if err != nil {
		if errors.Is(err, events.ErrInvalid) {
			api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
			return
		}
		h.log.Error("failed to create event", "host_id", user.ID, "error", err)
		api.WriteInternalError(w, "failed to create event")
		return
	}

	api.WriteJSON(w, http.StatusCreated, View(ev))
}

// HandleGet handles GET /api/v1/events/{eventId}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "eventId is required")
		return
	}

	ev, err := h.svc.GetByID(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			api.WriteNotFound(w, "event not found")
			return
		}
		h.log.Error("failed to get event", "event_id", eventID, "error", err)
		api.WriteInternalError(w, "failed to get event")
		return
	}

	api.WriteJSON(w, http.StatusOK, View(ev))
}

// HandleListMine handles GET /api/v1/events/mine.
// Lists only events owned by the authenticated host.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	result, err := h.svc.ListByHost(r.Context(), user.ID)
	if err != nil {
		h.log.Error("failed to list events", "host_id", user.ID, "error", err)
		api.WriteInternalError(w, "failed to list events")
		return
	}

	views := make([]EventView, 0, len(result))
	for _, ev := range result {
		views = append(views, View(ev))
	}

	api.WriteJSON(w, http.StatusOK, ListResponse{Events: views})
}

// UpdateRequest is the request body for PATCH /api/v1/events/{eventId}.
// Absent fields are left unchanged.
type UpdateRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	StartDateTime *int64  `json:"start_date_time"`
	RsvpDeadline  *int64  `json:"rsvp_deadline"`
	MaxAttendees  *int    `json:"max_attendees"`
	IsVirtual     *bool   `json:"is_virtual"`
	Location      *string `json:"location"`
}

// HandleUpdate handles PATCH /api/v1/events/{eventId}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}

	params := events.UpdateParams{
		Title:        req.Title,
		Description:  req.Description,
		MaxAttendees: req.MaxAttendees,
		IsVirtual:    req.IsVirtual,
		Location:     req.Location,
	}
	if req.StartDateTime != nil {
		t := time.Unix(*req.StartDateTime, 0)
		params.StartDateTime = &t
	}
	if req.RsvpDeadline != nil {
		t := time.Unix(*req.RsvpDeadline, 0)
		params.RsvpDeadline = &t
	}

	ev, err := h.svc.Update(r.Context(), eventID, user.ID, params)
	if err != nil {
		h.writeServiceError(w, eventID, user.ID, err, "failed to update event")
		return
	}

	api.WriteJSON(w, http.StatusOK, View(ev))
}

// HandleClose handles POST /api/v1/events/{eventId}/close.
// Closing is idempotent and never reopens an event.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
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

	ev, err := h.svc.CloseEvent(r.Context(), eventID, user.ID)
	if err != nil {
		h.writeServiceError(w, eventID, user.ID, err, "failed to close event")
		return
	}

	h.log.Info("event closed", "event_id", eventID, "host_id", user.ID)
	api.WriteJSON(w, http.StatusOK, View(ev))
}

// HandleDelete handles DELETE /api/v1/events/{eventId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Delete(r.Context(), eventID, user.ID); err != nil {
		h.writeServiceError(w, eventID, user.ID, err, "failed to delete event")
		return
	}

	h.log.Info("event deleted", "event_id", eventID, "host_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, eventID, userID string, err error, internalMsg string) {
	switch {
	case errors.Is(err, events.ErrNotFound):
		api.WriteNotFound(w, "event not found")
	case errors.Is(err, events.ErrNotHost):
		api.WriteForbidden(w, "you do not own this event")
	case errors.Is(err, events.ErrInvalid):
		api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
	default:
		h.log.Error(internalMsg, "event_id", eventID, "user_id", userID, "error", err)
		api.WriteInternalError(w, internalMsg)
	}
}
