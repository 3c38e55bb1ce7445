// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package rsvps implements session-gated RSVP ledger handlers: hosts invite
// and inspect, attendees accept and cancel.
package rsvps

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatherhub/gatherhub-go/internal/api"
	"github.com/gatherhub/gatherhub-go/internal/logutil"
	"github.com/gatherhub/gatherhub-go/internal/rsvps"
	"github.com/gatherhub/gatherhub-go/internal/store"
)

// RsvpView is the public view of a ledger row.
type RsvpView struct {
	ID         string `json:"id"`
	EventID    string `json:"event_id"`
	AttendeeID string `json:"attendee_id"`
	Status     string `json:"status"`
	InvitedAt  int64  `json:"invited_at"`
	RsvpDate   int64  `json:"rsvp_date,omitempty"`
}

func rsvpView(r *store.Rsvp) RsvpView {
	return RsvpView{
		ID:         r.ID,
		EventID:    r.EventID,
		AttendeeID: r.AttendeeID,
		Status:     r.DerivedStatus(),
		InvitedAt:  r.InvitedAt,
		RsvpDate:   r.RsvpDate,
	}
}

// Handler handles RSVP endpoints.
type Handler struct {
	svc         *rsvps.Service
	currentUser func(context.Context) (*store.User, error)
	log         *slog.Logger
}

// NewHandler creates a new RSVP handler.
func NewHandler(svc *rsvps.Service, currentUser func(context.Context) (*store.User, error), log *slog.Logger) *Handler {
	return &Handler{
		svc:         svc,
		currentUser: currentUser,
		log:         logutil.NoopIfNil(log),
	}
}

// InviteRequest is the request body for POST /api/v1/rsvps/invite.
type InviteRequest struct {
	EventID     string   `json:"event_id"`
	AttendeeIDs []string `json:"attendee_ids"`
}

// InviteResponse wraps the ledger rows created or reset by an invite.
type InviteResponse struct {
	Rsvps []RsvpView `json:"rsvps"`
}

// HandleInvite handles POST /api/v1/rsvps/invite.
// Only the event's host may invite; already-active rows are skipped and
// cancelled rows are reset to a fresh invitation.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}

	if req.EventID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "event_id is required")
		return
	}
	if len(req.AttendeeIDs) == 0 {
		api.WriteBadRequest(w, api.ReasonMissingField, "attendee_ids is required")
		return
	}

	rows, err := h.svc.Invite(r.Context(), req.EventID, user.ID, req.AttendeeIDs)
	if err != nil {
		var unknown *rsvps.UnknownAttendeesError
		if errors.As(err, &unknown) {
			api.WriteBadRequest(w, api.ReasonInvalidField, unknown.Error())
			return
		}
		h.writeServiceError(w, user.ID, err, "failed to invite attendees")
		return
	}

	views := make([]RsvpView, 0, len(rows))
	for _, row := range rows {
		views = append(views, rsvpView(row))
	}

	h.log.Info("attendees invited", "event_id", req.EventID, "host_id", user.ID, "count", len(views))
	api.WriteJSON(w, http.StatusCreated, InviteResponse{Rsvps: views})
}

// ListMineResponse wraps the caller's invitations.
type ListMineResponse struct {
	Invitations []*rsvps.Invitation `json:"invitations"`
}

// HandleListMine handles GET /api/v1/rsvps/me.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	invitations, err := h.svc.ListMine(r.Context(), user.ID)
	if err != nil {
		h.log.Error("failed to list invitations", "user_id", user.ID, "error", err)
		api.WriteInternalError(w, "failed to list invitations")
		return
	}

	api.WriteJSON(w, http.StatusOK, ListMineResponse{Invitations: invitations})
}

// HandleAccept handles PATCH /api/v1/rsvps/{rsvpId}/accept.
// Acceptance is atomic with the capacity check, so the event can never be
// overbooked even under concurrent accepts.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	rsvpID := chi.URLParam(r, "rsvpId")
	if rsvpID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "rsvpId is required")
		return
	}

	row, err := h.svc.Accept(r.Context(), rsvpID, user.ID)
	if err != nil {
		h.writeServiceError(w, user.ID, err, "failed to accept rsvp")
		return
	}

	h.log.Info("rsvp accepted", "rsvp_id", rsvpID, "event_id", row.EventID, "attendee_id", user.ID)
	api.WriteJSON(w, http.StatusOK, rsvpView(row))
}

// HandleCancel handles DELETE /api/v1/rsvps/{rsvpId}.
// A never-accepted invitation is removed outright; an accepted one is marked
// cancelled and keeps its acceptance history.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	rsvpID := chi.URLParam(r, "rsvpId")
	if rsvpID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "rsvpId is required")
		return
	}

	if err := h.svc.Cancel(r.Context(), rsvpID, user.ID); err != nil {
		h.writeServiceError(w, user.ID, err, "failed to cancel rsvp")
		return
	}

	h.log.Info("rsvp cancelled", "rsvp_id", rsvpID, "attendee_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmedResponse wraps the confirmed ledger rows of one event.
type ConfirmedResponse struct {
	Rsvps []RsvpView `json:"rsvps"`
}

// HandleConfirmed handles GET /api/v1/rsvps/event/{eventId}/confirmed.
// Host-only roster of currently confirmed attendees.
func (h *Handler) HandleConfirmed(w http.ResponseWriter, r *http.Request) {
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

	rows, err := h.svc.ConfirmedForEvent(r.Context(), eventID, user.ID)
	if err != nil {
		h.writeServiceError(w, user.ID, err, "failed to list confirmed rsvps")
		return
	}

	views := make([]RsvpView, 0, len(rows))
	for _, row := range rows {
		views = append(views, rsvpView(row))
	}

	api.WriteJSON(w, http.StatusOK, ConfirmedResponse{Rsvps: views})
}

// ManageResponse wraps the host's full invite-management view.
type ManageResponse struct {
	Entries []*rsvps.ManageEntry `json:"entries"`
}

// HandleManage handles GET /api/v1/rsvps/event/{eventId}.
// Host-only union of the event's ledger rows and every uninvited attendee.
func (h *Handler) HandleManage(w http.ResponseWriter, r *http.Request) {
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

	entries, err := h.svc.ManageEvent(r.Context(), eventID, user.ID)
	if err != nil {
		h.writeServiceError(w, user.ID, err, "failed to build manage view")
		return
	}

	api.WriteJSON(w, http.StatusOK, ManageResponse{Entries: entries})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, userID string, err error, internalMsg string) {
	switch {
	case errors.Is(err, rsvps.ErrNotFound):
		api.WriteNotFound(w, "invitation not found")
	case errors.Is(err, rsvps.ErrEventNotFound):
		api.WriteNotFound(w, "event not found")
	case errors.Is(err, rsvps.ErrNotYours):
		api.WriteForbidden(w, "this invitation is not for you")
	case errors.Is(err, rsvps.ErrNotHost):
		api.WriteForbidden(w, "you do not own this event")
	case errors.Is(err, rsvps.ErrAlreadyAccepted):
		api.WriteConflict(w, "rsvp already confirmed")
	case errors.Is(err, rsvps.ErrAlreadyCancelled):
		api.WriteConflict(w, "rsvp already cancelled")
	case errors.Is(err, rsvps.ErrDeadlinePassed):
		api.WriteConflict(w, "rsvp deadline has passed")
	case errors.Is(err, rsvps.ErrEventFull):
		api.WriteConflict(w, "event is already full")
	default:
		h.log.Error(internalMsg, "user_id", userID, "error", err)
		api.WriteInternalError(w, internalMsg)
	}
}
