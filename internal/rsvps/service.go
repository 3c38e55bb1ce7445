// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package rsvps implements the RSVP ledger and its capacity guard.
//
// Every accept runs its capacity check and write inside one store
// transaction, so concurrent accepts cannot overbook an event.
//
// Cancellation policy: a never-accepted invitation is deleted outright; an
// accepted one is flagged cancelled and keeps confirmed=true for history.
// There is no deadline gate on cancellation.
package rsvps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatherhub/gatherhub-go/internal/identity"
	"github.com/gatherhub/gatherhub-go/internal/logutil"
	"github.com/gatherhub/gatherhub-go/internal/store"
)

var (
	// ErrNotFound is returned when the invitation id does not resolve.
	ErrNotFound = errors.New("invitation not found")

	// ErrEventNotFound is returned when the event id does not resolve.
	ErrEventNotFound = errors.New("event not found")

	// ErrNotYours is returned when the caller is not the invitation's attendee.
	ErrNotYours = errors.New("this invitation is not for you")

	// ErrNotHost is returned when the caller does not host the event.
	ErrNotHost = errors.New("not your event")

	// ErrAlreadyAccepted is returned for a second accept of the same row.
	ErrAlreadyAccepted = errors.New("rsvp already confirmed")

	// ErrAlreadyCancelled is returned for a second cancel of the same row.
	ErrAlreadyCancelled = errors.New("rsvp already cancelled")

	// ErrDeadlinePassed is returned for an accept after the RSVP deadline.
	ErrDeadlinePassed = errors.New("rsvp deadline has passed")

	// ErrEventFull is returned when accepted rows have reached capacity.
	ErrEventFull = errors.New("event is already full")
)

// UnknownAttendeesError reports invite attendee ids that resolve to no user.
type UnknownAttendeesError struct {
	IDs []string
}

func (e *UnknownAttendeesError) Error() string {
	return fmt.Sprintf("invalid attendee ids: %s", strings.Join(e.IDs, ", "))
}

// UserSummary is the attendee identity exposed in RSVP views.
type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timezone string `json:"timezone,omitempty"`
}

// Invitation is one ledger row from the attendee's point of view.
type Invitation struct {
	RsvpID    string       `json:"rsvp_id"`
	Status    string       `json:"status"`
	InvitedAt int64        `json:"invited_at"`
	RsvpDate  int64        `json:"rsvp_date,omitempty"`
	CheckedIn bool         `json:"checked_in"`
	Event     *store.Event `json:"event,omitempty"`
}

// ManageEntry is one row of the host's invite-management view. Rows with a
// ledger entry carry its id and timestamps; uninvited users carry only
// identity and the "uninvited" status.
type ManageEntry struct {
	Status    string      `json:"status"`
	RsvpID    string      `json:"rsvp_id,omitempty"`
	InvitedAt int64       `json:"invited_at,omitempty"`
	RsvpDate  int64       `json:"rsvp_date,omitempty"`
	User      UserSummary `json:"user"`
}

// StatusUninvited tags attendee-role users with no ledger row at all.
const StatusUninvited = "uninvited"

// Store is the persistence surface the service needs.
type Store interface {
	store.EventStore
	store.RsvpStore
	store.UserStore
	store.CheckinStore
}

// Service mediates invitations, accepts, and cancellations against the
// ledger and the event's capacity and deadline.
type Service struct {
	store Store
	clock func() time.Time
	log   *slog.Logger
}

// New creates an RSVP service. clock may be nil, defaulting to time.Now.
func New(st Store, clock func() time.Time, log *slog.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store: st,
		clock: clock,
		log:   logutil.NoopIfNil(log),
	}
}

// Invite creates invited rows for the given attendees. Attendees with an
// existing active row are skipped; a cancelled row is reset to invited with
// both flags cleared and the acceptance instant nulled, the only path that
// resurrects a ledger row. Returns the rows created or reset.
func (s *Service) Invite(ctx context.Context, eventID, hostID string, attendeeIDs []string) ([]*store.Rsvp, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.HostID != hostID {
		return nil, ErrNotHost
	}

	users, err := s.store.ListUsersByIDs(ctx, attendeeIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(attendeeIDs) {
		found := make(map[string]bool, len(users))
		for _, u := range users {
			found[u.ID] = true
		}
		var missing []string
		for _, id := range attendeeIDs {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return nil, &UnknownAttendeesError{IDs: missing}
	}

	now := s.clock().Unix()
	invites := make([]*store.Rsvp, 0, len(users))
	for _, user := range users {
		existing, err := s.store.GetRsvpByEventAndAttendee(ctx, eventID, user.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		if existing != nil {
			if existing.DerivedStatus() != store.RsvpCancelled {
				// Already invited or already accepted; leave untouched.
				continue
			}
			existing.Confirmed = false
			existing.Cancelled = false
			existing.RsvpDate = 0
			existing.UpdatedAt = now
			if err := s.store.UpdateRsvp(ctx, existing); err != nil {
				return nil, err
			}
			invites = append(invites, existing)
			continue
		}

		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		rsvp := &store.Rsvp{
			ID:         id.String(),
			EventID:    eventID,
			AttendeeID: user.ID,
			InvitedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.store.CreateRsvp(ctx, rsvp); err != nil {
			return nil, err
		}
		invites = append(invites, rsvp)
	}

	s.log.Info("attendees invited", "event_id", eventID, "count", len(invites))
	return invites, nil
}

// Accept confirms an invitation for its attendee, guarded by the event's
// RSVP deadline and capacity. The capacity count and the confirming write
// happen in one store transaction.
func (s *Service) Accept(ctx context.Context, rsvpID, callerID string) (*store.Rsvp, error) {
	rsvp, err := s.ownRsvp(ctx, rsvpID, callerID)
	if err != nil {
		return nil, err
	}
	if rsvp.DerivedStatus() == store.RsvpAccepted {
		return nil, ErrAlreadyAccepted
	}

	event, err := s.store.GetEvent(ctx, rsvp.EventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	now := s.clock()
	if now.Unix() > event.RsvpDeadline {
		return nil, ErrDeadlinePassed
	}

	confirmed, err := s.store.ConfirmRsvp(ctx, rsvpID, now.Unix(), event.MaxAttendees)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEventFull):
			return nil, ErrEventFull
		case errors.Is(err, store.ErrAlreadyExists):
			// The row was confirmed between the status check above and the
			// transaction, which happens when two accepts race.
			return nil, ErrAlreadyAccepted
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.log.Info("rsvp accepted", "rsvp_id", rsvpID, "event_id", event.ID)
	return confirmed, nil
}

// Cancel withdraws an invitation or an accepted RSVP. A row that was never
// confirmed is deleted; a confirmed row is flagged cancelled and retained.
func (s *Service) Cancel(ctx context.Context, rsvpID, callerID string) error {
	rsvp, err := s.ownRsvp(ctx, rsvpID, callerID)
	if err != nil {
		return err
	}

	switch {
	case !rsvp.Confirmed:
		// Never accepted: the invitation leaves no trace.
		if err := s.store.DeleteRsvp(ctx, rsvpID); err != nil {
			return err
		}
	case rsvp.Cancelled:
		return ErrAlreadyCancelled
	default:
		rsvp.Cancelled = true
		rsvp.UpdatedAt = s.clock().Unix()
		if err := s.store.UpdateRsvp(ctx, rsvp); err != nil {
			return err
		}
	}

	s.log.Info("rsvp cancelled", "rsvp_id", rsvpID, "event_id", rsvp.EventID)
	return nil
}

// ListMine returns the caller's ledger rows with derived status, the joined
// event, and whether the attendee has a check-in for that event.
func (s *Service) ListMine(ctx context.Context, userID string) ([]*Invitation, error) {
	rows, err := s.store.ListRsvpsByAttendee(ctx, userID)
	if err != nil {
		return nil, err
	}

	invitations := make([]*Invitation, 0, len(rows))
	for _, r := range rows {
		inv := &Invitation{
			RsvpID:    r.ID,
			Status:    r.DerivedStatus(),
			InvitedAt: r.InvitedAt,
			RsvpDate:  r.RsvpDate,
		}
		if event, err := s.store.GetEvent(ctx, r.EventID); err == nil {
			inv.Event = event
		}
		if _, err := s.store.GetCheckinByEventAndAttendee(ctx, r.EventID, userID); err == nil {
			inv.CheckedIn = true
		}
		invitations = append(invitations, inv)
	}
	return invitations, nil
}

// ConfirmedForEvent returns the accepted rows for an event, ordered by
// acceptance time. Host-only; ownership is checked here.
func (s *Service) ConfirmedForEvent(ctx context.Context, eventID, hostID string) ([]*store.Rsvp, error) {
	if err := s.requireHost(ctx, eventID, hostID); err != nil {
		return nil, err
	}
	return s.store.ListConfirmedRsvpsByEvent(ctx, eventID)
}

// ManageEvent returns the host's full invite picture for an event: every
// ledger row tagged with its derived status, followed by every
// attendee-role user with no ledger row at all, tagged uninvited.
func (s *Service) ManageEvent(ctx context.Context, eventID, hostID string) ([]*ManageEntry, error) {
	if err := s.requireHost(ctx, eventID, hostID); err != nil {
		return nil, err
	}

	rows, err := s.store.ListRsvpsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	entries := make([]*ManageEntry, 0, len(rows))
	invited := make(map[string]bool, len(rows))
	for _, r := range rows {
		invited[r.AttendeeID] = true
		entry := &ManageEntry{
			Status:    r.DerivedStatus(),
			RsvpID:    r.ID,
			InvitedAt: r.InvitedAt,
			RsvpDate:  r.RsvpDate,
		}
		if user, err := s.store.GetUser(ctx, r.AttendeeID); err == nil {
			entry.User = UserSummary{ID: user.ID, Name: user.Name, Email: user.Email, Timezone: user.Timezone}
		} else {
			entry.User = UserSummary{ID: r.AttendeeID}
		}
		entries = append(entries, entry)
	}

	attendees, err := s.store.ListUsersByRole(ctx, identity.RoleAttendee)
	if err != nil {
		return nil, err
	}
	for _, u := range attendees {
		if invited[u.ID] {
			continue
		}
		entries = append(entries, &ManageEntry{
			Status: StatusUninvited,
			User:   UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Timezone: u.Timezone},
		})
	}

	return entries, nil
}

func (s *Service) ownRsvp(ctx context.Context, rsvpID, callerID string) (*store.Rsvp, error) {
	rsvp, err := s.store.GetRsvp(ctx, rsvpID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rsvp.AttendeeID != callerID {
		return nil, ErrNotYours
	}
	return rsvp, nil
}

func (s *Service) requireHost(ctx context.Context, eventID, hostID string) error {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	if event.HostID != hostID {
		return ErrNotHost
	}
	return nil
}
