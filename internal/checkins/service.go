// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package checkins implements the check-in gate: self check-ins backed by a
// confirmed RSVP, and host-admitted walk-ins with no ledger linkage.
package checkins

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gatherhub/gatherhub-go/internal/logutil"
	"github.com/gatherhub/gatherhub-go/internal/store"
)

var (
	// ErrEventNotFound is returned when the event id does not resolve.
	ErrEventNotFound = errors.New("event not found")

	// ErrNotOpenYet is returned for a self check-in before the event starts.
	ErrNotOpenYet = errors.New("check-in not open yet")

	// ErrNoConfirmedRsvp is returned when the attendee holds no accepted
	// ledger row for the event.
	ErrNoConfirmedRsvp = errors.New("no confirmed rsvp found")

	// ErrAlreadyCheckedIn is returned for a duplicate self check-in.
	ErrAlreadyCheckedIn = errors.New("already checked in")
)

// WalkInGuest is the host-typed descriptor for a walk-in admission.
type WalkInGuest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Entry is a check-in row with attendee identity joined where present.
type Entry struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	IsWalkIn    bool   `json:"is_walk_in"`
	CheckinTime int64  `json:"checkin_time"`

	AttendeeID    string `json:"attendee_id,omitempty"`
	AttendeeName  string `json:"attendee_name,omitempty"`
	AttendeeEmail string `json:"attendee_email,omitempty"`

	GuestName  string `json:"guest_name,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
}

// Store is the persistence surface the service needs.
type Store interface {
	store.EventStore
	store.RsvpStore
	store.UserStore
	store.CheckinStore
}

// Service admits attendees and walk-ins into events.
type Service struct {
	store Store
	clock func() time.Time
	log   *slog.Logger
}

// New creates a check-in service. clock may be nil, defaulting to time.Now.
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

// SelfCheckIn admits an attendee who holds an accepted RSVP, once the event
// has started. At most one self check-in per (event, attendee).
func (s *Service) SelfCheckIn(ctx context.Context, userID, eventID string) (*store.Checkin, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	now := s.clock()
	if now.Unix() < event.StartDateTime {
		return nil, ErrNotOpenYet
	}

	rsvp, err := s.store.GetRsvpByEventAndAttendee(ctx, eventID, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if rsvp == nil || rsvp.DerivedStatus() != store.RsvpAccepted {
		return nil, ErrNoConfirmedRsvp
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	checkin := &store.Checkin{
		ID:          id.String(),
		EventID:     eventID,
		AttendeeID:  userID,
		CheckinTime: now.Unix(),
	}
	if err := s.store.CreateCheckin(ctx, checkin); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}

	s.log.Info("attendee checked in", "event_id", eventID, "attendee_id", userID)
	return checkin, nil
}

// WalkIn admits a guest with no RSVP. The caller must already be the
// event's host; role and ownership are enforced by the API layer. Repeated
// walk-ins are separate records, never merged.
func (s *Service) WalkIn(ctx context.Context, eventID string, guest WalkInGuest) (*store.Checkin, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	checkin := &store.Checkin{
		ID:          id.String(),
		EventID:     eventID,
		IsWalkIn:    true,
		GuestName:   guest.Name,
		GuestEmail:  guest.Email,
		CheckinTime: s.clock().Unix(),
	}
	if err := s.store.CreateCheckin(ctx, checkin); err != nil {
		return nil, err
	}

	s.log.Info("walk-in admitted", "event_id", eventID)
	return checkin, nil
}

// List returns every check-in for an event with attendee identity joined
// where the row links to an account.
func (s *Service) List(ctx context.Context, eventID string) ([]*Entry, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	rows, err := s.store.ListCheckinsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(rows))
	for _, c := range rows {
		entry := &Entry{
			ID:          c.ID,
			EventID:     c.EventID,
			IsWalkIn:    c.IsWalkIn,
			CheckinTime: c.CheckinTime,
			AttendeeID:  c.AttendeeID,
			GuestName:   c.GuestName,
			GuestEmail:  c.GuestEmail,
		}
		if c.AttendeeID != "" {
			if user, err := s.store.GetUser(ctx, c.AttendeeID); err == nil {
				entry.AttendeeName = user.Name
				entry.AttendeeEmail = user.Email
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
