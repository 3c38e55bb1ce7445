// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package events implements the event resource: creation, host management,
// and the explicit host close action.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gatherhub/gatherhub-go/internal/logutil"
	"github.com/gatherhub/gatherhub-go/internal/store"
)

var (
	// ErrNotFound is returned when the event id does not resolve.
	ErrNotFound = errors.New("event not found")

	// ErrNotHost is returned when the caller does not own the event.
	ErrNotHost = errors.New("not your event")

	// ErrInvalid is returned (wrapped) for malformed event parameters.
	ErrInvalid = errors.New("invalid event")
)

// CreateParams are the host-supplied fields for a new event.
type CreateParams struct {
	Title         string
	Description   string
	StartDateTime time.Time
	RsvpDeadline  time.Time
	MaxAttendees  int
	IsVirtual     bool
	Location      string
}

// UpdateParams are the mutable fields of an event; nil means leave unchanged.
type UpdateParams struct {
	Title         *string
	Description   *string
	StartDateTime *time.Time
	RsvpDeadline  *time.Time
	MaxAttendees  *int
	IsVirtual     *bool
	Location      *string
}

// Service mediates event CRUD for hosts.
type Service struct {
	events store.EventStore
	clock  func() time.Time
	log    *slog.Logger
}

// New creates an events service. clock may be nil, defaulting to time.Now.
func New(events store.EventStore, clock func() time.Time, log *slog.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		events: events,
		clock:  clock,
		log:    logutil.NoopIfNil(log),
	}
}

func validate(p CreateParams) error {
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if p.MaxAttendees < 1 {
		return fmt.Errorf("%w: max_attendees must be at least 1", ErrInvalid)
	}
	if p.StartDateTime.IsZero() || p.RsvpDeadline.IsZero() {
		return fmt.Errorf("%w: start_date_time and rsvp_deadline are required", ErrInvalid)
	}
	if p.RsvpDeadline.After(p.StartDateTime) {
		return fmt.Errorf("%w: rsvp_deadline must not be after start_date_time", ErrInvalid)
	}
	return nil
}

// sameUTCDay reports whether two instants fall on the same UTC calendar day.
func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// Create creates a new scheduled event owned by hostID. Check-in opens
// immediately when the event starts on the current UTC day, so same-day
// events do not wait for the daily pre-open sweep.
func (s *Service) Create(ctx context.Context, hostID string, p CreateParams) (*store.Event, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	now := s.clock()
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	event := &store.Event{
		ID:             id.String(),
		HostID:         hostID,
		Title:          p.Title,
		Description:    p.Description,
		StartDateTime:  p.StartDateTime.Unix(),
		RsvpDeadline:   p.RsvpDeadline.Unix(),
		MaxAttendees:   p.MaxAttendees,
		IsVirtual:      p.IsVirtual,
		Location:       p.Location,
		Status:         store.EventScheduled,
		CheckInEnabled: sameUTCDay(p.StartDateTime, now),
		CreatedAt:      now.Unix(),
		UpdatedAt:      now.Unix(),
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.log.Info("event created", "event_id", event.ID, "host_id", hostID)
	return event, nil
}

// GetByID retrieves an event.
func (s *Service) GetByID(ctx context.Context, id string) (*store.Event, error) {
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// ListByHost returns all events owned by hostID.
func (s *Service) ListByHost(ctx context.Context, hostID string) ([]*store.Event, error) {
	return s.events.ListEventsByHost(ctx, hostID)
}

// Update mutates an event's host-editable fields. Only the owning host may
// update; status and check-in remain the lifecycle engine's business.
func (s *Service) Update(ctx context.Context, eventID, hostID string, p UpdateParams) (*store.Event, error) {
	event, err := s.ownedEvent(ctx, eventID, hostID)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		event.Title = *p.Title
	}
	if p.Description != nil {
		event.Description = *p.Description
	}
	if p.StartDateTime != nil {
		event.StartDateTime = p.StartDateTime.Unix()
	}
	if p.RsvpDeadline != nil {
		event.RsvpDeadline = p.RsvpDeadline.Unix()
	}
	if p.MaxAttendees != nil {
		if *p.MaxAttendees < 1 {
			return nil, fmt.Errorf("%w: max_attendees must be at least 1", ErrInvalid)
		}
		event.MaxAttendees = *p.MaxAttendees
	}
	if p.IsVirtual != nil {
		event.IsVirtual = *p.IsVirtual
	}
	if p.Location != nil {
		event.Location = *p.Location
	}
	if event.RsvpDeadline > event.StartDateTime {
		return nil, fmt.Errorf("%w: rsvp_deadline must not be after start_date_time", ErrInvalid)
	}
	event.UpdatedAt = s.clock().Unix()

	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Delete removes an event and everything hanging off it.
func (s *Service) Delete(ctx context.Context, eventID, hostID string) error {
	if _, err := s.ownedEvent(ctx, eventID, hostID); err != nil {
		return err
	}
	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.log.Info("event deleted", "event_id", eventID, "host_id", hostID)
	return nil
}

// CloseEvent is the explicit host close action. Closing is always a forward
// transition, so it never violates lifecycle monotonicity.
func (s *Service) CloseEvent(ctx context.Context, eventID, hostID string) (*store.Event, error) {
	event, err := s.ownedEvent(ctx, eventID, hostID)
	if err != nil {
		return nil, err
	}

	if event.Status == store.EventClosed {
		return event, nil
	}

	event.Status = store.EventClosed
	event.CheckInEnabled = false
	event.UpdatedAt = s.clock().Unix()

	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.log.Info("event closed by host", "event_id", eventID, "host_id", hostID)
	return event, nil
}

func (s *Service) ownedEvent(ctx context.Context, eventID, hostID string) (*store.Event, error) {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.HostID != hostID {
		return nil, ErrNotHost
	}
	return event, nil
}
