// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package store provides persistence primitives and driver abstractions.
package store

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrEventFull     = errors.New("event full")
	ErrClosed        = errors.New("store closed")
)

// Event status values. Transitions are strictly forward:
// scheduled -> live -> closed.
const (
	EventScheduled = "scheduled"
	EventLive      = "live"
	EventClosed    = "closed"
)

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (create tables, load data, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (memory, sqlite).
	Name() string
}

// UserStore defines operations for user persistence.
type UserStore interface {
	// CreateUser creates a new user. Returns ErrAlreadyExists if the email is taken.
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error

	// ListUsersByRole returns all users with the given role, ordered by name.
	ListUsersByRole(ctx context.Context, role string) ([]*User, error)

	// ListUsersByIDs returns the users whose ids appear in ids.
	// Missing ids are skipped, not errors; callers diff the result.
	ListUsersByIDs(ctx context.Context, ids []string) ([]*User, error)
}

// EventStore defines operations for event persistence.
type EventStore interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, id string) (*Event, error)
	UpdateEvent(ctx context.Context, event *Event) error

	// DeleteEvent removes an event and cascades to its RSVP and check-in rows.
	DeleteEvent(ctx context.Context, id string) error

	ListEventsByHost(ctx context.Context, hostID string) ([]*Event, error)
	ListEventsByStatus(ctx context.Context, status string) ([]*Event, error)

	// ListScheduledBefore returns scheduled events with StartDateTime <= cutoff.
	ListScheduledBefore(ctx context.Context, cutoff int64) ([]*Event, error)

	// ListEventsStartingBetween returns events with from <= StartDateTime <= to,
	// any status.
	ListEventsStartingBetween(ctx context.Context, from, to int64) ([]*Event, error)
}

// RsvpStore defines operations for RSVP ledger persistence.
type RsvpStore interface {
	// CreateRsvp creates a new ledger row. Returns ErrAlreadyExists if a row
	// for the (event, attendee) pair already exists.
	CreateRsvp(ctx context.Context, rsvp *Rsvp) error
	GetRsvp(ctx context.Context, id string) (*Rsvp, error)
	GetRsvpByEventAndAttendee(ctx context.Context, eventID, attendeeID string) (*Rsvp, error)
	UpdateRsvp(ctx context.Context, rsvp *Rsvp) error
	DeleteRsvp(ctx context.Context, id string) error

	// ListRsvpsByAttendee returns all rows for an attendee, newest invite first.
	ListRsvpsByAttendee(ctx context.Context, attendeeID string) ([]*Rsvp, error)

	// ListRsvpsByEvent returns all rows for an event, oldest invite first.
	ListRsvpsByEvent(ctx context.Context, eventID string) ([]*Rsvp, error)

	// ListConfirmedRsvpsByEvent returns accepted rows (confirmed, not
	// cancelled) ordered by acceptance time.
	ListConfirmedRsvpsByEvent(ctx context.Context, eventID string) ([]*Rsvp, error)

	// CountConfirmedRsvps counts accepted rows for an event.
	CountConfirmedRsvps(ctx context.Context, eventID string) (int64, error)

	// ConfirmRsvp marks a row accepted, re-counting accepted rows for the
	// row's event and writing in one transaction so concurrent confirms
	// cannot overbook. Returns ErrEventFull when the count has reached
	// maxAttendees, ErrAlreadyExists when the row is already accepted,
	// ErrNotFound when the row is gone.
	ConfirmRsvp(ctx context.Context, id string, rsvpDate int64, maxAttendees int) (*Rsvp, error)
}

// CheckinStore defines operations for check-in persistence.
type CheckinStore interface {
	// CreateCheckin creates a check-in row. For non-walk-in rows it returns
	// ErrAlreadyExists if the (event, attendee) pair already checked in.
	// Walk-in rows are never deduplicated.
	CreateCheckin(ctx context.Context, checkin *Checkin) error

	GetCheckinByEventAndAttendee(ctx context.Context, eventID, attendeeID string) (*Checkin, error)
	ListCheckinsByEvent(ctx context.Context, eventID string) ([]*Checkin, error)
}

// Store is the full persistence surface implemented by every driver.
type Store interface {
	Driver
	UserStore
	EventStore
	RsvpStore
	CheckinStore
}

// User represents an account. Role is one of the identity role constants.
type User struct {
	ID           string `json:"id" gorm:"primaryKey"`
	Name         string `json:"name"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	PasswordHash string `json:"-"`
	Role         string `json:"role" gorm:"index"` // host, attendee
	Timezone     string `json:"timezone,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Event represents a hosted event and its lifecycle state.
type Event struct {
	ID             string `json:"id" gorm:"primaryKey"`
	HostID         string `json:"host_id" gorm:"index"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	StartDateTime  int64  `json:"start_date_time" gorm:"index"`
	RsvpDeadline   int64  `json:"rsvp_deadline"`
	MaxAttendees   int    `json:"max_attendees"`
	IsVirtual      bool   `json:"is_virtual"`
	Location       string `json:"location,omitempty"` // address if physical, URL if virtual
	Status         string `json:"status" gorm:"index"` // scheduled, live, closed
	CheckInEnabled bool   `json:"check_in_enabled"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// Rsvp is one attendee's ledger row for one event.
// Status is never stored; it is derived from the two flags.
type Rsvp struct {
	ID         string `json:"id" gorm:"primaryKey"`
	EventID    string `json:"event_id" gorm:"uniqueIndex:idx_rsvp_event_attendee"`
	AttendeeID string `json:"attendee_id" gorm:"index;uniqueIndex:idx_rsvp_event_attendee"`
	Confirmed  bool   `json:"confirmed"`
	Cancelled  bool   `json:"cancelled"`
	InvitedAt  int64  `json:"invited_at"`
	RsvpDate   int64  `json:"rsvp_date,omitempty"` // 0 = never accepted
	UpdatedAt  int64  `json:"updated_at"`
}

// Rsvp derived statuses.
const (
	RsvpInvited   = "invited"
	RsvpAccepted  = "accepted"
	RsvpCancelled = "cancelled"
)

// DerivedStatus classifies the row from its stored flags.
// Cancelled wins over confirmed: a row that was accepted and later
// cancelled keeps confirmed=true for history but reads as cancelled.
func (r *Rsvp) DerivedStatus() string {
	switch {
	case r.Cancelled:
		return RsvpCancelled
	case r.Confirmed:
		return RsvpAccepted
	default:
		return RsvpInvited
	}
}

// Checkin records one admission into an event.
// AttendeeID is empty for walk-ins; walk-ins keep only the free-form
// guest descriptor the host typed in.
type Checkin struct {
	ID          string `json:"id" gorm:"primaryKey"`
	EventID     string `json:"event_id" gorm:"index"`
	AttendeeID  string `json:"attendee_id,omitempty" gorm:"index"`
	IsWalkIn    bool   `json:"is_walk_in"`
	GuestName   string `json:"guest_name,omitempty"`
	GuestEmail  string `json:"guest_email,omitempty"`
	CheckinTime int64  `json:"checkin_time"`
}
