// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package memory implements an in-memory persistence driver.
// Intended for tests and dev mode; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gatherhub/gatherhub-go/internal/store"
)

func init() {
	store.Register("memory", NewDriver)
}

// Driver implements the store.Store interface with mutex-protected maps.
type Driver struct {
	mu       sync.Mutex
	users    map[string]*store.User
	events   map[string]*store.Event
	rsvps    map[string]*store.Rsvp
	checkins map[string]*store.Checkin
	closed   bool
}

// NewDriver creates a new in-memory driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Store, error) {
	return &Driver{
		users:    make(map[string]*store.User),
		events:   make(map[string]*store.Event),
		rsvps:    make(map[string]*store.Rsvp),
		checkins: make(map[string]*store.Checkin),
	}, nil
}

// New creates a ready-to-use in-memory store for tests.
func New() *Driver {
	d, _ := NewDriver(&store.DriverConfig{Driver: "memory"})
	return d.(*Driver)
}

// Name returns the driver name.
func (d *Driver) Name() string { return "memory" }

// Init is a no-op for the memory driver.
func (d *Driver) Init(ctx context.Context) error { return nil }

// Close marks the store closed.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func copyUser(u *store.User) *store.User {
	c := *u
	return &c
}

func copyEvent(e *store.Event) *store.Event {
	c := *e
	return &c
}

func copyRsvp(r *store.Rsvp) *store.Rsvp {
	c := *r
	return &c
}

func copyCheckin(c *store.Checkin) *store.Checkin {
	cp := *c
	return &cp
}

// UserStore implementation

func (d *Driver) CreateUser(ctx context.Context, user *store.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return store.ErrClosed
	}
	for _, u := range d.users {
		if u.Email == user.Email {
			return store.ErrAlreadyExists
		}
	}
	d.users[user.ID] = copyUser(user)
	return nil
}

func (d *Driver) GetUser(ctx context.Context, id string) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(u), nil
}

func (d *Driver) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (d *Driver) UpdateUser(ctx context.Context, user *store.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[user.ID]; !ok {
		return store.ErrNotFound
	}
	d.users[user.ID] = copyUser(user)
	return nil
}

func (d *Driver) DeleteUser(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(d.users, id)
	return nil
}

func (d *Driver) ListUsersByRole(ctx context.Context, role string) ([]*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	users := make([]*store.User, 0)
	for _, u := range d.users {
		if u.Role == role {
			users = append(users, copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (d *Driver) ListUsersByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	users := make([]*store.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			users = append(users, copyUser(u))
		}
	}
	return users, nil
}

// EventStore implementation

func (d *Driver) CreateEvent(ctx context.Context, event *store.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[event.ID]; ok {
		return store.ErrAlreadyExists
	}
	d.events[event.ID] = copyEvent(event)
	return nil
}

func (d *Driver) GetEvent(ctx context.Context, id string) (*store.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyEvent(e), nil
}

func (d *Driver) UpdateEvent(ctx context.Context, event *store.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[event.ID]; !ok {
		return store.ErrNotFound
	}
	d.events[event.ID] = copyEvent(event)
	return nil
}

func (d *Driver) DeleteEvent(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[id]; !ok {
		return store.ErrNotFound
	}
	delete(d.events, id)
	for rid, r := range d.rsvps {
		if r.EventID == id {
			delete(d.rsvps, rid)
		}
	}
	for cid, c := range d.checkins {
		if c.EventID == id {
			delete(d.checkins, cid)
		}
	}
	return nil
}

func (d *Driver) ListEventsByHost(ctx context.Context, hostID string) ([]*store.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	events := make([]*store.Event, 0)
	for _, e := range d.events {
		if e.HostID == hostID {
			events = append(events, copyEvent(e))
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartDateTime < events[j].StartDateTime })
	return events, nil
}

func (d *Driver) ListEventsByStatus(ctx context.Context, status string) ([]*store.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	events := make([]*store.Event, 0)
	for _, e := range d.events {
		if e.Status == status {
			events = append(events, copyEvent(e))
		}
	}
	return events, nil
}

func (d *Driver) ListScheduledBefore(ctx context.Context, cutoff int64) ([]*store.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	events := make([]*store.Event, 0)
	for _, e := range d.events {
		if e.Status == store.EventScheduled && e.StartDateTime <= cutoff {
			events = append(events, copyEvent(e))
		}
	}
	return events, nil
}

func (d *Driver) ListEventsStartingBetween(ctx context.Context, from, to int64) ([]*store.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	events := make([]*store.Event, 0)
	for _, e := range d.events {
		if e.StartDateTime >= from && e.StartDateTime <= to {
			events = append(events, copyEvent(e))
		}
	}
	return events, nil
}

// RsvpStore implementation

func (d *Driver) CreateRsvp(ctx context.Context, rsvp *store.Rsvp) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.rsvps {
		if r.EventID == rsvp.EventID && r.AttendeeID == rsvp.AttendeeID {
			return store.ErrAlreadyExists
		}
	}
	d.rsvps[rsvp.ID] = copyRsvp(rsvp)
	return nil
}

func (d *Driver) GetRsvp(ctx context.Context, id string) (*store.Rsvp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rsvps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyRsvp(r), nil
}

func (d *Driver) GetRsvpByEventAndAttendee(ctx context.Context, eventID, attendeeID string) (*store.Rsvp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.rsvps {
		if r.EventID == eventID && r.AttendeeID == attendeeID {
			return copyRsvp(r), nil
		}
	}
	return nil, store.ErrNotFound
}

func (d *Driver) UpdateRsvp(ctx context.Context, rsvp *store.Rsvp) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rsvps[rsvp.ID]; !ok {
		return store.ErrNotFound
	}
	d.rsvps[rsvp.ID] = copyRsvp(rsvp)
	return nil
}

func (d *Driver) DeleteRsvp(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rsvps[id]; !ok {
		return store.ErrNotFound
	}
	delete(d.rsvps, id)
	return nil
}

func (d *Driver) ListRsvpsByAttendee(ctx context.Context, attendeeID string) ([]*store.Rsvp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rsvps := make([]*store.Rsvp, 0)
	for _, r := range d.rsvps {
		if r.AttendeeID == attendeeID {
			rsvps = append(rsvps, copyRsvp(r))
		}
	}
	sort.Slice(rsvps, func(i, j int) bool { return rsvps[i].InvitedAt > rsvps[j].InvitedAt })
	return rsvps, nil
}

func (d *Driver) ListRsvpsByEvent(ctx context.Context, eventID string) ([]*store.Rsvp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rsvps := make([]*store.Rsvp, 0)
	for _, r := range d.rsvps {
		if r.EventID == eventID {
			rsvps = append(rsvps, copyRsvp(r))
		}
	}
	sort.Slice(rsvps, func(i, j int) bool { return rsvps[i].InvitedAt < rsvps[j].InvitedAt })
	return rsvps, nil
}

func (d *Driver) ListConfirmedRsvpsByEvent(ctx context.Context, eventID string) ([]*store.Rsvp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rsvps := make([]*store.Rsvp, 0)
	for _, r := range d.rsvps {
		if r.EventID == eventID && r.Confirmed && !r.Cancelled {
			rsvps = append(rsvps, copyRsvp(r))
		}
	}
	sort.Slice(rsvps, func(i, j int) bool { return rsvps[i].RsvpDate < rsvps[j].RsvpDate })
	return rsvps, nil
}

func (d *Driver) CountConfirmedRsvps(ctx context.Context, eventID string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.countConfirmedLocked(eventID), nil
}

func (d *Driver) countConfirmedLocked(eventID string) int64 {
	var count int64
	for _, r := range d.rsvps {
		if r.EventID == eventID && r.Confirmed && !r.Cancelled {
			count++
		}
	}
	return count
}

// ConfirmRsvp counts and writes under the store mutex, so concurrent
// confirms serialize and cannot overbook.
func (d *Driver) ConfirmRsvp(ctx context.Context, id string, rsvpDate int64, maxAttendees int) (*store.Rsvp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rsvps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.Confirmed && !r.Cancelled {
		return nil, store.ErrAlreadyExists
	}
	if d.countConfirmedLocked(r.EventID) >= int64(maxAttendees) {
		return nil, store.ErrEventFull
	}
	r.Confirmed = true
	r.Cancelled = false
	r.RsvpDate = rsvpDate
	r.UpdatedAt = rsvpDate
	return copyRsvp(r), nil
}

// CheckinStore implementation

func (d *Driver) CreateCheckin(ctx context.Context, checkin *store.Checkin) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !checkin.IsWalkIn {
		for _, c := range d.checkins {
			if c.EventID == checkin.EventID && c.AttendeeID == checkin.AttendeeID && !c.IsWalkIn {
				return store.ErrAlreadyExists
			}
		}
	}
	d.checkins[checkin.ID] = copyCheckin(checkin)
	return nil
}

func (d *Driver) GetCheckinByEventAndAttendee(ctx context.Context, eventID, attendeeID string) (*store.Checkin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.checkins {
		if c.EventID == eventID && c.AttendeeID == attendeeID && !c.IsWalkIn {
			return copyCheckin(c), nil
		}
	}
	return nil, store.ErrNotFound
}

func (d *Driver) ListCheckinsByEvent(ctx context.Context, eventID string) ([]*store.Checkin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	checkins := make([]*store.Checkin, 0)
	for _, c := range d.checkins {
		if c.EventID == eventID {
			checkins = append(checkins, copyCheckin(c))
		}
	}
	sort.Slice(checkins, func(i, j int) bool { return checkins[i].CheckinTime < checkins[j].CheckinTime })
	return checkins, nil
}

// Compile-time interface checks
var _ store.Store = (*Driver)(nil)
