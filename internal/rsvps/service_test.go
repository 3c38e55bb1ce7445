// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

package rsvps_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gatherhub/gatherhub-go/internal/identity"
	"github.com/gatherhub/gatherhub-go/internal/rsvps"
	"github.com/gatherhub/gatherhub-go/internal/store"
	"github.com/gatherhub/gatherhub-go/internal/store/memory"
)

var base = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Driver
	svc   *rsvps.Service
	host  *store.User
	event *store.Event
	now   time.Time
}

func newFixture(t *testing.T, maxAttendees int) *fixture {
	t.Helper()
	s := memory.New()
	ctx := context.Background()

	f := &fixture{store: s, now: base}
	f.svc = rsvps.New(s, func() time.Time { return f.now }, nil)

	f.host = &store.User{ID: "host-1", Name: "Hank", Email: "hank@example.com", Role: identity.RoleHost}
	if err := s.CreateUser(ctx, f.host); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	f.event = &store.Event{
		ID:            "event-1",
		HostID:        f.host.ID,
		Title:         "Launch Party",
		StartDateTime: base.Add(2 * time.Hour).Unix(),
		RsvpDeadline:  base.Add(time.Hour).Unix(),
		MaxAttendees:  maxAttendees,
		Status:        store.EventScheduled,
	}
	if err := s.CreateEvent(ctx, f.event); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return f
}

func (f *fixture) addAttendee(t *testing.T, id string) *store.User {
	t.Helper()
	u := &store.User{ID: id, Name: "User " + id, Email: id + "@example.com", Role: identity.RoleAttendee}
	if err := f.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", id, err)
	}
	return u
}

func (f *fixture) invite(t *testing.T, ids ...string) []*store.Rsvp {
	t.Helper()
	rows, err := f.svc.Invite(context.Background(), f.event.ID, f.host.ID, ids)
	if err != nil {
		t.Fatalf("Invite(%v): %v", ids, err)
	}
	return rows
}

func TestInvite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addAttendee(t, "a")
	f.addAttendee(t, "b")

	rows := f.invite(t, "a", "b")
	if len(rows) != 2 {
		t.Fatalf("expected 2 invites, got %d", len(rows))
	}
	for _, r := range rows {
		if r.DerivedStatus() != store.RsvpInvited {
			t.Errorf("new invite status = %q, want invited", r.DerivedStatus())
		}
	}

	// Inviting again skips existing active rows.
	rows = f.invite(t, "a", "b")
	if len(rows) != 0 {
		t.Errorf("re-invite of active rows should be a no-op, got %d rows", len(rows))
	}

	t.Run("unknown event", func(t *testing.T) {
		_, err := f.svc.Invite(ctx, "missing", f.host.ID, []string{"a"})
		if !errors.Is(err, rsvps.ErrEventNotFound) {
			t.Errorf("expected ErrEventNotFound, got %v", err)
		}
	})

	t.Run("not the host", func(t *testing.T) {
		_, err := f.svc.Invite(ctx, f.event.ID, "a", []string{"b"})
		if !errors.Is(err, rsvps.ErrNotHost) {
			t.Errorf("expected ErrNotHost, got %v", err)
		}
	})

	t.Run("unknown attendees listed", func(t *testing.T) {
		_, err := f.svc.Invite(ctx, f.event.ID, f.host.ID, []string{"a", "ghost-1", "ghost-2"})
		var unknown *rsvps.UnknownAttendeesError
		if !errors.As(err, &unknown) {
			t.Fatalf("expected UnknownAttendeesError, got %v", err)
		}
		if len(unknown.IDs) != 2 {
			t.Errorf("expected 2 missing ids, got %v", unknown.IDs)
		}
	})
}

func TestAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addAttendee(t, "a")
	row := f.invite(t, "a")[0]

	accepted, err := f.svc.Accept(ctx, row.ID, "a")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.DerivedStatus() != store.RsvpAccepted {
		t.Errorf("status = %q, want accepted", accepted.DerivedStatus())
	}
	if accepted.RsvpDate != f.now.Unix() {
		t.Errorf("rsvp_date = %d, want %d", accepted.RsvpDate, f.now.Unix())
	}

	t.Run("second accept conflicts", func(t *testing.T) {
		_, err := f.svc.Accept(ctx, row.ID, "a")
		if !errors.Is(err, rsvps.ErrAlreadyAccepted) {
			t.Errorf("expected ErrAlreadyAccepted, got %v", err)
		}
	})

	t.Run("not the attendee", func(t *testing.T) {
		f.addAttendee(t, "b")
		other := f.invite(t, "b")[0]
		_, err := f.svc.Accept(ctx, other.ID, "a")
		if !errors.Is(err, rsvps.ErrNotYours) {
			t.Errorf("expected ErrNotYours, got %v", err)
		}
	})

	t.Run("unknown row", func(t *testing.T) {
		_, err := f.svc.Accept(ctx, "missing", "a")
		if !errors.Is(err, rsvps.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAcceptAfterDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addAttendee(t, "a")
	row := f.invite(t, "a")[0]

	f.now = base.Add(time.Hour + time.Second) // one past the deadline
	_, err := f.svc.Accept(ctx, row.ID, "a")
	if !errors.Is(err, rsvps.ErrDeadlinePassed) {
		t.Errorf("expected ErrDeadlinePassed, got %v", err)
	}
}

func TestAcceptCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	var rowIDs []string
	for _, id := range []string{"a", "b", "c"} {
		f.addAttendee(t, id)
		rowIDs = append(rowIDs, f.invite(t, id)[0].ID)
	}

	if _, err := f.svc.Accept(ctx, rowIDs[0], "a"); err != nil {
		t.Fatalf("Accept a: %v", err)
	}
	if _, err := f.svc.Accept(ctx, rowIDs[1], "b"); err != nil {
		t.Fatalf("Accept b: %v", err)
	}
	if _, err := f.svc.Accept(ctx, rowIDs[2], "c"); !errors.Is(err, rsvps.ErrEventFull) {
		t.Errorf("expected ErrEventFull, got %v", err)
	}

	count, _ := f.store.CountConfirmedRsvps(ctx, f.event.ID)
	if count != 2 {
		t.Errorf("confirmed count = %d, want 2", count)
	}
}

func TestCancelBeforeAcceptDeletesRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addAttendee(t, "a")
	row := f.invite(t, "a")[0]

	if err := f.svc.Cancel(ctx, row.ID, "a"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.store.GetRsvp(ctx, row.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unaccepted invitation should be deleted, got %v", err)
	}
}

func TestCancelAfterAcceptRetainsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addAttendee(t, "a")
	row := f.invite(t, "a")[0]

	if _, err := f.svc.Accept(ctx, row.ID, "a"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := f.svc.Cancel(ctx, row.ID, "a"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, err := f.store.GetRsvp(ctx, row.ID)
	if err != nil {
		t.Fatalf("row should be retained: %v", err)
	}
	if got.DerivedStatus() != store.RsvpCancelled {
		t.Errorf("status = %q, want cancelled", got.DerivedStatus())
	}
	if !got.Confirmed {
		t.Error("cancel keeps confirmed=true for history")
	}

	if err := f.svc.Cancel(ctx, row.ID, "a"); !errors.Is(err, rsvps.ErrAlreadyCancelled) {
		t.Errorf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestReInviteResetsCancelledRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addAttendee(t, "a")
	row := f.invite(t, "a")[0]

	if _, err := f.svc.Accept(ctx, row.ID, "a"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := f.svc.Cancel(ctx, row.ID, "a"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	rows := f.invite(t, "a")
	if len(rows) != 1 {
		t.Fatalf("expected the cancelled row to be reset, got %d rows", len(rows))
	}
	reset := rows[0]
	if reset.ID != row.ID {
		t.Errorf("reset should reuse the ledger row, got new id %s", reset.ID)
	}
	if reset.DerivedStatus() != store.RsvpInvited {
		t.Errorf("status = %q, want invited", reset.DerivedStatus())
	}
	if reset.RsvpDate != 0 {
		t.Errorf("acceptance instant should be nulled, got %d", reset.RsvpDate)
	}
}

func TestCapacityFreedByCancellation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	f.addAttendee(t, "a")
	f.addAttendee(t, "b")
	rowA := f.invite(t, "a")[0]
	rowB := f.invite(t, "b")[0]

	if _, err := f.svc.Accept(ctx, rowA.ID, "a"); err != nil {
		t.Fatalf("Accept a: %v", err)
	}
	if _, err := f.svc.Accept(ctx, rowB.ID, "b"); !errors.Is(err, rsvps.ErrEventFull) {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}

	if err := f.svc.Cancel(ctx, rowA.ID, "a"); err != nil {
		t.Fatalf("Cancel a: %v", err)
	}
	if _, err := f.svc.Accept(ctx, rowB.ID, "b"); err != nil {
		t.Errorf("seat freed by cancellation should be acceptable: %v", err)
	}
}

func TestListMine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addAttendee(t, "a")
	row := f.invite(t, "a")[0]
	if _, err := f.svc.Accept(ctx, row.ID, "a"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// A check-in for the same (event, attendee) pair flips the joined flag.
	checkin := &store.Checkin{ID: "c-1", EventID: f.event.ID, AttendeeID: "a", CheckinTime: f.now.Unix()}
	if err := f.store.CreateCheckin(ctx, checkin); err != nil {
		t.Fatalf("CreateCheckin: %v", err)
	}

	invitations, err := f.svc.ListMine(ctx, "a")
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(invitations) != 1 {
		t.Fatalf("expected 1 invitation, got %d", len(invitations))
	}
	inv := invitations[0]
	if inv.Status != store.RsvpAccepted {
		t.Errorf("status = %q, want accepted", inv.Status)
	}
	if !inv.CheckedIn {
		t.Error("expected checked_in = true")
	}
	if inv.Event == nil || inv.Event.ID != f.event.ID {
		t.Error("expected joined event summary")
	}
}

func TestManageEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.addAttendee(t, "a")
	f.addAttendee(t, "b")
	f.addAttendee(t, "c") // never invited
	f.invite(t, "a")
	f.invite(t, "b")

	entries, err := f.svc.ManageEvent(ctx, f.event.ID, f.host.ID)
	if err != nil {
		t.Fatalf("ManageEvent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	byUser := make(map[string]string)
	for _, e := range entries {
		byUser[e.User.ID] = e.Status
	}
	if byUser["a"] != store.RsvpInvited || byUser["b"] != store.RsvpInvited {
		t.Errorf("invited statuses wrong: %v", byUser)
	}
	if byUser["c"] != rsvps.StatusUninvited {
		t.Errorf("expected c uninvited, got %q", byUser["c"])
	}

	if _, err := f.svc.ManageEvent(ctx, f.event.ID, "a"); !errors.Is(err, rsvps.ErrNotHost) {
		t.Errorf("expected ErrNotHost for non-owner, got %v", err)
	}
}

func TestConfirmedForEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	for i, id := range []string{"a", "b", "c"} {
		f.addAttendee(t, id)
		row := f.invite(t, id)[0]
		if i < 2 {
			f.now = base.Add(time.Duration(i) * time.Minute)
			if _, err := f.svc.Accept(ctx, row.ID, id); err != nil {
				t.Fatalf("Accept %s: %v", id, err)
			}
		}
	}

	confirmed, err := f.svc.ConfirmedForEvent(ctx, f.event.ID, f.host.ID)
	if err != nil {
		t.Fatalf("ConfirmedForEvent: %v", err)
	}
	if len(confirmed) != 2 {
		t.Fatalf("expected 2 confirmed, got %d", len(confirmed))
	}
	if confirmed[0].RsvpDate > confirmed[1].RsvpDate {
		t.Error("confirmed rows should be ordered by acceptance time")
	}

	if _, err := f.svc.ConfirmedForEvent(ctx, f.event.ID, "not-host"); !errors.Is(err, rsvps.ErrNotHost) {
		t.Errorf("expected ErrNotHost, got %v", err)
	}
}

func TestOverbookingUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	const max = 3
	const extra = 5
	f := newFixture(t, max)

	var rowIDs []string
	var userIDs []string
	for i := 0; i < max+extra; i++ {
		id := fmt.Sprintf("u-%d", i)
		f.addAttendee(t, id)
		rowIDs = append(rowIDs, f.invite(t, id)[0].ID)
		userIDs = append(userIDs, id)
	}

	results := make(chan error, len(rowIDs))
	for i := range rowIDs {
		go func(rowID, userID string) {
			_, err := f.svc.Accept(ctx, rowID, userID)
			results <- err
		}(rowIDs[i], userIDs[i])
	}

	var ok, full int
	for range rowIDs {
		switch err := <-results; {
		case err == nil:
			ok++
		case errors.Is(err, rsvps.ErrEventFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != max || full != extra {
		t.Errorf("expected %d accepts and %d rejections, got %d/%d", max, extra, ok, full)
	}
}
