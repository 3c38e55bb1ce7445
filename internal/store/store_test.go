// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gatherhub/gatherhub-go/internal/store"
	_ "github.com/gatherhub/gatherhub-go/internal/store/memory"
	_ "github.com/gatherhub/gatherhub-go/internal/store/sqlite"
)

func testUser(role string) *store.User {
	id := uuid.New().String()
	return &store.User{
		ID:        id,
		Name:      "User " + id[:8],
		Email:     id[:8] + "@example.com",
		Role:      role,
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}
}

func testEvent(hostID string) *store.Event {
	now := time.Now().Unix()
	return &store.Event{
		ID:            uuid.New().String(),
		HostID:        hostID,
		Title:         "Launch Party",
		Description:   "Quarterly launch",
		StartDateTime: now + 3600,
		RsvpDeadline:  now + 1800,
		MaxAttendees:  10,
		Location:      "Main Hall",
		Status:        store.EventScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func testRsvp(eventID, attendeeID string) *store.Rsvp {
	return &store.Rsvp{
		ID:         uuid.New().String(),
		EventID:    eventID,
		AttendeeID: attendeeID,
		InvitedAt:  time.Now().Unix(),
		UpdatedAt:  time.Now().Unix(),
	}
}

// runDriverTests runs the standard test suite against a driver.
func runDriverTests(t *testing.T, driverName string, cfg *store.DriverConfig) {
	ctx := context.Background()

	newStore := func(t *testing.T) store.Store {
		s, err := store.New(cfg)
		if err != nil {
			t.Fatalf("store.New(%s): %v", driverName, err)
		}
		if err := s.Init(ctx); err != nil {
			t.Fatalf("Init: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}

	t.Run("UserCRUD", func(t *testing.T) {
		s := newStore(t)
		user := testUser("host")

		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		dup := testUser("attendee")
		dup.Email = user.Email
		if err := s.CreateUser(ctx, dup); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("duplicate email: expected ErrAlreadyExists, got %v", err)
		}

		got, err := s.GetUserByEmail(ctx, user.Email)
		if err != nil {
			t.Fatalf("GetUserByEmail: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("expected id %s, got %s", user.ID, got.ID)
		}

		if _, err := s.GetUser(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListUsersByIDs", func(t *testing.T) {
		s := newStore(t)
		a := testUser("attendee")
		b := testUser("attendee")
		for _, u := range []*store.User{a, b} {
			if err := s.CreateUser(ctx, u); err != nil {
				t.Fatalf("CreateUser: %v", err)
			}
		}

		users, err := s.ListUsersByIDs(ctx, []string{a.ID, "missing", b.ID})
		if err != nil {
			t.Fatalf("ListUsersByIDs: %v", err)
		}
		if len(users) != 2 {
			t.Errorf("expected 2 users, got %d", len(users))
		}
	})

	t.Run("EventCRUDAndCascade", func(t *testing.T) {
		s := newStore(t)
		host := testUser("host")
		attendee := testUser("attendee")
		if err := s.CreateUser(ctx, host); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if err := s.CreateUser(ctx, attendee); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		event := testEvent(host.ID)
		if err := s.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}

		rsvp := testRsvp(event.ID, attendee.ID)
		if err := s.CreateRsvp(ctx, rsvp); err != nil {
			t.Fatalf("CreateRsvp: %v", err)
		}
		checkin := &store.Checkin{
			ID:          uuid.New().String(),
			EventID:     event.ID,
			AttendeeID:  attendee.ID,
			CheckinTime: time.Now().Unix(),
		}
		if err := s.CreateCheckin(ctx, checkin); err != nil {
			t.Fatalf("CreateCheckin: %v", err)
		}

		if err := s.DeleteEvent(ctx, event.ID); err != nil {
			t.Fatalf("DeleteEvent: %v", err)
		}

		if _, err := s.GetRsvp(ctx, rsvp.ID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("rsvp should cascade on event delete, got %v", err)
		}
		checkins, err := s.ListCheckinsByEvent(ctx, event.ID)
		if err != nil {
			t.Fatalf("ListCheckinsByEvent: %v", err)
		}
		if len(checkins) != 0 {
			t.Errorf("checkins should cascade on event delete, got %d", len(checkins))
		}
	})

	t.Run("EventLifecycleQueries", func(t *testing.T) {
		s := newStore(t)
		host := testUser("host")
		if err := s.CreateUser(ctx, host); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		now := time.Now().Unix()
		due := testEvent(host.ID)
		due.StartDateTime = now - 60
		future := testEvent(host.ID)
		future.StartDateTime = now + 7200
		live := testEvent(host.ID)
		live.Status = store.EventLive
		live.StartDateTime = now + 600
		for _, e := range []*store.Event{due, future, live} {
			if err := s.CreateEvent(ctx, e); err != nil {
				t.Fatalf("CreateEvent: %v", err)
			}
		}

		scheduled, err := s.ListScheduledBefore(ctx, now)
		if err != nil {
			t.Fatalf("ListScheduledBefore: %v", err)
		}
		if len(scheduled) != 1 || scheduled[0].ID != due.ID {
			t.Errorf("expected only the due event, got %d rows", len(scheduled))
		}

		lives, err := s.ListEventsByStatus(ctx, store.EventLive)
		if err != nil {
			t.Fatalf("ListEventsByStatus: %v", err)
		}
		if len(lives) != 1 || lives[0].ID != live.ID {
			t.Errorf("expected only the live event, got %d rows", len(lives))
		}

		between, err := s.ListEventsStartingBetween(ctx, now+3600, now+10800)
		if err != nil {
			t.Fatalf("ListEventsStartingBetween: %v", err)
		}
		if len(between) != 1 || between[0].ID != future.ID {
			t.Errorf("expected only the future event, got %d rows", len(between))
		}
	})

	t.Run("RsvpPairUnique", func(t *testing.T) {
		s := newStore(t)
		rsvp := testRsvp("event-1", "user-1")
		if err := s.CreateRsvp(ctx, rsvp); err != nil {
			t.Fatalf("CreateRsvp: %v", err)
		}
		dup := testRsvp("event-1", "user-1")
		if err := s.CreateRsvp(ctx, dup); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("duplicate pair: expected ErrAlreadyExists, got %v", err)
		}
		other := testRsvp("event-1", "user-2")
		if err := s.CreateRsvp(ctx, other); err != nil {
			t.Errorf("different attendee should be accepted: %v", err)
		}
	})

	t.Run("ConfirmRsvpCapacity", func(t *testing.T) {
		s := newStore(t)
		const max = 2
		var ids []string
		for i := 0; i < max+1; i++ {
			r := testRsvp("event-cap", fmt.Sprintf("user-%d", i))
			if err := s.CreateRsvp(ctx, r); err != nil {
				t.Fatalf("CreateRsvp: %v", err)
			}
			ids = append(ids, r.ID)
		}

		now := time.Now().Unix()
		for i := 0; i < max; i++ {
			if _, err := s.ConfirmRsvp(ctx, ids[i], now, max); err != nil {
				t.Fatalf("ConfirmRsvp %d: %v", i, err)
			}
		}
		if _, err := s.ConfirmRsvp(ctx, ids[max], now, max); !errors.Is(err, store.ErrEventFull) {
			t.Errorf("expected ErrEventFull, got %v", err)
		}

		count, err := s.CountConfirmedRsvps(ctx, "event-cap")
		if err != nil {
			t.Fatalf("CountConfirmedRsvps: %v", err)
		}
		if count != max {
			t.Errorf("expected %d confirmed, got %d", max, count)
		}

		// Confirming a row twice is rejected inside the transaction, so
		// racing accepts cannot both report success.
		if _, err := s.ConfirmRsvp(ctx, ids[0], now, max); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("repeat confirm: expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("ConfirmRsvpConcurrent", func(t *testing.T) {
		s := newStore(t)
		const max = 4
		const attempts = max + 5

		var ids []string
		for i := 0; i < attempts; i++ {
			r := testRsvp("event-race", fmt.Sprintf("user-%d", i))
			if err := s.CreateRsvp(ctx, r); err != nil {
				t.Fatalf("CreateRsvp: %v", err)
			}
			ids = append(ids, r.ID)
		}

		var wg sync.WaitGroup
		results := make(chan error, attempts)
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := s.ConfirmRsvp(context.Background(), id, time.Now().Unix(), max)
				results <- err
			}(id)
		}
		wg.Wait()
		close(results)

		var ok, full int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, store.ErrEventFull):
				full++
			default:
				t.Fatalf("unexpected ConfirmRsvp error: %v", err)
			}
		}
		if ok != max || full != attempts-max {
			t.Errorf("expected %d confirms and %d rejections, got %d/%d", max, attempts-max, ok, full)
		}

		count, err := s.CountConfirmedRsvps(ctx, "event-race")
		if err != nil {
			t.Fatalf("CountConfirmedRsvps: %v", err)
		}
		if count != max {
			t.Errorf("capacity overbooked: %d confirmed for max %d", count, max)
		}
	})

	t.Run("CheckinUniqueAndWalkIns", func(t *testing.T) {
		s := newStore(t)
		checkin := &store.Checkin{
			ID:          uuid.New().String(),
			EventID:     "event-1",
			AttendeeID:  "user-1",
			CheckinTime: time.Now().Unix(),
		}
		if err := s.CreateCheckin(ctx, checkin); err != nil {
			t.Fatalf("CreateCheckin: %v", err)
		}
		dup := &store.Checkin{
			ID:          uuid.New().String(),
			EventID:     "event-1",
			AttendeeID:  "user-1",
			CheckinTime: time.Now().Unix(),
		}
		if err := s.CreateCheckin(ctx, dup); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("duplicate check-in: expected ErrAlreadyExists, got %v", err)
		}

		// Walk-ins never deduplicate.
		for i := 0; i < 2; i++ {
			walkin := &store.Checkin{
				ID:          uuid.New().String(),
				EventID:     "event-1",
				IsWalkIn:    true,
				GuestName:   "Guest",
				CheckinTime: time.Now().Unix(),
			}
			if err := s.CreateCheckin(ctx, walkin); err != nil {
				t.Fatalf("walk-in %d: %v", i, err)
			}
		}

		checkins, err := s.ListCheckinsByEvent(ctx, "event-1")
		if err != nil {
			t.Fatalf("ListCheckinsByEvent: %v", err)
		}
		if len(checkins) != 3 {
			t.Errorf("expected 3 check-ins, got %d", len(checkins))
		}
	})
}

func TestMemoryDriver(t *testing.T) {
	runDriverTests(t, "memory", &store.DriverConfig{Driver: "memory"})
}

func TestSQLiteDriver(t *testing.T) {
	runDriverTests(t, "sqlite", &store.DriverConfig{
		Driver:        "sqlite",
		DataDir:       t.TempDir(),
		BusyTimeoutMS: 5000,
	})
}

func TestDerivedStatus(t *testing.T) {
	tests := []struct {
		name      string
		confirmed bool
		cancelled bool
		want      string
	}{
		{"invited", false, false, store.RsvpInvited},
		{"accepted", true, false, store.RsvpAccepted},
		{"cancelled never accepted", false, true, store.RsvpCancelled},
		{"cancelled after accept", true, true, store.RsvpCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &store.Rsvp{Confirmed: tt.confirmed, Cancelled: tt.cancelled}
			if got := r.DerivedStatus(); got != tt.want {
				t.Errorf("DerivedStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnknownDriver(t *testing.T) {
	_, err := store.New(&store.DriverConfig{Driver: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
