// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gatherhub/gatherhub-go/internal/events"
	"github.com/gatherhub/gatherhub-go/internal/store"
	"github.com/gatherhub/gatherhub-go/internal/store/memory"
)

var base = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newService(s store.EventStore, now time.Time) *events.Service {
	return events.New(s, func() time.Time { return now }, nil)
}

func validParams(start time.Time) events.CreateParams {
	return events.CreateParams{
		Title:         "Launch Party",
		Description:   "Quarterly launch",
		StartDateTime: start,
		RsvpDeadline:  start.Add(-time.Hour),
		MaxAttendees:  25,
		Location:      "Main Hall",
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := newService(s, base)

	event, err := svc.Create(ctx, "host-1", validParams(base.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if event.Status != store.EventScheduled {
		t.Errorf("status = %q, want scheduled", event.Status)
	}
	if event.CheckInEnabled {
		t.Error("check-in should stay closed for a future-day event")
	}
	if event.ID == "" {
		t.Error("expected generated id")
	}
}

func TestCreateSameDayOpensCheckIn(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := newService(s, base)

	event, err := svc.Create(ctx, "host-1", validParams(base.Add(4*time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !event.CheckInEnabled {
		t.Error("event starting on the current UTC day should pre-open check-in")
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.New(), base)

	tests := []struct {
		name   string
		mutate func(*events.CreateParams)
	}{
		{"empty title", func(p *events.CreateParams) { p.Title = "" }},
		{"zero capacity", func(p *events.CreateParams) { p.MaxAttendees = 0 }},
		{"missing start", func(p *events.CreateParams) { p.StartDateTime = time.Time{} }},
		{"deadline after start", func(p *events.CreateParams) { p.RsvpDeadline = p.StartDateTime.Add(time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams(base.Add(72 * time.Hour))
			tt.mutate(&p)
			if _, err := svc.Create(ctx, "host-1", p); !errors.Is(err, events.ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestUpdateOwnership(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := newService(s, base)

	event, err := svc.Create(ctx, "host-1", validParams(base.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	title := "Renamed"
	if _, err := svc.Update(ctx, event.ID, "host-2", events.UpdateParams{Title: &title}); !errors.Is(err, events.ErrNotHost) {
		t.Errorf("expected ErrNotHost, got %v", err)
	}

	updated, err := svc.Update(ctx, event.ID, "host-1", events.UpdateParams{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", updated.Title)
	}
}

func TestCloseEvent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := newService(s, base)

	event, err := svc.Create(ctx, "host-1", validParams(base.Add(2*time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	closed, err := svc.CloseEvent(ctx, event.ID, "host-1")
	if err != nil {
		t.Fatalf("CloseEvent: %v", err)
	}
	if closed.Status != store.EventClosed || closed.CheckInEnabled {
		t.Errorf("close: status=%q checkIn=%v, want closed/false", closed.Status, closed.CheckInEnabled)
	}

	// Closing twice is harmless.
	if _, err := svc.CloseEvent(ctx, event.ID, "host-1"); err != nil {
		t.Errorf("second close: %v", err)
	}

	if _, err := svc.CloseEvent(ctx, event.ID, "host-2"); !errors.Is(err, events.ErrNotHost) {
		t.Errorf("expected ErrNotHost, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := newService(s, base)

	event, err := svc.Create(ctx, "host-1", validParams(base.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(ctx, event.ID, "host-2"); !errors.Is(err, events.ErrNotHost) {
		t.Errorf("expected ErrNotHost, got %v", err)
	}
	if err := svc.Delete(ctx, event.ID, "host-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, event.ID); !errors.Is(err, events.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
