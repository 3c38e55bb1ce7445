// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package lifecycle advances event status with wall-clock time.
//
// Status moves strictly forward (scheduled -> live -> closed); the sweeps
// only compare instants and never move an event backward. Every sweep is
// idempotent and safe to invoke manually outside any timer.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/gatherhub/gatherhub-go/internal/logutil"
	"github.com/gatherhub/gatherhub-go/internal/store"
)

// CloseAfter is how long past its start an event stays live.
const CloseAfter = time.Hour

// Clock supplies the current time; injected so sweeps are testable
// without a real clock.
type Clock func() time.Time

// Transition computes the next lifecycle state for an event at the given
// instant. It is pure: no I/O, no hidden clock. changed is false when the
// event is already in the state the instant calls for.
func Transition(ev *store.Event, now time.Time) (status string, checkInEnabled bool, changed bool) {
	switch ev.Status {
	case store.EventScheduled:
		if now.Unix() >= ev.StartDateTime {
			return store.EventLive, true, true
		}
	case store.EventLive:
		if now.Unix() >= ev.StartDateTime+int64(CloseAfter.Seconds()) {
			return store.EventClosed, false, true
		}
	}
	return ev.Status, ev.CheckInEnabled, false
}

// Engine runs the periodic sweeps that keep event status consistent
// with wall-clock time.
type Engine struct {
	events store.EventStore
	clock  Clock
	log    *slog.Logger
}

// New creates a lifecycle engine. clock may be nil, defaulting to time.Now.
func New(events store.EventStore, clock Clock, log *slog.Logger) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		events: events,
		clock:  clock,
		log:    logutil.NoopIfNil(log),
	}
}

// Activate marks scheduled events whose start has passed as live and opens
// check-in. A persistence failure on one event logs and moves on.
func (e *Engine) Activate(ctx context.Context) error {
	now := e.clock()

	due, err := e.events.ListScheduledBefore(ctx, now.Unix())
	if err != nil {
		return err
	}

	if len(due) > 0 {
		e.log.Info("activating events", "count", len(due))
	}

	for _, ev := range due {
		status, checkIn, changed := Transition(ev, now)
		if !changed {
			continue
		}
		ev.Status = status
		ev.CheckInEnabled = checkIn
		ev.UpdatedAt = now.Unix()
		if err := e.events.UpdateEvent(ctx, ev); err != nil {
			e.log.Error("failed to activate event", "event_id", ev.ID, "error", err)
			continue
		}
		e.log.Info("event is now live", "event_id", ev.ID)
	}

	return nil
}

// Close marks live events past their close cutoff as closed and disables
// check-in.
func (e *Engine) Close(ctx context.Context) error {
	now := e.clock()

	live, err := e.events.ListEventsByStatus(ctx, store.EventLive)
	if err != nil {
		return err
	}

	for _, ev := range live {
		status, checkIn, changed := Transition(ev, now)
		if !changed {
			continue
		}
		ev.Status = status
		ev.CheckInEnabled = checkIn
		ev.UpdatedAt = now.Unix()
		if err := e.events.UpdateEvent(ctx, ev); err != nil {
			e.log.Error("failed to close event", "event_id", ev.ID, "error", err)
			continue
		}
		e.log.Info("event is now closed", "event_id", ev.ID)
	}

	return nil
}

// EnableCheckInForToday opens check-in for every event whose start falls
// within the current UTC calendar day, regardless of status. It pre-opens
// check-in ahead of the Activate sweep.
func (e *Engine) EnableCheckInForToday(ctx context.Context) error {
	now := e.clock().UTC()

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	today, err := e.events.ListEventsStartingBetween(ctx, dayStart.Unix(), dayEnd.Unix())
	if err != nil {
		return err
	}

	if len(today) == 0 {
		return nil
	}

	e.log.Info("enabling check-in for today's events", "count", len(today))

	for _, ev := range today {
		if ev.CheckInEnabled {
			continue
		}
		ev.CheckInEnabled = true
		ev.UpdatedAt = now.Unix()
		if err := e.events.UpdateEvent(ctx, ev); err != nil {
			e.log.Error("failed to enable check-in", "event_id", ev.ID, "error", err)
			continue
		}
		e.log.Info("check-in enabled", "event_id", ev.ID)
	}

	return nil
}
