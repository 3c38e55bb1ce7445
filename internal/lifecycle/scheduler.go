// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gatherhub/gatherhub-go/internal/logutil"
)

// Sweep is a named periodic job. Run must be idempotent; the scheduler
// never runs the same sweep concurrently with itself.
type Sweep struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler drives registered sweeps on fixed intervals or daily at UTC
// midnight. Stop blocks until all sweep goroutines have exited.
type Scheduler struct {
	log  *slog.Logger
	stop chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	started bool
	every   []intervalSweep
	daily   []Sweep
}

type intervalSweep struct {
	sweep    Sweep
	interval time.Duration
}

// NewScheduler creates an empty scheduler.
func NewScheduler(log *slog.Logger) *Scheduler {
	return &Scheduler{
		log:  logutil.NoopIfNil(log),
		stop: make(chan struct{}),
	}
}

// Every registers a sweep to run on a fixed interval.
func (s *Scheduler) Every(interval time.Duration, sweep Sweep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.every = append(s.every, intervalSweep{sweep: sweep, interval: interval})
}

// DailyAtMidnightUTC registers a sweep to run once per UTC calendar day.
func (s *Scheduler) DailyAtMidnightUTC(sweep Sweep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily = append(s.daily, sweep)
}

// Start launches one goroutine per registered sweep.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	for _, is := range s.every {
		s.wg.Add(1)
		go s.runEvery(ctx, is.sweep, is.interval)
	}
	for _, sweep := range s.daily {
		s.wg.Add(1)
		go s.runDaily(ctx, sweep)
	}
}

// Stop signals all sweep goroutines and waits for them to exit.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) runEvery(ctx context.Context, sweep Sweep, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, sweep)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context, sweep Sweep) {
	defer s.wg.Done()

	for {
		timer := time.NewTimer(untilNextMidnightUTC(time.Now()))
		select {
		case <-timer.C:
			s.runOnce(ctx, sweep)
		case <-s.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, sweep Sweep) {
	if err := sweep.Run(ctx); err != nil {
		s.log.Error("sweep failed", "sweep", sweep.Name, "error", err)
	}
}

func untilNextMidnightUTC(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}
