// Package scheduler runs a task once at startup and then on a fixed
// interval. The clock is injected so tests drive ticks with a fake clock
// instead of wall-time sleeps.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler invokes a task periodically until its context is cancelled.
type Scheduler struct {
	name     string
	interval time.Duration
	clock    clockwork.Clock
	task     func(ctx context.Context)
	logger   *slog.Logger
}

// New creates a Scheduler. A nil clock uses wall time.
func New(name string, interval time.Duration, clock clockwork.Clock, task func(ctx context.Context), logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		clock:    clock,
		task:     task,
		logger:   logger,
	}
}

// Run executes the task once immediately, then once per interval tick, until
// ctx is cancelled. Cancellation stops further ticks; an in-flight task run
// completes.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "task", s.name, "interval", s.interval)

	s.task(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "task", s.name, "reason", ctx.Err())
			return
		case <-ticker.Chan():
			s.task(ctx)
		}
	}
}
