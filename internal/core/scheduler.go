package core

// scheduler.go provides background maintenance for the report store.
//
// Expired analyses are already hidden from Get and List; the sweep frees the
// memory they hold. The janitor runs until its context is cancelled and never
// fails the server once started.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule is used by callers that have no configured schedule.
const DefaultSweepSchedule = "@every 5m"

// StartStoreJanitor schedules store sweeps on a cron schedule (standard
// five-field spec or a descriptor such as "@every 5m") and blocks until ctx
// is cancelled. An empty schedule returns immediately; an invalid one is an
// error.
func (s *Service) StartStoreJanitor(ctx context.Context, schedule string) error {
	if schedule == "" {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, func() { s.sweepStore() }); err != nil {
		return fmt.Errorf("unable to schedule store janitor: %w", err)
	}

	c.Start()
	slog.Info("store janitor started", "schedule", schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("store janitor stopped")
	return nil
}

// sweepStore performs one sweep.
func (s *Service) sweepStore() int {
	start := time.Now()
	dropped := s.store.Sweep()
	if dropped > 0 {
		slog.Info("dropped expired analyses",
			"dropped", dropped,
			"remaining", s.store.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return dropped
}
