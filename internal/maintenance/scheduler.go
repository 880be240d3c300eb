// Package maintenance runs recurring background jobs: reaping dead
// event sessions and checking store health.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/trellislearn/trellis-server/internal/events"
	"github.com/trellislearn/trellis-server/internal/store"
)

const jobTimeout = 30 * time.Second

// Scheduler manages the recurring maintenance jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	repo      store.Repository
	hub       *events.Hub
	interval  time.Duration
}

// New creates a scheduler running each job at the given interval.
func New(repo store.Repository, hub *events.Hub, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		repo:      repo,
		hub:       hub,
		interval:  interval,
	}
}

// Start schedules the jobs and begins running them asynchronously.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.reapEventSessions); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(s.interval).Do(s.checkStoreHealth); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// reapEventSessions pings every event connection and drops the dead ones.
func (s *Scheduler) reapEventSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if reaped := s.hub.PingAll(ctx); reaped > 0 {
		slog.Info("Reaped dead event sessions", "count", reaped, "active", s.hub.SessionCount())
	}
}

// checkStoreHealth logs loudly when the database becomes unreachable so
// the condition is visible before requests start failing.
func (s *Scheduler) checkStoreHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		slog.Error("Store health check failed", "error", err)
	}
}
