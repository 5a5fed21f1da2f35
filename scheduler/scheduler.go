// Package scheduler implements a standalone periodic promoter: claim_next
// already folds schedule promotion into its own transaction, so this
// promoter only matters while no worker is actively claiming (e.g. all
// workers stopped, or idle-sleeping past a due job) and the dashboard
// still needs scheduled → pending to be visible promptly.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/queuectl/queuectl/internal"
	"github.com/queuectl/queuectl/queue"
)

// DefaultInterval is how often the promoter sweeps when the caller
// doesn't specify one.
const DefaultInterval = time.Second

// Scheduler periodically promotes due scheduled jobs via
// Queue.PromoteScheduled, the same statement claim_next runs inline.
type Scheduler struct {
	queue    *queue.Queue
	interval time.Duration
	log      *slog.Logger
	task     internal.TimerTask
}

// New builds a Scheduler that sweeps q every interval. A non-positive
// interval falls back to DefaultInterval.
func New(q *queue.Queue, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{queue: q, interval: interval, log: log}
}

func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.queue.PromoteScheduled(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("scheduler promotion failed", "err", err)
		return
	}
	if n > 0 {
		s.log.Info("promoted scheduled jobs", "count", n)
	}
}

// Start begins the periodic sweep. It returns immediately; the sweep
// runs until ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.task.Start(ctx, s.tick, s.interval)
}

// Stop cancels the periodic sweep and returns a channel closed once it
// has fully exited.
func (s *Scheduler) Stop() internal.DoneChan {
	return s.task.Stop()
}
