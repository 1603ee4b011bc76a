// Package scheduler provides the auto-refresh loop: a single cancellable
// periodic task handle that exposes the remaining time to the next run.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPeriod is the refresh period used when none is configured.
const DefaultPeriod = 300 * time.Second

// Scheduler runs one task on a fixed period. One handle replaces the
// countdown/backstop timer pair: the remaining time is derived from the
// next deadline instead of a second independently drifting timer.
type Scheduler struct {
	period time.Duration
	task   func(context.Context)
	logger *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	deadline time.Time
	active   bool
}

// New creates a stopped scheduler. A period of 0 selects DefaultPeriod.
func New(period time.Duration, task func(context.Context), logger *slog.Logger) *Scheduler {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Scheduler{
		period: period,
		task:   task,
		logger: logger,
	}
}

// Start begins the periodic loop. Starting an active scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.active = true
	s.deadline = time.Now().Add(s.period)

	go s.loop(ctx)
	s.logger.Info("auto refresh enabled", "period", s.period)
}

// Stop cancels the loop. No task run fires after Stop returns; a run
// already in flight completes and its result is applied.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.cancel()
	s.active = false
	s.logger.Info("auto refresh disabled")
}

// Active reports whether the loop is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Remaining returns the time until the next scheduled run, or 0 when the
// scheduler is stopped.
func (s *Scheduler) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return 0
	}
	d := time.Until(s.deadline)
	if d < 0 {
		return 0
	}
	return d
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A tick racing a Stop must not fire.
			if ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			s.deadline = time.Now().Add(s.period)
			s.mu.Unlock()
			s.task(ctx)
		}
	}
}
