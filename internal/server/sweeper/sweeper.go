// Package sweeper removes session rows that can no longer affect
// authentication decisions: expired past the retention window, whatever
// their state.
package sweeper

import (
	"context"
	"time"

	"github.com/forkful/authcore/internal/logging"
	"github.com/forkful/authcore/internal/server/metrics"
	"github.com/forkful/authcore/internal/server/repositories/sessions"
)

// Sweeper periodically purges dead session rows. Failures are logged and
// retried on the next tick; the sweeper never stops the server.
type Sweeper struct {
	repo      sessions.Repository
	logger    logging.Logger
	interval  time.Duration
	retention time.Duration
}

// New constructs a Sweeper with the given cadence and retention window.
func New(repo sessions.Repository, logger logging.Logger, interval, retention time.Duration) *Sweeper {
	return &Sweeper{repo: repo, logger: logger, interval: interval, retention: retention}
}

// Run loops until the context is cancelled. One sweep runs at a time; a slow
// sweep simply delays the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "sweeper started", "interval", s.interval, "retention", s.retention)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep purges rows that expired before now minus the retention window.
// The retention lag keeps recently consumed rows around so reuse detection
// still fires for stragglers.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.repo.PurgeExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error(ctx, "session sweep failed", "error", err)
		return
	}
	if n > 0 {
		metrics.SweptRows.Add(float64(n))
		s.logger.Info(ctx, "purged expired sessions", "rows", n)
	}
}
