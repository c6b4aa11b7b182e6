// Package scheduler drives the periodic refresh cycle. Cycles run
// synchronously on a single timer, so a cycle that outlasts the interval
// delays the next tick instead of overlapping it, so concurrent subprocess
// invocations stay bounded no matter how slow sampling gets.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/javamon/jvm-exporter/internal/config"
)

// Refresher runs one complete collection cycle.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Scheduler runs the refresh loop.
type Scheduler struct {
	refresher Refresher
	provider  *config.Provider
	logger    *zap.Logger
}

// New creates a Scheduler for the given refresher.
func New(refresher Refresher, provider *config.Provider, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		provider:  provider,
		logger:    logger,
	}
}

// Start begins the refresh loop. It blocks until the context is cancelled.
// The first cycle runs immediately so the scrape endpoint has data as soon
// as possible after startup.
func (s *Scheduler) Start(ctx context.Context) {
	s.refresher.Refresh(ctx)

	interval := s.provider.Current().Collection.Interval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresher.Refresh(ctx)
			// Pick up interval changes posted to the config endpoint.
			if cur := s.provider.Current().Collection.Interval.Duration; cur != interval {
				s.logger.Info("Refresh interval changed",
					zap.Duration("from", interval),
					zap.Duration("to", cur))
				interval = cur
				ticker.Reset(interval)
			}
		}
	}
}
