package core

// scheduler.go runs background maintenance for the service.
//
// Idle datasets are evicted on a fixed interval so abandoned uploads do not
// pin memory until the next upload happens to trigger eviction. The
// scheduler is long-running and stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultEvictionInterval is used when StartEvictionScheduler is given a
// non-positive interval.
const DefaultEvictionInterval = time.Minute

// StartEvictionScheduler evicts expired datasets every interval until ctx is
// cancelled. It blocks, so callers run it in its own goroutine.
func (s *Service) StartEvictionScheduler(ctx context.Context, interval time.Duration) {
	if s.cfg.DatasetTTL <= 0 {
		slog.Info("eviction scheduler disabled", "reason", "no dataset ttl")
		return
	}
	if interval <= 0 {
		interval = DefaultEvictionInterval
	}
	slog.Info("eviction scheduler started",
		"interval", interval.String(),
		"dataset_ttl", s.cfg.DatasetTTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("eviction scheduler stopped")
			return
		case <-ticker.C:
			s.runEvictionJob()
		}
	}
}

// runEvictionJob performs one eviction cycle.
func (s *Service) runEvictionJob() {
	start := time.Now()
	evicted := s.EvictExpired()
	if evicted == 0 {
		slog.Debug("eviction job found nothing to evict")
		return
	}
	slog.Info("evicted idle datasets",
		"datasets_evicted", evicted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
