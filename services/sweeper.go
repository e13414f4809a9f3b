package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically forces overdue pending pickups to expired so the
// deadline guarantee holds even when nobody is reading. Read-time expiry in
// the service covers the window between ticks.
type Sweeper struct {
	service  *PickupService
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a Sweeper over the lifecycle engine.
func NewSweeper(service *PickupService, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the sweep loop until ctx is cancelled. One sweep runs
// immediately on start.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))

		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("expiry sweeper stopping")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// SweepOnce runs a single sweep pass and returns the number of records
// transitioned. Sweeps are idempotent: a record expires at most once.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	return s.service.ExpireOverdue(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) {
	count, err := s.service.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		s.logger.Info("expiry sweep completed", zap.Int("expired", count))
	}
}
