package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type expirer interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper periodically returns the capacity of expired holds to the pool.
type Sweeper struct {
	ledger   expirer
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(l expirer, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{ledger: l, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) int {
	released, err := s.ledger.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("sweep expired holds", zap.Int("released", released), zap.Error(err))
	}
	if released > 0 {
		s.logger.Info("expired holds released", zap.Int("released", released))
	}
	return released
}
