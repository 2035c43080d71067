package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically cancels expired unpaid orders. It holds no state of
// its own; SweepExpired stays directly testable without the ticker.
type Sweeper struct {
	log      *slog.Logger
	orders   *OrderService
	interval time.Duration
	maxAge   time.Duration
}

func NewSweeper(log *slog.Logger, orders *OrderService, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		log:      log,
		orders:   orders,
		interval: interval,
		maxAge:   maxAge,
	}
}

// Run blocks, sweeping every interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopping")
			return
		case <-t.C:
			swept, err := s.orders.SweepExpired(ctx, s.maxAge)
			if err != nil {
				s.log.Error("expiry sweep failed", "err", err)
				continue
			}
			if swept > 0 {
				s.log.Info("expiry sweep finished", "swept", swept)
			}
		}
	}
}
