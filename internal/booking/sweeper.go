package booking

import (
	"context"
	"time"

	"courtside/internal/logger"
)

const sweepBatchSize = 100

// Sweeper releases expired holds on a fixed interval. It is the safety valve
// against inventory starvation from abandoned checkouts and runs regardless
// of any client activity.
type Sweeper struct {
	repo     Repository
	service  Service
	interval time.Duration
}

func NewSweeper(repo Repository, service Service, interval time.Duration) *Sweeper {
	return &Sweeper{repo: repo, service: service, interval: interval}
}

func (s *Sweeper) Start(ctx context.Context) {
	logger.Info("hold expiry sweeper started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("hold expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.repo.ListExpiredHolds(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		logger.Error("sweeper failed to list expired holds", "error", err)
		return
	}

	for _, b := range expired {
		if err := s.service.ExpireHold(ctx, b.ID); err != nil {
			// The hold may have been confirmed or cancelled between the scan
			// and this call; skip and move on.
			logger.Warn("sweeper could not expire hold", "booking_id", b.ID, "error", err)
			continue
		}
		logger.Info("expired hold released", "booking_id", b.ID, "customer_id", b.CustomerID)
	}
}
