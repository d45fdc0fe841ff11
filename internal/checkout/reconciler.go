package checkout

import (
	"context"
	"errors"
	"time"

	"courtside/internal/logger"
	"courtside/internal/metrics"
)

// Reconcile is called when the customer lands back from the 3-D Secure
// redirect. The provider may not have finalized the charge yet, so it polls
// a bounded number of times and then hands the wait back to the caller with
// a processing verdict; the webhook will finish stragglers.
func (s *service) Reconcile(ctx context.Context, attemptID string) (*ReconcileResult, error) {
	p, err := s.pending.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(s.opts.ReconcileInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.opts.ReconcileMaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}
		}

		metrics.ReconcilePollsTotal.Inc()
		ch, err := s.gateway.GetCharge(ctx, p.ChargeID)
		if err != nil {
			// Transient lookups burn an attempt. The budget bounds how
			// long a customer waits on this request, not the gateway.
			logger.Warn("reconcile poll failed", "attempt_id", attemptID, "attempt", attempt, "error", err)
			continue
		}

		switch ch.Status {
		case ChargeSucceeded:
			if err := s.settle(ctx, p); err != nil {
				if errors.Is(err, ErrAttemptSuperseded) {
					if delErr := s.pending.Delete(ctx, attemptID); delErr != nil {
						logger.Warn("failed to delete superseded pending payment", "attempt_id", attemptID, "error", delErr)
					}
					metrics.ReconcileOutcomesTotal.WithLabelValues(ReconcileFailed).Inc()
					return &ReconcileResult{
						Status:        ReconcileFailed,
						InvoiceID:     p.InvoiceID,
						FailureReason: "a newer payment attempt has replaced this one",
					}, nil
				}
				return nil, err
			}
			if err := s.pending.Delete(ctx, attemptID); err != nil {
				logger.Warn("failed to delete pending payment", "attempt_id", attemptID, "error", err)
			}
			metrics.ReconcileOutcomesTotal.WithLabelValues(ReconcileSuccess).Inc()
			return &ReconcileResult{Status: ReconcileSuccess, InvoiceID: p.InvoiceID}, nil

		case ChargeFailed:
			if err := s.settleFailure(ctx, p); err != nil {
				return nil, err
			}
			if err := s.pending.Delete(ctx, attemptID); err != nil {
				logger.Warn("failed to delete pending payment", "attempt_id", attemptID, "error", err)
			}
			metrics.ReconcileOutcomesTotal.WithLabelValues(ReconcileFailed).Inc()
			return &ReconcileResult{
				Status:        ReconcileFailed,
				InvoiceID:     p.InvoiceID,
				FailureReason: failureReason(ch),
			}, nil
		}
	}

	// Still pending after the full budget. The record stays so a later
	// reconcile call or the webhook can settle it; nothing is cancelled.
	metrics.ReconcileOutcomesTotal.WithLabelValues(ReconcileProcessing).Inc()
	return &ReconcileResult{Status: ReconcileProcessing, InvoiceID: p.InvoiceID}, nil
}
