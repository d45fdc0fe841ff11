package checkout

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"courtside/internal/logger"
	"courtside/internal/metrics"
)

// HandleWebhook settles a charge from a provider event. The posted payload
// is only trusted for its event id; the event body is re-fetched from the
// provider before anything changes state.
func (s *service) HandleWebhook(ctx context.Context, eventID string) error {
	key, ch, err := s.gateway.RetrieveEvent(ctx, eventID)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("verify_failed").Inc()
		return err
	}

	if key != "charge.complete" || ch == nil {
		metrics.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		return nil
	}

	p, err := s.pending.FindByCharge(ctx, ch.ID)
	if err != nil {
		if errors.Is(err, ErrNoPendingPayment) {
			// Already settled synchronously or by the reconciler.
			metrics.WebhookEventsTotal.WithLabelValues("already_settled").Inc()
			return nil
		}
		return err
	}

	switch ch.Status {
	case ChargeSucceeded:
		if err := s.settle(ctx, p); err != nil {
			if errors.Is(err, ErrAttemptSuperseded) {
				if delErr := s.pending.Delete(ctx, p.AttemptID); delErr != nil {
					logger.Warn("failed to delete superseded pending payment", "attempt_id", p.AttemptID, "error", delErr)
				}
				metrics.WebhookEventsTotal.WithLabelValues("superseded").Inc()
				return nil
			}
			return err
		}
	case ChargeFailed:
		if err := s.settleFailure(ctx, p); err != nil {
			return err
		}
	default:
		metrics.WebhookEventsTotal.WithLabelValues("still_pending").Inc()
		return nil
	}

	if err := s.pending.Delete(ctx, p.AttemptID); err != nil {
		logger.Warn("failed to delete pending payment", "attempt_id", p.AttemptID, "error", err)
	}
	metrics.WebhookEventsTotal.WithLabelValues("settled").Inc()
	return nil
}

type webhookEvent struct {
	ID string `json:"id" binding:"required"`
}

type WebhookHandler struct {
	service Service
}

func NewWebhookHandler(service Service) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// HandlePaymentEvent godoc
// @Summary      Payment provider webhook
// @Description  Settles a payment attempt from a provider event after re-verifying it.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  gin.H
// @Failure      401  {object}  gin.H
// @Router       /webhooks/payment [post]
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	var ev webhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), ev.ID); err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Event verification failed"})
			return
		}
		logger.Error("webhook settlement failed", "event_id", ev.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
