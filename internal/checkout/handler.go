package checkout

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"courtside/internal/api"
	"courtside/internal/auth"
	"courtside/internal/booking"
	"courtside/internal/logger"
	"courtside/internal/membership"
)

type CheckoutBookingRequest struct {
	BookingID int    `json:"booking_id" binding:"required"`
	CardToken string `json:"card_token" binding:"required"`
}

type CheckoutMembershipRequest struct {
	PlanID    int    `json:"plan_id" binding:"required"`
	CardToken string `json:"card_token" binding:"required"`
}

type Handler struct {
	service  Service
	sessions *SessionStore
}

func NewHandler(service Service, sessions *SessionStore) *Handler {
	return &Handler{service: service, sessions: sessions}
}

// CheckoutBooking godoc
// @Summary      Pay for a booking hold
// @Description  Recomputes the authoritative total, applies any membership discount and charges the card once.
// @Tags         checkout
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CheckoutBookingRequest  true  "Booking and card token"
// @Success      200      {object}  Result
// @Failure      402      {object}  Result
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Failure      502      {object}  gin.H
// @Router       /checkout [post]
func (h *Handler) CheckoutBooking(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}
	customerEmail, _ := auth.GetEmail(c)

	var req CheckoutBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if resp := api.BindingErrors(err); resp != nil {
			c.JSON(http.StatusBadRequest, resp)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.service.CheckoutBooking(c.Request.Context(), customerID, customerEmail, req.BookingID, req.CardToken)
	if err != nil {
		h.writeCheckoutError(c, err)
		return
	}

	if result.PaymentStatus == StatusFailed {
		c.JSON(http.StatusPaymentRequired, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckoutMembership godoc
// @Summary      Buy a membership plan
// @Tags         checkout
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CheckoutMembershipRequest  true  "Plan and card token"
// @Success      200      {object}  Result
// @Failure      402      {object}  Result
// @Failure      404      {object}  gin.H
// @Router       /checkout/membership [post]
func (h *Handler) CheckoutMembership(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}
	customerEmail, _ := auth.GetEmail(c)

	var req CheckoutMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if resp := api.BindingErrors(err); resp != nil {
			c.JSON(http.StatusBadRequest, resp)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.service.CheckoutMembership(c.Request.Context(), customerID, customerEmail, req.PlanID, req.CardToken)
	if err != nil {
		h.writeCheckoutError(c, err)
		return
	}

	if result.PaymentStatus == StatusFailed {
		c.JSON(http.StatusPaymentRequired, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reconcile godoc
// @Summary      Reconcile a pending payment
// @Description  Polls the provider for the final state of a 3-D Secure attempt. Returns 202 while still processing.
// @Tags         checkout
// @Security     BearerAuth
// @Produce      json
// @Param        attemptID  path      string  true  "Payment attempt ID"
// @Success      200        {object}  ReconcileResult
// @Success      202        {object}  ReconcileResult
// @Failure      404        {object}  gin.H
// @Router       /payments/{attemptID}/reconcile [post]
func (h *Handler) Reconcile(c *gin.Context) {
	attemptID := c.Param("attemptID")
	if attemptID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attempt ID"})
		return
	}

	result, err := h.service.Reconcile(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, ErrNoPendingPayment) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no payment information found"})
			return
		}
		logger.Error("reconcile failed", "attempt_id", attemptID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile payment"})
		return
	}

	if result.Status == ReconcileProcessing {
		c.JSON(http.StatusAccepted, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPaymentSession godoc
// @Summary      Get or create a payment session
// @Description  Returns the customer's live tokenization session, creating one if needed.
// @Tags         checkout
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  PaymentSession
// @Router       /checkout/session [get]
func (h *Handler) GetPaymentSession(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	sess, err := h.sessions.EnsureSession(c.Request.Context(), customerID)
	if err != nil {
		logger.Error("failed to ensure payment session", "customer_id", customerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment session"})
		return
	}

	c.JSON(http.StatusOK, sess)
}

func (h *Handler) writeCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, membership.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrBookingNotHold), errors.Is(err, ErrHoldExpired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrGatewayUnavailable):
		// Not auto-retried: the customer decides whether to submit again.
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider is unavailable, please try again"})
	default:
		logger.Error("checkout failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
	}
}
