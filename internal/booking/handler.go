package booking

import (
	"errors"
	"net/http"
	"strconv"

	"courtside/internal/api"
	"courtside/internal/auth"
	"courtside/internal/invoice"
	"courtside/internal/slot"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateBooking godoc
// @Summary      Create booking hold
// @Description  Reserves the requested slots as one atomic group and returns a hold that expires unless paid.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateBookingRequest  true  "Slots and add-ons"
// @Success      201      {object}  BookingWithLines
// @Failure      400      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if resp := api.BindingErrors(err); resp != nil {
			c.JSON(http.StatusBadRequest, resp)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	b, err := h.service.CreateHold(c.Request.Context(), customerID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotConflict), errors.Is(err, ErrInventoryConflict):
			// A lost race is a normal, retryable outcome: the client should
			// re-fetch availability and let the customer reselect.
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, ErrSlotInPast), errors.Is(err, ErrDuplicateSlots):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, slot.ErrSlotNotFound), errors.Is(err, slot.ErrInventoryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		}
		return
	}

	c.JSON(http.StatusCreated, b)
}

// GetBooking godoc
// @Summary      Get booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  BookingWithLines
// @Failure      404        {object}  gin.H
// @Router       /bookings/{bookingID} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	b, err := h.service.Get(c.Request.Context(), customerID, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only view your own bookings"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch booking"})
		}
		return
	}

	c.JSON(http.StatusOK, b)
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Booking
// @Failure      500  {object}  gin.H
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	bookings, err := h.service.List(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}

	if bookings == nil {
		bookings = []Booking{}
	}

	c.JSON(http.StatusOK, bookings)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelBooking godoc
// @Summary      Cancel booking
// @Description  Releases the booking's slots and inventory. A paid invoice yields a pending refund, never a synchronous one.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        invoiceID  path      int            true  "Invoice ID"
// @Param        request    body      cancelRequest  true  "Cancellation reason"
// @Success      200        {object}  CancelResult
// @Failure      400        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /invoices/{invoiceID}/cancel-booking [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	invoiceID, err := strconv.Atoi(c.Param("invoiceID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID"})
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), customerID, invoiceID, req.Reason)
	if err != nil {
		h.writeCancelError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExpireInvoice godoc
// @Summary      Expire a held booking
// @Description  System trigger for hold expiry. Admin only.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        invoiceID  path      int  true  "Invoice ID"
// @Success      200        {object}  CancelResult
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /invoices/{invoiceID}/expire [post]
func (h *Handler) ExpireInvoice(c *gin.Context) {
	invoiceID, err := strconv.Atoi(c.Param("invoiceID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID"})
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), 0, invoiceID, "expired")
	if err != nil {
		h.writeCancelError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) writeCancelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, invoice.ErrInvoiceNotFound), errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
	case errors.Is(err, ErrCancelRejected):
		c.JSON(http.StatusConflict, gin.H{"error": "Booking is already cancelled or expired"})
	case errors.Is(err, ErrNoBookingInvoice):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invoice is not linked to a booking"})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only cancel your own bookings"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel booking"})
	}
}
