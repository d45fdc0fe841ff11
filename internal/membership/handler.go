package membership

import (
	"net/http"

	"courtside/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ListPlans godoc
// @Summary      List membership plans
// @Tags         membership
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Plan
// @Failure      500  {object}  gin.H
// @Router       /membership/plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.repo.ListPlans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch plans"})
		return
	}

	if plans == nil {
		plans = []Plan{}
	}

	c.JSON(http.StatusOK, plans)
}

// GetBalance godoc
// @Summary      Get membership balance
// @Description  Returns the caller's active membership balance, or an empty balance when none exists.
// @Tags         membership
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Balance
// @Failure      500  {object}  gin.H
// @Router       /membership/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	balance, err := h.repo.GetActiveBalance(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balance"})
		return
	}

	if balance == nil {
		c.JSON(http.StatusOK, gin.H{"has_membership": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"has_membership": true, "balance": balance})
}

// PreviewDiscount godoc
// @Summary      Preview membership discount
// @Description  Computes the session discount for the given items. Preview only; checkout recomputes the authoritative amount.
// @Tags         membership
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      object  true  "Booking items"
// @Success      200      {object}  Discount
// @Failure      400      {object}  gin.H
// @Router       /membership/discount-preview [post]
func (h *Handler) PreviewDiscount(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	var req struct {
		Items []BookingItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	balance, err := h.repo.GetActiveBalance(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balance"})
		return
	}

	c.JSON(http.StatusOK, ComputeDiscount(req.Items, balance))
}
