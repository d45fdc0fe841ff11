package invoice

import (
	"errors"
	"net/http"
	"strconv"

	"courtside/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GetInvoice godoc
// @Summary      Get invoice
// @Description  Returns the current invoice status. Polled by clients waiting for an asynchronous payment result.
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        invoiceID  path      int  true  "Invoice ID"
// @Success      200        {object}  Invoice
// @Failure      404        {object}  gin.H
// @Router       /invoices/{invoiceID} [get]
func (h *Handler) GetInvoice(c *gin.Context) {
	customerID, exists := auth.GetCustomerID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("invoiceID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID"})
		return
	}

	inv, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoice"})
		return
	}

	if inv.CustomerID != customerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only view your own invoices"})
		return
	}

	c.JSON(http.StatusOK, inv)
}
