package slot

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ListAvailableSlots godoc
// @Summary      List available slots
// @Description  Returns available slots for a resource within a date window. Availability is read fresh on every call.
// @Tags         slots
// @Security     BearerAuth
// @Produce      json
// @Param        resourceID  path      int     true   "Resource ID"
// @Param        type        query     string  true   "Resource type (court, coach, ballboy)"
// @Param        from        query     string  true   "Window start (RFC3339)"
// @Param        to          query     string  true   "Window end (RFC3339)"
// @Success      200         {array}   Slot
// @Failure      400         {object}  gin.H
// @Failure      500         {object}  gin.H
// @Router       /resources/{resourceID}/slots [get]
func (h *Handler) ListAvailableSlots(c *gin.Context) {
	resourceID, err := strconv.Atoi(c.Param("resourceID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resource ID"})
		return
	}

	resourceType := ResourceType(c.Query("type"))
	if !resourceType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be court, coach or ballboy"})
		return
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to query params are required"})
		return
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from format, use RFC3339"})
		return
	}

	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to format, use RFC3339"})
		return
	}

	slots, err := h.repo.ListAvailable(c.Request.Context(), resourceType, resourceID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch slots"})
		return
	}

	if slots == nil {
		slots = []Slot{}
	}

	c.JSON(http.StatusOK, slots)
}
