package booking

import (
	"time"

	"courtside/internal/slot"
)

type Status string

const (
	// StatusHold is the initial state: slots are reserved while payment is
	// attempted, until hold_expires_at.
	StatusHold      Status = "hold"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Booking struct {
	ID            int        `db:"id" json:"id"`
	CustomerID    int        `db:"customer_id" json:"customer_id"`
	Status        Status     `db:"status" json:"status"`
	TotalPrice    int64      `db:"total_price" json:"total_price"`
	HoldExpiresAt *time.Time `db:"hold_expires_at" json:"hold_expires_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

type Detail struct {
	ID           int               `db:"id" json:"id"`
	BookingID    int               `db:"booking_id" json:"booking_id"`
	SlotID       int               `db:"slot_id" json:"slot_id"`
	ResourceType slot.ResourceType `db:"resource_type" json:"resource_type"`
	StartTime    time.Time         `db:"start_time" json:"start_time"`
	Price        int64             `db:"price" json:"price"`
}

type InventoryLine struct {
	ID          int   `db:"id" json:"id"`
	BookingID   int   `db:"booking_id" json:"booking_id"`
	InventoryID int   `db:"inventory_id" json:"inventory_id"`
	Quantity    int   `db:"quantity" json:"quantity"`
	UnitPrice   int64 `db:"unit_price" json:"unit_price"`
}

type BookingWithLines struct {
	Booking
	Details     []Detail        `json:"details"`
	Inventories []InventoryLine `json:"inventories"`
}

type InventoryRequest struct {
	InventoryID int `json:"inventory_id" binding:"required"`
	Quantity    int `json:"quantity" binding:"required,min=1"`
}

type CreateBookingRequest struct {
	SlotIDs     []int              `json:"slot_ids" binding:"required,min=1"`
	Inventories []InventoryRequest `json:"inventories"`
}

type RefundInfo struct {
	RefundPending bool   `json:"refund_pending"`
	Amount        int64  `json:"amount"`
	Message       string `json:"message"`
}

type CancelResult struct {
	ReleasedSlots       slot.ReleasedSlots `json:"released_slots"`
	RestoredInventories int                `json:"restored_inventories"`
	Refund              *RefundInfo        `json:"refund,omitempty"`
}
