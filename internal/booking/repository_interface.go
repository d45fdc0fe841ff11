package booking

import (
	"context"
	"time"

	"courtside/internal/slot"
)

type HoldLine struct {
	SlotID       int
	ResourceType slot.ResourceType
	StartTime    time.Time
	Price        int64
}

type HoldInventory struct {
	InventoryID int
	Quantity    int
	UnitPrice   int64
}

type Repository interface {
	// CreateHold inserts the booking and reserves every slot and inventory
	// quantity in one transaction. Any conflict rolls the whole creation
	// back; no partial reservation survives.
	CreateHold(ctx context.Context, customerID int, expiresAt time.Time, lines []HoldLine, inventories []HoldInventory) (*Booking, error)

	GetByID(ctx context.Context, id int) (*Booking, error)
	GetWithLines(ctx context.Context, id int) (*BookingWithLines, error)
	ListForCustomer(ctx context.Context, customerID int) ([]Booking, error)

	// Confirm transitions hold to confirmed and freezes the final total.
	// Confirming an already-confirmed booking is a no-op; a cancelled
	// booking cannot be confirmed.
	Confirm(ctx context.Context, id int, finalTotal int64) error

	// Cancel releases every reserved slot and restores inventory in one
	// transaction. A second cancel reports ErrAlreadyCancelled.
	Cancel(ctx context.Context, id int) (slot.ReleasedSlots, int, error)

	// CancelExpiredHold cancels only when the booking is still a hold whose
	// expiry has passed; the sweeper uses it to avoid racing a confirm.
	CancelExpiredHold(ctx context.Context, id int) (slot.ReleasedSlots, int, error)

	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]Booking, error)
}
