package slot

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetSlotsByIDs(ctx context.Context, ids []int) ([]Slot, error)
	GetSlotsByBooking(ctx context.Context, bookingID int) ([]Slot, error)
	ListAvailable(ctx context.Context, resourceType ResourceType, resourceID int, from, to time.Time) ([]Slot, error)

	// ReserveSlotsTx atomically marks every slot unavailable inside the
	// caller's transaction. If any slot is missing or already taken the whole
	// reservation fails and nothing is changed.
	ReserveSlotsTx(ctx context.Context, tx *sqlx.Tx, bookingID int, ids []int) error

	// Release is idempotent: slots that are already available are skipped
	// without error and not counted.
	ReleaseSlots(ctx context.Context, ids []int) (ReleasedSlots, error)
	ReleaseSlotsTx(ctx context.Context, tx *sqlx.Tx, ids []int) (ReleasedSlots, error)

	GetInventoryItem(ctx context.Context, id int) (*InventoryItem, error)
	ReserveInventoryTx(ctx context.Context, tx *sqlx.Tx, itemID, quantity int) error
	RestoreInventoryTx(ctx context.Context, tx *sqlx.Tx, itemID, quantity int) error
}
