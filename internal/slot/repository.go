package slot

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrSlotNotFound          = errors.New("slot not found")
	ErrSlotUnavailable       = errors.New("slot is no longer available")
	ErrInventoryNotFound     = errors.New("inventory item not found")
	ErrInsufficientInventory = errors.New("insufficient inventory quantity")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetSlotsByIDs(ctx context.Context, ids []int) ([]Slot, error) {
	query := `
		SELECT id, resource_type, resource_id, start_time, end_time, price, is_available, booking_id, created_at
		FROM slots
		WHERE id = ANY($1)
		ORDER BY start_time, id
	`

	var slots []Slot
	err := r.db.SelectContext(ctx, &slots, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *repository) GetSlotsByBooking(ctx context.Context, bookingID int) ([]Slot, error) {
	query := `
		SELECT id, resource_type, resource_id, start_time, end_time, price, is_available, booking_id, created_at
		FROM slots
		WHERE booking_id = $1
		ORDER BY start_time, id
	`

	var slots []Slot
	err := r.db.SelectContext(ctx, &slots, query, bookingID)
	if err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *repository) ListAvailable(ctx context.Context, resourceType ResourceType, resourceID int, from, to time.Time) ([]Slot, error) {
	query := `
		SELECT id, resource_type, resource_id, start_time, end_time, price, is_available, booking_id, created_at
		FROM slots
		WHERE resource_type = $1 AND resource_id = $2
		  AND start_time >= $3 AND start_time < $4
		  AND is_available = TRUE
		ORDER BY start_time
	`

	var slots []Slot
	err := r.db.SelectContext(ctx, &slots, query, resourceType, resourceID, from, to)
	if err != nil {
		return nil, err
	}

	return slots, nil
}

// ReserveSlotsTx locks the requested rows, verifies every slot is still
// available, then flips them all in one statement. Any conflict leaves the
// transaction for the caller to roll back untouched.
func (r *repository) ReserveSlotsTx(ctx context.Context, tx *sqlx.Tx, bookingID int, ids []int) error {
	lockQuery := `
		SELECT id, is_available
		FROM slots
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	type slotLock struct {
		ID          int  `db:"id"`
		IsAvailable bool `db:"is_available"`
	}

	var locked []slotLock
	if err := tx.SelectContext(ctx, &locked, lockQuery, pq.Array(ids)); err != nil {
		return err
	}

	if len(locked) != len(ids) {
		return ErrSlotNotFound
	}

	for _, s := range locked {
		if !s.IsAvailable {
			return ErrSlotUnavailable
		}
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE slots SET is_available = FALSE, booking_id = $1 WHERE id = ANY($2)`,
		bookingID, pq.Array(ids),
	)
	return err
}

func (r *repository) ReleaseSlots(ctx context.Context, ids []int) (ReleasedSlots, error) {
	return releaseSlots(ctx, r.db, ids)
}

func (r *repository) ReleaseSlotsTx(ctx context.Context, tx *sqlx.Tx, ids []int) (ReleasedSlots, error) {
	return releaseSlots(ctx, tx, ids)
}

func releaseSlots(ctx context.Context, q sqlx.QueryerContext, ids []int) (ReleasedSlots, error) {
	query := `
		UPDATE slots
		SET is_available = TRUE, booking_id = NULL
		WHERE id = ANY($1) AND is_available = FALSE
		RETURNING resource_type
	`

	rows, err := q.QueryxContext(ctx, query, pq.Array(ids))
	if err != nil {
		return ReleasedSlots{}, err
	}
	defer rows.Close()

	var released ReleasedSlots
	for rows.Next() {
		var rt ResourceType
		if err := rows.Scan(&rt); err != nil {
			return ReleasedSlots{}, err
		}
		switch rt {
		case ResourceCourt:
			released.CourtSlots++
		case ResourceCoach:
			released.CoachSlots++
		case ResourceBallboy:
			released.BallboySlots++
		}
	}

	return released, rows.Err()
}

func (r *repository) GetInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	query := `
		SELECT id, name, quantity, unit_price, created_at
		FROM inventory_items
		WHERE id = $1
	`

	var item InventoryItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, ErrInventoryNotFound
	}

	return &item, nil
}

func (r *repository) ReserveInventoryTx(ctx context.Context, tx *sqlx.Tx, itemID, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = quantity - $1 WHERE id = $2 AND quantity >= $1`,
		quantity, itemID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientInventory
	}

	return nil
}

func (r *repository) RestoreInventoryTx(ctx context.Context, tx *sqlx.Tx, itemID, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = quantity + $1 WHERE id = $2`,
		quantity, itemID,
	)
	return err
}
