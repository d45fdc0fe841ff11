package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courtside/internal/slot"

	"github.com/jmoiron/sqlx"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrNotConfirmable   = errors.New("booking cannot be confirmed from its current state")
	ErrNotExpirable     = errors.New("booking is no longer an expired hold")
)

type repository struct {
	db       *sqlx.DB
	slotRepo slot.Repository
}

func NewRepository(db *sqlx.DB, slotRepo slot.Repository) Repository {
	return &repository{db: db, slotRepo: slotRepo}
}

func (r *repository) CreateHold(ctx context.Context, customerID int, expiresAt time.Time, lines []HoldLine, inventories []HoldInventory) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var total int64
	slotIDs := make([]int, len(lines))
	for i, l := range lines {
		total += l.Price
		slotIDs[i] = l.SlotID
	}
	for _, inv := range inventories {
		total += inv.UnitPrice * int64(inv.Quantity)
	}

	var b Booking
	err = tx.GetContext(ctx, &b,
		`INSERT INTO bookings (customer_id, status, total_price, hold_expires_at)
		 VALUES ($1, 'hold', $2, $3)
		 RETURNING id, customer_id, status, total_price, hold_expires_at, created_at`,
		customerID, total, expiresAt,
	)
	if err != nil {
		return nil, err
	}

	if err := r.slotRepo.ReserveSlotsTx(ctx, tx, b.ID, slotIDs); err != nil {
		return nil, err
	}

	for _, l := range lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO booking_details (booking_id, slot_id, resource_type, start_time, price)
			 VALUES ($1, $2, $3, $4, $5)`,
			b.ID, l.SlotID, l.ResourceType, l.StartTime, l.Price,
		)
		if err != nil {
			return nil, err
		}
	}

	for _, inv := range inventories {
		if err := r.slotRepo.ReserveInventoryTx(ctx, tx, inv.InventoryID, inv.Quantity); err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO booking_inventories (booking_id, inventory_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4)`,
			b.ID, inv.InventoryID, inv.Quantity, inv.UnitPrice,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b,
		`SELECT id, customer_id, status, total_price, hold_expires_at, created_at
		 FROM bookings WHERE id = $1`,
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetWithLines(ctx context.Context, id int) (*BookingWithLines, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &BookingWithLines{Booking: *b}

	err = r.db.SelectContext(ctx, &result.Details,
		`SELECT id, booking_id, slot_id, resource_type, start_time, price
		 FROM booking_details WHERE booking_id = $1 ORDER BY start_time, slot_id`,
		id,
	)
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &result.Inventories,
		`SELECT id, booking_id, inventory_id, quantity, unit_price
		 FROM booking_inventories WHERE booking_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *repository) ListForCustomer(ctx context.Context, customerID int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings,
		`SELECT id, customer_id, status, total_price, hold_expires_at, created_at
		 FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) Confirm(ctx context.Context, id int, finalTotal int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings
		 SET status = 'confirmed', total_price = $2, hold_expires_at = NULL
		 WHERE id = $1 AND status = 'hold'`,
		id, finalTotal,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		b, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == StatusConfirmed {
			// Idempotent replay: webhook and reconciler may both settle.
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNotConfirmable, b.Status)
	}

	return nil
}

func (r *repository) Cancel(ctx context.Context, id int) (slot.ReleasedSlots, int, error) {
	return r.cancel(ctx, id, false)
}

func (r *repository) CancelExpiredHold(ctx context.Context, id int) (slot.ReleasedSlots, int, error) {
	return r.cancel(ctx, id, true)
}

func (r *repository) cancel(ctx context.Context, id int, onlyExpiredHold bool) (slot.ReleasedSlots, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return slot.ReleasedSlots{}, 0, err
	}
	defer tx.Rollback()

	var row struct {
		Status        Status     `db:"status"`
		HoldExpiresAt *time.Time `db:"hold_expires_at"`
	}
	err = tx.GetContext(ctx, &row,
		`SELECT status, hold_expires_at FROM bookings WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return slot.ReleasedSlots{}, 0, ErrBookingNotFound
		}
		return slot.ReleasedSlots{}, 0, err
	}

	if row.Status == StatusCancelled {
		return slot.ReleasedSlots{}, 0, ErrAlreadyCancelled
	}

	if onlyExpiredHold {
		// The hold may have been confirmed between the sweeper's scan and
		// this lock; only a still-expired hold may be swept.
		if row.Status != StatusHold || row.HoldExpiresAt == nil || row.HoldExpiresAt.After(time.Now()) {
			return slot.ReleasedSlots{}, 0, ErrNotExpirable
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', hold_expires_at = NULL WHERE id = $1`,
		id,
	)
	if err != nil {
		return slot.ReleasedSlots{}, 0, err
	}

	var slotIDs []int
	if err := tx.SelectContext(ctx, &slotIDs, `SELECT slot_id FROM booking_details WHERE booking_id = $1`, id); err != nil {
		return slot.ReleasedSlots{}, 0, err
	}

	released := slot.ReleasedSlots{}
	if len(slotIDs) > 0 {
		released, err = r.slotRepo.ReleaseSlotsTx(ctx, tx, slotIDs)
		if err != nil {
			return slot.ReleasedSlots{}, 0, err
		}
	}

	var invLines []InventoryLine
	if err := tx.SelectContext(ctx, &invLines,
		`SELECT id, booking_id, inventory_id, quantity, unit_price
		 FROM booking_inventories WHERE booking_id = $1`,
		id,
	); err != nil {
		return slot.ReleasedSlots{}, 0, err
	}

	restored := 0
	for _, line := range invLines {
		if err := r.slotRepo.RestoreInventoryTx(ctx, tx, line.InventoryID, line.Quantity); err != nil {
			return slot.ReleasedSlots{}, 0, err
		}
		restored++
	}

	if err := tx.Commit(); err != nil {
		return slot.ReleasedSlots{}, 0, err
	}

	return released, restored, nil
}

func (r *repository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings,
		`SELECT id, customer_id, status, total_price, hold_expires_at, created_at
		 FROM bookings
		 WHERE status = 'hold' AND hold_expires_at <= $1
		 ORDER BY hold_expires_at
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
