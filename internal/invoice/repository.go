package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrAlreadyTerminal = errors.New("invoice is already in a terminal state")
)

const invoiceColumns = `id, number, type, booking_id, customer_id, subtotal, processing_fee, total, status, refund_pending, issued_at, due_date, paid_at, cancelled_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.GetContext(ctx, &seq, `SELECT nextval('invoice_number_seq')`); err != nil {
		return nil, err
	}
	number := fmt.Sprintf("INV/%s/%06d", time.Now().Format("20060102"), seq)

	query := `
		INSERT INTO invoices (number, type, booking_id, customer_id, subtotal, processing_fee, total, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		RETURNING ` + invoiceColumns

	var inv Invoice
	err = tx.GetContext(ctx, &inv, query,
		number, in.Type, in.BookingID, in.CustomerID,
		in.Subtotal, in.ProcessingFee, in.Subtotal+in.ProcessingFee, in.DueDate,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &inv, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Invoice, error) {
	var inv Invoice
	err := r.db.GetContext(ctx, &inv, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) GetByBookingID(ctx context.Context, bookingID int) (*Invoice, error) {
	var inv Invoice
	err := r.db.GetContext(ctx, &inv,
		`SELECT `+invoiceColumns+` FROM invoices WHERE booking_id = $1 ORDER BY issued_at DESC LIMIT 1`,
		bookingID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) MarkPaid(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices
		 SET status = 'paid', paid_at = NOW()
		 WHERE id = $1 AND status IN ('pending', 'failed')`,
		id,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rowsAffected == 0 {
		// Replays against an already-paid invoice are no-ops; anything else
		// terminal is a real conflict.
		inv, err := r.GetByID(ctx, id)
		if err != nil {
			return false, err
		}
		if inv.Status == StatusPaid {
			return false, nil
		}
		return false, ErrAlreadyTerminal
	}

	return true, nil
}

func (r *repository) MarkFailed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = 'failed' WHERE id = $1 AND status = 'pending'`,
		id,
	)
	return err
}

func (r *repository) Cancel(ctx context.Context, id int) error {
	return r.terminate(ctx, id, StatusCancelled)
}

func (r *repository) MarkRefundPending(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET refund_pending = TRUE WHERE id = $1 AND status = 'paid'`,
		id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAlreadyTerminal
	}

	return nil
}

func (r *repository) Expire(ctx context.Context, id int) error {
	return r.terminate(ctx, id, StatusExpired)
}

// terminate only applies to unpaid invoices. A paid invoice keeps its status
// on cancellation; the refund flag records the pending reversal instead.
func (r *repository) terminate(ctx context.Context, id int, status InvoiceStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices
		 SET status = $1, cancelled_at = NOW()
		 WHERE id = $2 AND status IN ('pending', 'failed')`,
		status, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAlreadyTerminal
	}

	return nil
}
