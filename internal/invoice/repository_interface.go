package invoice

import (
	"context"
	"time"
)

type CreateInvoiceInput struct {
	Type          Type
	BookingID     *int
	CustomerID    int
	Subtotal      int64
	ProcessingFee int64
	DueDate       time.Time
}

type Repository interface {
	Create(ctx context.Context, in CreateInvoiceInput) (*Invoice, error)
	GetByID(ctx context.Context, id int) (*Invoice, error)
	GetByBookingID(ctx context.Context, bookingID int) (*Invoice, error)

	// MarkPaid transitions pending or failed to paid. It reports whether
	// this call performed the transition: a replay against an already-paid
	// invoice returns (false, nil) so webhook and poller can race without
	// duplicating confirmation side effects.
	MarkPaid(ctx context.Context, id int) (bool, error)
	MarkFailed(ctx context.Context, id int) error

	// MarkRefundPending flags a paid invoice for asynchronous refund after
	// its booking is cancelled. Refunds never run synchronously.
	MarkRefundPending(ctx context.Context, id int) error

	// Cancel and Expire are guarded: a second call on a terminal invoice
	// reports ErrAlreadyTerminal.
	Cancel(ctx context.Context, id int) error
	Expire(ctx context.Context, id int) error
}
