package invoice

import "time"

type Type string

const (
	TypeBooking    Type = "booking"
	TypeClass      Type = "class_booking"
	TypeMembership Type = "membership"
)

type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "pending"
	StatusPaid      InvoiceStatus = "paid"
	StatusFailed    InvoiceStatus = "failed"
	StatusExpired   InvoiceStatus = "expired"
	StatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is the financial record tied 1:1 to a booking or membership
// purchase. Status is paid if and only if a successful capture was observed.
type Invoice struct {
	ID            int           `db:"id" json:"id"`
	Number        string        `db:"number" json:"number"`
	Type          Type          `db:"type" json:"type"`
	BookingID     *int          `db:"booking_id" json:"booking_id,omitempty"`
	CustomerID    int           `db:"customer_id" json:"customer_id"`
	Subtotal      int64         `db:"subtotal" json:"subtotal"`
	ProcessingFee int64         `db:"processing_fee" json:"processing_fee"`
	Total         int64         `db:"total" json:"total"`
	Status        InvoiceStatus `db:"status" json:"status"`
	RefundPending bool          `db:"refund_pending" json:"refund_pending"`
	IssuedAt      time.Time     `db:"issued_at" json:"issued_at"`
	DueDate       time.Time     `db:"due_date" json:"due_date"`
	PaidAt        *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CancelledAt   *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

func (i *Invoice) IsTerminal() bool {
	switch i.Status {
	case StatusPaid, StatusExpired, StatusCancelled:
		return true
	}
	return false
}
