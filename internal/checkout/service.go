package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courtside/internal/booking"
	"courtside/internal/invoice"
	"courtside/internal/logger"
	"courtside/internal/membership"
	"courtside/internal/metrics"
	"courtside/internal/slot"
)

var (
	ErrNotOwner          = errors.New("booking does not belong to customer")
	ErrBookingNotHold    = errors.New("booking is not awaiting payment")
	ErrHoldExpired       = errors.New("booking hold has expired")
	ErrAttemptSuperseded = errors.New("payment attempt superseded by a newer attempt")
)

const (
	StatusSucceeded      = "SUCCEEDED"
	StatusRequiresAction = "REQUIRES_ACTION"
	StatusFailed         = "FAILED"
)

type Result struct {
	PaymentStatus string `json:"payment_status"`
	PaymentURL    string `json:"payment_url,omitempty"`
	InvoiceID     int    `json:"invoice_id"`
	AttemptID     string `json:"attempt_id"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type ReconcileResult struct {
	Status        string `json:"status"`
	InvoiceID     int    `json:"invoice_id"`
	FailureReason string `json:"failure_reason,omitempty"`
}

const (
	ReconcileSuccess    = "success"
	ReconcileFailed     = "failed"
	ReconcileProcessing = "processing"
)

type Mailer interface {
	SendPaymentReceipt(ctx context.Context, to, name, invoiceNumber string, amount int64) error
}

type Service interface {
	CheckoutBooking(ctx context.Context, customerID int, customerEmail string, bookingID int, cardToken string) (*Result, error)
	CheckoutMembership(ctx context.Context, customerID int, customerEmail string, planID int, cardToken string) (*Result, error)

	// Reconcile drives the bounded settlement poll after the customer
	// returns from 3-D Secure.
	Reconcile(ctx context.Context, attemptID string) (*ReconcileResult, error)

	// HandleWebhook settles an attempt from a provider event, verified by
	// re-retrieving the event rather than trusting the posted payload.
	HandleWebhook(ctx context.Context, eventID string) error
}

type Options struct {
	Currency             string
	ReturnURL            string
	ProcessingFee        int64
	PendingTTL           time.Duration
	ReconcileInterval    time.Duration
	ReconcileMaxAttempts int
}

type service struct {
	bookingRepo    booking.Repository
	invoiceRepo    invoice.Repository
	membershipRepo membership.Repository
	gateway        Gateway
	pending        PendingStore
	mailer         Mailer
	opts           Options
}

func NewService(
	bookingRepo booking.Repository,
	invoiceRepo invoice.Repository,
	membershipRepo membership.Repository,
	gateway Gateway,
	pending PendingStore,
	mailer Mailer,
	opts Options,
) Service {
	return &service{
		bookingRepo:    bookingRepo,
		invoiceRepo:    invoiceRepo,
		membershipRepo: membershipRepo,
		gateway:        gateway,
		pending:        pending,
		mailer:         mailer,
		opts:           opts,
	}
}

func (s *service) CheckoutBooking(ctx context.Context, customerID int, customerEmail string, bookingID int, cardToken string) (*Result, error) {
	b, err := s.bookingRepo.GetWithLines(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, ErrNotOwner
	}
	if b.Status != booking.StatusHold {
		return nil, ErrBookingNotHold
	}
	if b.HoldExpiresAt != nil && b.HoldExpiresAt.Before(time.Now()) {
		return nil, ErrHoldExpired
	}

	// A new checkout makes this the booking's only live attempt. Any earlier
	// attempt still parked behind 3-D Secure is invalidated now so its late
	// outcome cannot settle against the booking.
	if prev, err := s.pending.FindByBooking(ctx, bookingID); err == nil {
		logger.Info("superseding abandoned payment attempt",
			"booking_id", bookingID, "attempt_id", prev.AttemptID, "invoice_id", prev.InvoiceID)
		if failErr := s.invoiceRepo.MarkFailed(ctx, prev.InvoiceID); failErr != nil && !errors.Is(failErr, invoice.ErrAlreadyTerminal) {
			logger.Error("failed to fail superseded invoice", "invoice_id", prev.InvoiceID, "error", failErr)
		}
		if delErr := s.pending.Delete(ctx, prev.AttemptID); delErr != nil {
			return nil, fmt.Errorf("invalidate previous attempt: %w", delErr)
		}
	} else if !errors.Is(err, ErrNoPendingPayment) {
		return nil, fmt.Errorf("look up previous attempt: %w", err)
	}

	// The total is always recomputed here. Whatever the client showed the
	// customer is advisory; this number is the one that gets charged.
	var subtotal int64
	courtItems := make([]membership.BookingItem, 0, len(b.Details))
	for _, d := range b.Details {
		subtotal += d.Price
		if d.ResourceType == slot.ResourceCourt {
			courtItems = append(courtItems, membership.BookingItem{
				Date:     d.StartTime.Format("2006-01-02"),
				TimeSlot: d.StartTime.Format("15:04"),
				Price:    d.Price,
			})
		}
	}
	for _, line := range b.Inventories {
		subtotal += line.UnitPrice * int64(line.Quantity)
	}

	balance, err := s.membershipRepo.GetActiveBalance(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load membership balance: %w", err)
	}
	disc := membership.ComputeDiscount(courtItems, balance)

	dueDate := time.Now().Add(s.opts.PendingTTL)
	if b.HoldExpiresAt != nil {
		dueDate = *b.HoldExpiresAt
	}

	inv, err := s.invoiceRepo.Create(ctx, invoice.CreateInvoiceInput{
		Type:          invoice.TypeBooking,
		BookingID:     &b.ID,
		CustomerID:    customerID,
		Subtotal:      subtotal - disc.DiscountAmount,
		ProcessingFee: s.opts.ProcessingFee,
		DueDate:       dueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	p := &PendingPayment{
		AttemptID:     uuid.New().String(),
		InvoiceID:     inv.ID,
		BookingID:     &b.ID,
		CustomerID:    customerID,
		CustomerEmail: customerEmail,
		Amount:        inv.Total,
		SessionsUsed:  disc.SlotsToDeduct,
		CreatedAt:     time.Now().Unix(),
	}
	if disc.CanUse && balance != nil {
		id := balance.MembershipID
		p.MembershipID = &id
	}

	return s.charge(ctx, p, cardToken, "booking", map[string]interface{}{
		"attempt_id": p.AttemptID,
		"invoice_id": inv.ID,
		"booking_id": b.ID,
	})
}

func (s *service) CheckoutMembership(ctx context.Context, customerID int, customerEmail string, planID int, cardToken string) (*Result, error) {
	plan, err := s.membershipRepo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	inv, err := s.invoiceRepo.Create(ctx, invoice.CreateInvoiceInput{
		Type:          invoice.TypeMembership,
		CustomerID:    customerID,
		Subtotal:      plan.Price,
		ProcessingFee: s.opts.ProcessingFee,
		DueDate:       time.Now().Add(s.opts.PendingTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	p := &PendingPayment{
		AttemptID:     uuid.New().String(),
		InvoiceID:     inv.ID,
		CustomerID:    customerID,
		CustomerEmail: customerEmail,
		Amount:        inv.Total,
		PlanID:        &plan.ID,
		CreatedAt:     time.Now().Unix(),
	}

	return s.charge(ctx, p, cardToken, "membership", map[string]interface{}{
		"attempt_id": p.AttemptID,
		"invoice_id": inv.ID,
		"plan_id":    plan.ID,
	})
}

// charge runs one single-use payment attempt against the gateway and routes
// the outcome. A retry after failure is a brand new attempt with a fresh id;
// charges are never resubmitted.
func (s *service) charge(ctx context.Context, p *PendingPayment, cardToken, attemptType string, metadata map[string]interface{}) (*Result, error) {
	returnURL := fmt.Sprintf("%s?attempt_id=%s", s.opts.ReturnURL, p.AttemptID)

	ch, err := s.gateway.CreateCharge(ctx, ChargeInput{
		Amount:    p.Amount,
		Currency:  s.opts.Currency,
		CardToken: cardToken,
		ReturnURL: returnURL,
		Metadata:  metadata,
	})
	if err != nil {
		if failErr := s.invoiceRepo.MarkFailed(ctx, p.InvoiceID); failErr != nil {
			logger.Error("failed to mark invoice failed after gateway error", "invoice_id", p.InvoiceID, "error", failErr)
		}
		metrics.CheckoutAttemptsTotal.WithLabelValues(attemptType, "gateway_error").Inc()
		return nil, err
	}
	p.ChargeID = ch.ID

	switch ch.Status {
	case ChargeSucceeded:
		if err := s.settle(ctx, p); err != nil {
			return nil, err
		}
		metrics.CheckoutAttemptsTotal.WithLabelValues(attemptType, "succeeded").Inc()
		return &Result{PaymentStatus: StatusSucceeded, InvoiceID: p.InvoiceID, AttemptID: p.AttemptID}, nil

	case ChargeFailed:
		if err := s.invoiceRepo.MarkFailed(ctx, p.InvoiceID); err != nil {
			logger.Error("failed to mark invoice failed", "invoice_id", p.InvoiceID, "error", err)
		}
		metrics.CheckoutAttemptsTotal.WithLabelValues(attemptType, "failed").Inc()
		return &Result{
			PaymentStatus: StatusFailed,
			InvoiceID:     p.InvoiceID,
			AttemptID:     p.AttemptID,
			FailureReason: failureReason(ch),
		}, nil

	default:
		p.AuthorizeURL = ch.AuthorizeURL
		if err := s.pending.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("save pending payment: %w", err)
		}
		metrics.CheckoutAttemptsTotal.WithLabelValues(attemptType, "requires_action").Inc()
		return &Result{
			PaymentStatus: StatusRequiresAction,
			PaymentURL:    ch.AuthorizeURL,
			InvoiceID:     p.InvoiceID,
			AttemptID:     p.AttemptID,
		}, nil
	}
}

// settle captures a successful charge exactly once. The MarkPaid guard is the
// linchpin: whichever of the synchronous path, the reconciler, or the webhook
// gets there first performs the side effects, every later caller no-ops. A
// record that is no longer the booking's current attempt is rejected before
// anything changes state.
func (s *service) settle(ctx context.Context, p *PendingPayment) error {
	if p.BookingID != nil {
		cur, err := s.pending.FindByBooking(ctx, *p.BookingID)
		if err != nil && !errors.Is(err, ErrNoPendingPayment) {
			return fmt.Errorf("look up current attempt: %w", err)
		}
		if err == nil && cur.AttemptID != p.AttemptID {
			// The charge captured money, but a newer attempt owns the
			// booking. Nothing here may settle; the capture needs a void
			// or refund from an operator.
			logger.Error("captured charge belongs to a superseded attempt, needs void or refund",
				"attempt_id", p.AttemptID, "charge_id", p.ChargeID,
				"booking_id", *p.BookingID, "current_attempt_id", cur.AttemptID)
			metrics.SupersededCapturesTotal.Inc()
			return ErrAttemptSuperseded
		}
	}

	transitioned, err := s.invoiceRepo.MarkPaid(ctx, p.InvoiceID)
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}

	if p.BookingID != nil {
		confirm := transitioned
		if !transitioned {
			// Replay. The invoice is already paid, but a confirm that failed
			// on the first settle would have left the booking a hold; repair
			// it rather than letting the sweeper expire paid slots.
			b, err := s.bookingRepo.GetByID(ctx, *p.BookingID)
			if err != nil {
				return fmt.Errorf("load booking during settle replay: %w", err)
			}
			confirm = b.Status == booking.StatusHold
		}
		if confirm {
			if err := s.bookingRepo.Confirm(ctx, *p.BookingID, p.Amount); err != nil {
				return fmt.Errorf("confirm booking after capture: %w", err)
			}
			metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
		}
	}
	if !transitioned {
		return nil
	}

	if p.MembershipID != nil && p.SessionsUsed > 0 {
		if err := s.membershipRepo.DeductSessions(ctx, *p.MembershipID, p.SessionsUsed); err != nil {
			logger.Error("failed to deduct membership sessions", "membership_id", *p.MembershipID, "error", err)
		}
	}

	if p.PlanID != nil {
		plan, err := s.membershipRepo.GetPlanByID(ctx, *p.PlanID)
		if err != nil {
			logger.Error("failed to load plan after capture", "plan_id", *p.PlanID, "error", err)
		} else if _, err := s.membershipRepo.CreateMembership(ctx, p.CustomerID, plan); err != nil {
			logger.Error("failed to activate membership after capture", "plan_id", *p.PlanID, "error", err)
		}
	}

	if p.CustomerEmail != "" {
		inv, err := s.invoiceRepo.GetByID(ctx, p.InvoiceID)
		if err != nil {
			logger.Warn("failed to load invoice for receipt", "invoice_id", p.InvoiceID, "error", err)
		} else if err := s.mailer.SendPaymentReceipt(ctx, p.CustomerEmail, p.CustomerEmail, inv.Number, inv.Total); err != nil {
			logger.Warn("failed to queue payment receipt", "invoice_id", p.InvoiceID, "error", err)
		}
	}

	return nil
}

// settleFailure records a terminal decline. The booking stays a hold so the
// customer can retry with another card until the hold expires.
func (s *service) settleFailure(ctx context.Context, p *PendingPayment) error {
	if err := s.invoiceRepo.MarkFailed(ctx, p.InvoiceID); err != nil && !errors.Is(err, invoice.ErrAlreadyTerminal) {
		return err
	}
	return nil
}

func failureReason(ch *Charge) string {
	if ch.FailureMessage != "" {
		return ch.FailureMessage
	}
	if ch.FailureCode != "" {
		return ch.FailureCode
	}
	return "payment was declined"
}
