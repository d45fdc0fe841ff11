package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtside/internal/invoice"
	"courtside/internal/logger"
	"courtside/internal/metrics"
	"courtside/internal/slot"
)

var (
	ErrSlotConflict      = errors.New("one or more slots are no longer available")
	ErrSlotInPast        = errors.New("cannot book a slot in the past")
	ErrDuplicateSlots    = errors.New("duplicate slot ids in request")
	ErrNotOwner          = errors.New("booking belongs to another customer")
	ErrNoBookingInvoice  = errors.New("invoice is not linked to a booking")
	ErrCancelRejected    = errors.New("booking is already cancelled or expired")
	ErrInventoryConflict = errors.New("requested inventory quantity is not available")
)

type Service interface {
	CreateHold(ctx context.Context, customerID int, req CreateBookingRequest) (*BookingWithLines, error)
	Get(ctx context.Context, customerID, bookingID int) (*BookingWithLines, error)
	List(ctx context.Context, customerID int) ([]Booking, error)

	// Cancel reverses a held or confirmed booking addressed by its invoice.
	// customerID 0 means a system-initiated call (admin expiry trigger).
	Cancel(ctx context.Context, customerID, invoiceID int, reason string) (*CancelResult, error)

	// ExpireHold is the sweeper's path for holds without any invoice yet.
	ExpireHold(ctx context.Context, bookingID int) error
}

type service struct {
	repo        Repository
	slotRepo    slot.Repository
	invoiceRepo invoice.Repository
	holdTTL     time.Duration
}

func NewService(repo Repository, slotRepo slot.Repository, invoiceRepo invoice.Repository, holdTTL time.Duration) Service {
	return &service{
		repo:        repo,
		slotRepo:    slotRepo,
		invoiceRepo: invoiceRepo,
		holdTTL:     holdTTL,
	}
}

func (s *service) CreateHold(ctx context.Context, customerID int, req CreateBookingRequest) (*BookingWithLines, error) {
	seen := make(map[int]bool, len(req.SlotIDs))
	for _, id := range req.SlotIDs {
		if seen[id] {
			return nil, ErrDuplicateSlots
		}
		seen[id] = true
	}

	slots, err := s.slotRepo.GetSlotsByIDs(ctx, req.SlotIDs)
	if err != nil {
		return nil, err
	}
	if len(slots) != len(req.SlotIDs) {
		return nil, slot.ErrSlotNotFound
	}

	now := time.Now()
	lines := make([]HoldLine, 0, len(slots))
	for _, sl := range slots {
		if sl.StartTime.Before(now) {
			return nil, ErrSlotInPast
		}
		if !sl.IsAvailable {
			metrics.SlotConflictsTotal.Inc()
			return nil, ErrSlotConflict
		}
		lines = append(lines, HoldLine{
			SlotID:       sl.ID,
			ResourceType: sl.ResourceType,
			StartTime:    sl.StartTime,
			Price:        sl.Price,
		})
	}

	inventories := make([]HoldInventory, 0, len(req.Inventories))
	for _, ir := range req.Inventories {
		item, err := s.slotRepo.GetInventoryItem(ctx, ir.InventoryID)
		if err != nil {
			return nil, err
		}
		if item.Quantity < ir.Quantity {
			return nil, ErrInventoryConflict
		}
		inventories = append(inventories, HoldInventory{
			InventoryID: item.ID,
			Quantity:    ir.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	b, err := s.repo.CreateHold(ctx, customerID, now.Add(s.holdTTL), lines, inventories)
	if err != nil {
		// The availability pre-check above is advisory; the transaction is
		// the authority and losing the race here is a normal outcome.
		if errors.Is(err, slot.ErrSlotUnavailable) {
			metrics.SlotConflictsTotal.Inc()
			return nil, ErrSlotConflict
		}
		if errors.Is(err, slot.ErrInsufficientInventory) {
			return nil, ErrInventoryConflict
		}
		return nil, err
	}

	metrics.BookingsTotal.WithLabelValues(string(StatusHold)).Inc()
	logger.Info("booking hold created",
		"booking_id", b.ID,
		"customer_id", customerID,
		"slots", len(lines),
		"expires_at", b.HoldExpiresAt,
	)

	return s.repo.GetWithLines(ctx, b.ID)
}

func (s *service) Get(ctx context.Context, customerID, bookingID int) (*BookingWithLines, error) {
	b, err := s.repo.GetWithLines(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, ErrNotOwner
	}
	return b, nil
}

func (s *service) List(ctx context.Context, customerID int) ([]Booking, error) {
	return s.repo.ListForCustomer(ctx, customerID)
}

func (s *service) Cancel(ctx context.Context, customerID, invoiceID int, reason string) (*CancelResult, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.BookingID == nil {
		return nil, ErrNoBookingInvoice
	}
	if inv.Status == invoice.StatusCancelled || inv.Status == invoice.StatusExpired {
		return nil, ErrCancelRejected
	}
	if customerID != 0 && inv.CustomerID != customerID {
		return nil, ErrNotOwner
	}

	released, restored, err := s.repo.Cancel(ctx, *inv.BookingID)
	if err != nil {
		if errors.Is(err, ErrAlreadyCancelled) {
			return nil, ErrCancelRejected
		}
		return nil, err
	}

	result := &CancelResult{
		ReleasedSlots:       released,
		RestoredInventories: restored,
	}

	if inv.Status == invoice.StatusPaid {
		// Refunds are asynchronous; the money has not moved when this
		// returns.
		if err := s.invoiceRepo.MarkRefundPending(ctx, invoiceID); err != nil {
			logger.Error("failed to flag refund", "invoice_id", invoiceID, "error", err)
		}
		result.Refund = &RefundInfo{
			RefundPending: true,
			Amount:        inv.Total,
			Message:       fmt.Sprintf("A refund of %d is being processed and will be returned to your payment method.", inv.Total),
		}
	} else {
		if err := s.invoiceRepo.Cancel(ctx, invoiceID); err != nil && !errors.Is(err, invoice.ErrAlreadyTerminal) {
			logger.Error("failed to cancel invoice", "invoice_id", invoiceID, "error", err)
		}
	}

	metrics.BookingCancellationsTotal.WithLabelValues(reason).Inc()
	logger.Info("booking cancelled",
		"booking_id", *inv.BookingID,
		"invoice_id", invoiceID,
		"reason", reason,
		"released_slots", released.Total(),
		"restored_inventories", restored,
	)

	return result, nil
}

func (s *service) ExpireHold(ctx context.Context, bookingID int) error {
	_, _, err := s.repo.CancelExpiredHold(ctx, bookingID)
	if err != nil {
		return err
	}

	if inv, err := s.invoiceRepo.GetByBookingID(ctx, bookingID); err == nil {
		if err := s.invoiceRepo.Expire(ctx, inv.ID); err != nil && !errors.Is(err, invoice.ErrAlreadyTerminal) {
			logger.Error("failed to expire invoice", "invoice_id", inv.ID, "error", err)
		}
	}

	metrics.HoldsExpiredTotal.Inc()
	metrics.BookingCancellationsTotal.WithLabelValues("expired").Inc()
	return nil
}
