package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoPendingPayment = errors.New("no payment information found")

// PendingPayment is the server-side record of a charge that came back from
// the provider in a non-final state. It is what the reconciler and the
// webhook handler use to finish settlement later.
type PendingPayment struct {
	AttemptID     string `json:"attempt_id"`
	ChargeID      string `json:"charge_id"`
	InvoiceID     int    `json:"invoice_id"`
	BookingID     *int   `json:"booking_id,omitempty"`
	CustomerID    int    `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	Amount        int64  `json:"amount"`
	MembershipID  *int   `json:"membership_id,omitempty"`
	PlanID        *int   `json:"plan_id,omitempty"`
	SessionsUsed  int    `json:"sessions_used"`
	AuthorizeURL  string `json:"authorize_url,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

type PendingStore interface {
	Save(ctx context.Context, p *PendingPayment) error
	Get(ctx context.Context, attemptID string) (*PendingPayment, error)
	Delete(ctx context.Context, attemptID string) error
	FindByCharge(ctx context.Context, chargeID string) (*PendingPayment, error)

	// FindByBooking returns the booking's current pending attempt. At most
	// one attempt per booking is live at a time; starting a new checkout
	// replaces the previous record.
	FindByBooking(ctx context.Context, bookingID int) (*PendingPayment, error)
}

type redisPendingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPendingStore(client *redis.Client, ttl time.Duration) PendingStore {
	return &redisPendingStore{client: client, ttl: ttl}
}

func pendingKey(attemptID string) string {
	return fmt.Sprintf("pending_payment:%s", attemptID)
}

func chargeIndexKey(chargeID string) string {
	return fmt.Sprintf("pending_charge:%s", chargeID)
}

func bookingIndexKey(bookingID int) string {
	return fmt.Sprintf("pending_booking:%d", bookingID)
}

func (s *redisPendingStore) Save(ctx context.Context, p *PendingPayment) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, pendingKey(p.AttemptID), data, s.ttl)
	pipe.Set(ctx, chargeIndexKey(p.ChargeID), p.AttemptID, s.ttl)
	if p.BookingID != nil {
		pipe.Set(ctx, bookingIndexKey(*p.BookingID), p.AttemptID, s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisPendingStore) Get(ctx context.Context, attemptID string) (*PendingPayment, error) {
	data, err := s.client.Get(ctx, pendingKey(attemptID)).Result()
	if err == redis.Nil {
		return nil, ErrNoPendingPayment
	}
	if err != nil {
		return nil, err
	}

	var p PendingPayment
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *redisPendingStore) Delete(ctx context.Context, attemptID string) error {
	p, err := s.Get(ctx, attemptID)
	if err == ErrNoPendingPayment {
		return nil
	}
	if err != nil {
		return err
	}

	// Only drop the booking index while this attempt still owns it; a newer
	// attempt may have overwritten it already.
	ownsBookingIndex := false
	if p.BookingID != nil {
		if cur, err := s.client.Get(ctx, bookingIndexKey(*p.BookingID)).Result(); err == nil && cur == attemptID {
			ownsBookingIndex = true
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, pendingKey(attemptID))
	pipe.Del(ctx, chargeIndexKey(p.ChargeID))
	if ownsBookingIndex {
		pipe.Del(ctx, bookingIndexKey(*p.BookingID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisPendingStore) FindByCharge(ctx context.Context, chargeID string) (*PendingPayment, error) {
	attemptID, err := s.client.Get(ctx, chargeIndexKey(chargeID)).Result()
	if err == redis.Nil {
		return nil, ErrNoPendingPayment
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, attemptID)
}

func (s *redisPendingStore) FindByBooking(ctx context.Context, bookingID int) (*PendingPayment, error) {
	attemptID, err := s.client.Get(ctx, bookingIndexKey(bookingID)).Result()
	if err == redis.Nil {
		return nil, ErrNoPendingPayment
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, attemptID)
}
