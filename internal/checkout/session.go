package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PaymentSession is a short-lived provider session handed to the client so it
// can tokenize card details. One live session per customer is enough; creating
// a new one invalidates nothing, it is just wasteful.
type PaymentSession struct {
	ID         string    `json:"id"`
	CustomerID int       `json:"customer_id"`
	PublicKey  string    `json:"public_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type SessionStore struct {
	client    *redis.Client
	publicKey string
	ttl       time.Duration
	group     singleflight.Group
}

func NewSessionStore(client *redis.Client, publicKey string, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, publicKey: publicKey, ttl: ttl}
}

func sessionKey(customerID int) string {
	return fmt.Sprintf("payment_session:%d", customerID)
}

// EnsureSession returns the customer's cached session or creates one.
// Concurrent callers for the same customer share a single creation; a burst
// of checkout tabs must not fan out into a burst of provider sessions.
func (s *SessionStore) EnsureSession(ctx context.Context, customerID int) (*PaymentSession, error) {
	key := sessionKey(customerID)

	data, err := s.client.Get(ctx, key).Result()
	if err == nil {
		var sess PaymentSession
		if jsonErr := json.Unmarshal([]byte(data), &sess); jsonErr == nil && time.Now().Before(sess.ExpiresAt) {
			return &sess, nil
		}
	} else if err != redis.Nil {
		return nil, err
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: the winner of an earlier burst may
		// have written the session while we were queued.
		data, err := s.client.Get(ctx, key).Result()
		if err == nil {
			var sess PaymentSession
			if jsonErr := json.Unmarshal([]byte(data), &sess); jsonErr == nil && time.Now().Before(sess.ExpiresAt) {
				return &sess, nil
			}
		} else if err != redis.Nil {
			return nil, err
		}

		sess := &PaymentSession{
			ID:         uuid.New().String(),
			CustomerID: customerID,
			PublicKey:  s.publicKey,
			ExpiresAt:  time.Now().Add(s.ttl),
		}
		payload, err := json.Marshal(sess)
		if err != nil {
			return nil, err
		}
		if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			return nil, err
		}
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PaymentSession), nil
}
