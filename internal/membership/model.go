package membership

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

type Plan struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	SessionCount int       `db:"session_count" json:"session_count"`
	DurationDays int       `db:"duration_days" json:"duration_days"`
	Price        int64     `db:"price" json:"price"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Membership struct {
	ID                int       `db:"id" json:"id"`
	CustomerID        int       `db:"customer_id" json:"customer_id"`
	PlanID            int       `db:"plan_id" json:"plan_id"`
	Status            Status    `db:"status" json:"status"`
	RemainingSessions int       `db:"remaining_sessions" json:"remaining_sessions"`
	ValidFrom         time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil        time.Time `db:"valid_until" json:"valid_until"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Balance is the read model the booking flow consumes. It never mutates
// membership state; sessions are deducted only at payment confirmation.
type Balance struct {
	MembershipID      int    `json:"membership_id"`
	PlanName          string `json:"plan_name"`
	RemainingSessions int    `json:"remaining_sessions"`
	RemainingDays     int    `json:"remaining_days"`
	IsExpired         bool   `json:"is_expired"`
	IsSuspended       bool   `json:"is_suspended"`
}
