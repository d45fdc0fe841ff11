package membership

import "context"

type Repository interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlanByID(ctx context.Context, id int) (*Plan, error)

	// GetActiveBalance returns nil without error when the customer has no
	// membership at all.
	GetActiveBalance(ctx context.Context, customerID int) (*Balance, error)

	// DeductSessions consumes n sessions at payment confirmation. Guarded:
	// fails when fewer than n sessions remain.
	DeductSessions(ctx context.Context, membershipID, n int) error

	// CreateMembership activates a purchased plan for the customer.
	CreateMembership(ctx context.Context, customerID int, plan *Plan) (*Membership, error)
}
