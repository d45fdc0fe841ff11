package membership

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrPlanNotFound         = errors.New("membership plan not found")
	ErrInsufficientSessions = errors.New("not enough membership sessions remaining")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListPlans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	err := r.db.SelectContext(ctx, &plans,
		`SELECT id, name, session_count, duration_days, price, created_at FROM membership_plans ORDER BY price`,
	)
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) GetPlanByID(ctx context.Context, id int) (*Plan, error) {
	var plan Plan
	err := r.db.GetContext(ctx, &plan,
		`SELECT id, name, session_count, duration_days, price, created_at FROM membership_plans WHERE id = $1`,
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) GetActiveBalance(ctx context.Context, customerID int) (*Balance, error) {
	query := `
		SELECT m.id, m.status, m.remaining_sessions, m.valid_until, p.name AS plan_name
		FROM memberships m
		JOIN membership_plans p ON m.plan_id = p.id
		WHERE m.customer_id = $1 AND m.status != 'expired'
		ORDER BY m.valid_until DESC
		LIMIT 1
	`

	var row struct {
		ID                int       `db:"id"`
		Status            Status    `db:"status"`
		RemainingSessions int       `db:"remaining_sessions"`
		ValidUntil        time.Time `db:"valid_until"`
		PlanName          string    `db:"plan_name"`
	}

	err := r.db.GetContext(ctx, &row, query, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	remainingDays := int(time.Until(row.ValidUntil).Hours() / 24)
	if remainingDays < 0 {
		remainingDays = 0
	}

	return &Balance{
		MembershipID:      row.ID,
		PlanName:          row.PlanName,
		RemainingSessions: row.RemainingSessions,
		RemainingDays:     remainingDays,
		IsExpired:         row.Status == StatusExpired || time.Now().After(row.ValidUntil),
		IsSuspended:       row.Status == StatusSuspended,
	}, nil
}

func (r *repository) DeductSessions(ctx context.Context, membershipID, n int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE memberships
		 SET remaining_sessions = remaining_sessions - $1, updated_at = NOW()
		 WHERE id = $2 AND status = 'active' AND remaining_sessions >= $1`,
		n, membershipID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientSessions
	}

	return nil
}

func (r *repository) CreateMembership(ctx context.Context, customerID int, plan *Plan) (*Membership, error) {
	query := `
		INSERT INTO memberships (customer_id, plan_id, status, remaining_sessions, valid_from, valid_until)
		VALUES ($1, $2, 'active', $3, NOW(), NOW() + make_interval(days => $4))
		RETURNING id, customer_id, plan_id, status, remaining_sessions, valid_from, valid_until, created_at, updated_at
	`

	var m Membership
	err := r.db.GetContext(ctx, &m, query, customerID, plan.ID, plan.SessionCount, plan.DurationDays)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
