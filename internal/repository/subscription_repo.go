package repository

import (
	"context"
	"time"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
)

const subscriptionColumns = `id, user_id, service_id, status, current_period_start,
		current_period_end, sessions_per_period, cancel_at_period_end, created_at`

type CreateSubscriptionInput struct {
	UserID             int64
	ServiceID          int64
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	SessionsPerPeriod  int
}

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanSubscription(row interface{ Scan(dest ...any) error }, sub *models.Subscription) error {
	return row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.ServiceID,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.SessionsPerPeriod,
		&sub.CancelAtPeriodEnd,
		&sub.CreatedAt,
	)
}

func (r *SubscriptionRepository) Create(ctx context.Context, input CreateSubscriptionInput) (*models.Subscription, error) {
	query := `
		INSERT INTO subscriptions (user_id, service_id, status, current_period_start,
			current_period_end, sessions_per_period)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + subscriptionColumns

	var sub models.Subscription
	err := scanSubscription(r.db.QueryRow(ctx, query,
		input.UserID,
		input.ServiceID,
		input.Status,
		input.CurrentPeriodStart,
		input.CurrentPeriodEnd,
		input.SessionsPerPeriod,
	), &sub)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListFundingCandidates returns trialing/active subscriptions for the pair
// with a live period, soonest period end first so the subscription closest to
// expiry drains first, oldest id breaking ties.
func (r *SubscriptionRepository) ListFundingCandidates(
	ctx context.Context,
	userID int64,
	serviceID int64,
	now time.Time,
) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		  AND service_id = $2
		  AND status IN ('trialing', 'active')
		  AND current_period_start IS NOT NULL
		  AND current_period_end IS NOT NULL
		  AND current_period_end > $3
		ORDER BY current_period_end ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, userID, serviceID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]models.Subscription, 0)
	for rows.Next() {
		var sub models.Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}
