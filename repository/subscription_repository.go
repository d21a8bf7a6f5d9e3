package repository

import (
	"context"
	"errors"

	"aicfo-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository handles database operations for subscriptions
type SubscriptionRepository struct {
	db *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert inserts or updates a subscription keyed by the Stripe subscription
// id. Replaying the same billing event is idempotent; the last event's field
// values win.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			user_id, stripe_subscription_id, status,
			current_period_start, current_period_end, cancel_at_period_end
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stripe_subscription_id) DO UPDATE
		SET status = EXCLUDED.status,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		    updated_at = now()
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		sub.UserID,
		sub.StripeSubscriptionID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

// GetByStripeSubscriptionID retrieves a subscription by its Stripe id
func (r *SubscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*models.Subscription, error) {
	sub := &models.Subscription{}
	query := `
		SELECT id, user_id, stripe_subscription_id, status,
		       current_period_start, current_period_end, cancel_at_period_end,
		       created_at, updated_at
		FROM subscriptions
		WHERE stripe_subscription_id = $1`

	err := r.db.QueryRow(ctx, query, stripeSubID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.StripeSubscriptionID,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// GetActiveByUser returns the user's authoritative subscription: the most
// recently updated active-or-trialing row, or nil when there is none.
func (r *SubscriptionRepository) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub := &models.Subscription{}
	query := `
		SELECT id, user_id, stripe_subscription_id, status,
		       current_period_start, current_period_end, cancel_at_period_end,
		       created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'trialing')
		ORDER BY updated_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.StripeSubscriptionID,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return sub, nil
}

// MarkCanceled flips a subscription's status to canceled, keeping the row
// and its last-known period bounds for billing history.
func (r *SubscriptionRepository) MarkCanceled(ctx context.Context, stripeSubID string) error {
	query := `UPDATE subscriptions SET status = 'canceled', updated_at = now() WHERE stripe_subscription_id = $1`
	_, err := r.db.Exec(ctx, query, stripeSubID)
	return err
}
