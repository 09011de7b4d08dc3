package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyforge/billing/pkg/plan"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a SubscriptionStore backed by the subscriptions
// table. Panics on a nil pool.
func NewPostgresStore(pool *pgxpool.Pool) SubscriptionStore {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return &postgresStore{pool: pool}
}

const subscriptionColumns = `user_id, tier, status, provider_sub_id, provider_customer_id,
	current_period_end, cancel_at_period_end, ai_minutes_purchased,
	created_at, updated_at, cancelled_at`

func (s *postgresStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`,
		userID)
	return scanSubscription(row)
}

func (s *postgresStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	if providerSubID == "" {
		return nil, ErrSubscriptionNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_sub_id = $1`,
		providerSubID)
	return scanSubscription(row)
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub  Subscription
		tier string
		stat string
	)
	err := row.Scan(
		&sub.UserID, &tier, &stat, &sub.ProviderSubID, &sub.ProviderCustomerID,
		&sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &sub.AIMinutesPurchased,
		&sub.CreatedAt, &sub.UpdatedAt, &sub.CancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	sub.Tier = plan.Tier(tier)
	sub.Status = ParseStatus(stat)
	return &sub, nil
}

func (s *postgresStore) Save(ctx context.Context, sub *Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			provider_sub_id = EXCLUDED.provider_sub_id,
			provider_customer_id = EXCLUDED.provider_customer_id,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			ai_minutes_purchased = EXCLUDED.ai_minutes_purchased,
			updated_at = EXCLUDED.updated_at,
			cancelled_at = EXCLUDED.cancelled_at`,
		sub.UserID, string(sub.Tier), string(sub.Status), sub.ProviderSubID, sub.ProviderCustomerID,
		sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.AIMinutesPurchased,
		sub.CreatedAt, sub.UpdatedAt, sub.CancelledAt,
	)
	return err
}
