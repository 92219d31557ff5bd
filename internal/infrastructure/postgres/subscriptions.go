package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository is the PostgreSQL implementation of domain.SubscriptionStore.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptions creates a SubscriptionRepository.
func NewSubscriptions(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// DeleteAllForUser removes every media subscription owned by userID.
func (r *SubscriptionRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}
