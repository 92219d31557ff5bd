package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vn.io.arda/account/internal/domain"
)

// ThirdPartyRepository is the PostgreSQL implementation of domain.ThirdPartyRepository.
type ThirdPartyRepository struct {
	pool *pgxpool.Pool
}

// NewThirdParty creates a ThirdPartyRepository.
func NewThirdParty(pool *pgxpool.Pool) *ThirdPartyRepository {
	return &ThirdPartyRepository{pool: pool}
}

// ─── API users ──────────────────────────────────────────────────────────────

func (r *ThirdPartyRepository) CreateUser(ctx context.Context, u *domain.ApiUser) (*domain.ApiUser, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO api_users (user_id, name, status, created_date)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, name, status, created_date
	`, u.UserID, u.Name, string(u.Status), u.CreatedDate)
	return scanApiUser(row)
}

func (r *ThirdPartyRepository) GetUser(ctx context.Context, id uuid.UUID) (*domain.ApiUser, error) {
	row := r.pool.QueryRow(ctx, `SELECT user_id, name, status, created_date FROM api_users WHERE user_id = $1`, id)
	return scanApiUser(row)
}

func (r *ThirdPartyRepository) ListUsers(ctx context.Context) ([]*domain.ApiUser, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, name, status, created_date FROM api_users ORDER BY created_date`)
	if err != nil {
		return nil, fmt.Errorf("list api users: %w", err)
	}
	defer rows.Close()

	var users []*domain.ApiUser
	for rows.Next() {
		u, err := scanApiUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *ThirdPartyRepository) UpdateUserStatus(ctx context.Context, id uuid.UUID, status domain.ApiUserStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE api_users SET status = $1 WHERE user_id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update api user status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteUser relies on ON DELETE CASCADE for the configuration and subscriptions.
func (r *ThirdPartyRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM api_users WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete api user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanApiUser(row scannable) (*domain.ApiUser, error) {
	var (
		u      domain.ApiUser
		status string
	)
	if err := row.Scan(&u.UserID, &u.Name, &status, &u.CreatedDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan api user: %w", err)
	}
	u.Status = domain.ApiUserStatus(status)
	return &u, nil
}

// ─── OAuth configuration ────────────────────────────────────────────────────

const configColumns = `user_id, destination_url, token_url, client_id_key, client_secret_key, scope_key,
	created_date, last_updated_date`

func (r *ThirdPartyRepository) GetConfiguration(ctx context.Context, userID uuid.UUID) (*domain.ApiOauthConfiguration, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+configColumns+` FROM api_oauth_configurations WHERE user_id = $1`, userID)
	return scanConfiguration(row)
}

func (r *ThirdPartyRepository) CreateConfiguration(ctx context.Context, c *domain.ApiOauthConfiguration) (*domain.ApiOauthConfiguration, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO api_oauth_configurations (`+configColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+configColumns,
		c.UserID, c.DestinationURL, c.TokenURL, c.ClientIDKey, c.ClientSecretKey, c.ScopeKey,
		c.CreatedDate, c.LastUpdatedDate,
	)
	saved, err := scanConfiguration(row)
	if err != nil && isUniqueViolation(err) {
		return nil, domain.ErrDuplicate
	}
	return saved, err
}

func (r *ThirdPartyRepository) UpdateConfiguration(ctx context.Context, c *domain.ApiOauthConfiguration) (*domain.ApiOauthConfiguration, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE api_oauth_configurations
		SET destination_url = $2, token_url = $3, client_id_key = $4, client_secret_key = $5,
		    scope_key = $6, last_updated_date = $7
		WHERE user_id = $1
		RETURNING `+configColumns,
		c.UserID, c.DestinationURL, c.TokenURL, c.ClientIDKey, c.ClientSecretKey, c.ScopeKey, c.LastUpdatedDate,
	)
	return scanConfiguration(row)
}

func scanConfiguration(row scannable) (*domain.ApiOauthConfiguration, error) {
	var c domain.ApiOauthConfiguration
	err := row.Scan(&c.UserID, &c.DestinationURL, &c.TokenURL, &c.ClientIDKey, &c.ClientSecretKey, &c.ScopeKey,
		&c.CreatedDate, &c.LastUpdatedDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan oauth configuration: %w", err)
	}
	return &c, nil
}

// ─── Subscriptions ──────────────────────────────────────────────────────────

func (r *ThirdPartyRepository) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]*domain.ApiSubscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, list_type, sensitivity, search_criteria, created_date
		FROM api_subscriptions WHERE user_id = $1 ORDER BY created_date, list_type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.ApiSubscription
	for rows.Next() {
		var (
			s           domain.ApiSubscription
			sensitivity string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.ListType, &sensitivity, &s.SearchCriteria, &s.CreatedDate); err != nil {
			return nil, fmt.Errorf("scan api subscription: %w", err)
		}
		s.Sensitivity = domain.Sensitivity(sensitivity)
		subs = append(subs, &s)
	}
	return subs, rows.Err()
}

func (r *ThirdPartyRepository) CreateSubscriptions(ctx context.Context, userID uuid.UUID, subs []*domain.ApiSubscription) ([]*domain.ApiSubscription, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return insertSubscriptions(ctx, tx, userID, subs)
	})
	if err != nil {
		return nil, fmt.Errorf("create api subscriptions: %w", err)
	}
	return subs, nil
}

// ReplaceSubscriptions swaps the whole set inside one transaction.
func (r *ThirdPartyRepository) ReplaceSubscriptions(ctx context.Context, userID uuid.UUID, subs []*domain.ApiSubscription) ([]*domain.ApiSubscription, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM api_subscriptions WHERE user_id = $1`, userID); err != nil {
			return err
		}
		return insertSubscriptions(ctx, tx, userID, subs)
	})
	if err != nil {
		return nil, fmt.Errorf("replace api subscriptions: %w", err)
	}
	return subs, nil
}

func insertSubscriptions(ctx context.Context, tx pgx.Tx, userID uuid.UUID, subs []*domain.ApiSubscription) error {
	if len(subs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range subs {
		batch.Queue(`
			INSERT INTO api_subscriptions (id, user_id, list_type, sensitivity, search_criteria, created_date)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, s.ID, userID, s.ListType, string(s.Sensitivity), s.SearchCriteria, s.CreatedDate)
	}
	return tx.SendBatch(ctx, batch).Close()
}
