package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"vn.io.arda/account/internal/domain"
)

const uniqueViolation = "23505"

const accountColumns = `user_id, user_provenance, provenance_user_id, roles, email, title, forenames, surname,
	created_date, last_verified_date, last_signed_in_date`

// Repository is the PostgreSQL implementation of domain.AccountRepository.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New creates a new postgres Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

// Ping checks the pool can reach the database.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// FindByID fetches a single account.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, id)
	return scanIdentity(row)
}

// FindByEmailAndProvenance matches email case-insensitively.
func (r *Repository) FindByEmailAndProvenance(ctx context.Context, email string, provenance domain.Provenance) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE LOWER(email) = LOWER($1) AND user_provenance = $2
	`, email, string(provenance))
	return scanIdentity(row)
}

func (r *Repository) FindByProvenanceUserID(ctx context.Context, provenance domain.Provenance, provenanceUserID string) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE user_provenance = $1 AND provenance_user_id = $2
	`, string(provenance), provenanceUserID)
	return scanIdentity(row)
}

func (r *Repository) FindByRole(ctx context.Context, role domain.Role) ([]*domain.Identity, error) {
	return r.queryIdentities(ctx, "find by role", `
		SELECT `+accountColumns+` FROM accounts WHERE roles = $1 ORDER BY created_date
	`, string(role))
}

func (r *Repository) CountByRoleAndProvenance(ctx context.Context, role domain.Role, provenance domain.Provenance) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE roles = $1 AND user_provenance = $2`,
		string(role), string(provenance),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

// Create inserts a new account. A clash on (lower(email), provenance) is ErrDuplicate.
func (r *Repository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (user_id, user_provenance, provenance_user_id, roles, email, title, forenames, surname,
			created_date, last_verified_date, last_signed_in_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+accountColumns,
		identity.UserID, string(identity.Provenance), identity.ProvenanceUserID, string(identity.Role),
		identity.Email, identity.Title, identity.Forenames, identity.Surname,
		identity.CreatedDate, identity.LastVerifiedDate, identity.LastSignedInDate,
	)

	saved, err := scanIdentity(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return saved, nil
}

// Delete removes an account and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) UpdateLastVerifiedDate(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.touch(ctx, "last_verified_date", id, at)
}

func (r *Repository) UpdateLastSignedInDate(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.touch(ctx, "last_signed_in_date", id, at)
}

// touch sets one of the dormancy timestamp columns. column is never user input.
func (r *Repository) touch(ctx context.Context, column string, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE accounts SET %s = $1 WHERE user_id = $2`, column), at, id)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ─── Dormancy projections ───────────────────────────────────────────────────
// An account is selected once its timestamp is at or before now minus the
// threshold, i.e. its age is at least that many days. NULL timestamps never match.

func (r *Repository) cutoff(days int) time.Time {
	return r.now().UTC().AddDate(0, 0, -days)
}

func (r *Repository) MediaForVerificationReminder(ctx context.Context, days int) ([]*domain.Identity, error) {
	return r.mediaByVerificationAge(ctx, "media verification reminder", days)
}

func (r *Repository) MediaForDeletion(ctx context.Context, days int) ([]*domain.Identity, error) {
	return r.mediaByVerificationAge(ctx, "media deletion", days)
}

func (r *Repository) mediaByVerificationAge(ctx context.Context, op string, days int) ([]*domain.Identity, error) {
	return r.queryIdentities(ctx, op, `
		SELECT `+accountColumns+` FROM accounts
		WHERE roles = $1 AND last_verified_date <= $2
		ORDER BY last_verified_date
	`, string(domain.RoleVerifiedMedia), r.cutoff(days))
}

func (r *Repository) CourtSystemsForSignInReminder(ctx context.Context, daysA, daysB int) ([]*domain.Identity, error) {
	return r.queryIdentities(ctx, "sign-in reminder", `
		SELECT `+accountColumns+` FROM accounts
		WHERE (user_provenance = $1 AND last_signed_in_date <= $2)
		   OR (user_provenance = $3 AND last_signed_in_date <= $4)
		ORDER BY last_signed_in_date
	`, string(domain.ProvenanceCourtSystemA), r.cutoff(daysA),
		string(domain.ProvenanceCourtSystemB), r.cutoff(daysB))
}

func (r *Repository) AdminsForDeletion(ctx context.Context, aadDays, ssoDays int) ([]*domain.Identity, error) {
	roles := lo.Map(domain.AdminRoles(), func(role domain.Role, _ int) string { return string(role) })
	return r.queryIdentities(ctx, "admin deletion", `
		SELECT `+accountColumns+` FROM accounts
		WHERE roles = ANY($1)
		  AND ((user_provenance = $2 AND last_signed_in_date <= $3)
		    OR (user_provenance = $4 AND last_signed_in_date <= $5))
		ORDER BY last_signed_in_date
	`, roles,
		string(domain.ProvenanceExternalIdP), r.cutoff(aadDays),
		string(domain.ProvenanceInternalSSO), r.cutoff(ssoDays))
}

func (r *Repository) CourtSystemAForDeletion(ctx context.Context, days int) ([]*domain.Identity, error) {
	return r.byProvenanceSignInAge(ctx, "court system A deletion", domain.ProvenanceCourtSystemA, days)
}

func (r *Repository) CourtSystemBForDeletion(ctx context.Context, days int) ([]*domain.Identity, error) {
	return r.byProvenanceSignInAge(ctx, "court system B deletion", domain.ProvenanceCourtSystemB, days)
}

func (r *Repository) byProvenanceSignInAge(ctx context.Context, op string, provenance domain.Provenance, days int) ([]*domain.Identity, error) {
	return r.queryIdentities(ctx, op, `
		SELECT `+accountColumns+` FROM accounts
		WHERE user_provenance = $1 AND last_signed_in_date <= $2
		ORDER BY last_signed_in_date
	`, string(provenance), r.cutoff(days))
}

func (r *Repository) queryIdentities(ctx context.Context, op, query string, args ...any) ([]*domain.Identity, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var results []*domain.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return results, nil
}

// scannable is satisfied by pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanIdentity(row scannable) (*domain.Identity, error) {
	var (
		i          domain.Identity
		provenance string
		role       string
	)
	err := row.Scan(
		&i.UserID, &provenance, &i.ProvenanceUserID, &role, &i.Email, &i.Title, &i.Forenames, &i.Surname,
		&i.CreatedDate, &i.LastVerifiedDate, &i.LastSignedInDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	i.Provenance = domain.Provenance(provenance)
	i.Role = domain.Role(role)
	return &i, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
