package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountRepository defines the port for identity persistence.
// Implementations live in infrastructure/postgres.
type AccountRepository interface {
	// FindByID returns ErrNotFound when no identity has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*Identity, error)

	// FindByEmailAndProvenance returns ErrNotFound when no identity matches.
	FindByEmailAndProvenance(ctx context.Context, email string, provenance Provenance) (*Identity, error)

	// FindByProvenanceUserID looks an identity up by its id in the issuing system.
	FindByProvenanceUserID(ctx context.Context, provenance Provenance, provenanceUserID string) (*Identity, error)

	// FindByRole lists identities holding role.
	FindByRole(ctx context.Context, role Role) ([]*Identity, error)

	// CountByRoleAndProvenance counts identities with both role and provenance.
	CountByRoleAndProvenance(ctx context.Context, role Role, provenance Provenance) (int, error)

	// Create persists a new identity. A uniqueness violation on (email, provenance)
	// is reported as ErrDuplicate.
	Create(ctx context.Context, identity *Identity) (*Identity, error)

	// Delete removes an identity and reports whether a row existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// UpdateLastVerifiedDate sets last_verified_date. Returns ErrNotFound if absent.
	UpdateLastVerifiedDate(ctx context.Context, id uuid.UUID, at time.Time) error

	// UpdateLastSignedInDate sets last_signed_in_date. Returns ErrNotFound if absent.
	UpdateLastSignedInDate(ctx context.Context, id uuid.UUID, at time.Time) error

	// --- dormancy projections ---

	// MediaForVerificationReminder lists verified media identities whose last
	// verification is at least days old.
	MediaForVerificationReminder(ctx context.Context, days int) ([]*Identity, error)

	// MediaForDeletion lists verified media identities whose last verification
	// is at least days old.
	MediaForDeletion(ctx context.Context, days int) ([]*Identity, error)

	// CourtSystemsForSignInReminder lists court-system identities whose last sign-in
	// is at least daysA (court system A) or daysB (court system B) old.
	CourtSystemsForSignInReminder(ctx context.Context, daysA, daysB int) ([]*Identity, error)

	// AdminsForDeletion lists admin identities whose last sign-in is at least
	// aadDays (external IdP provenance) or ssoDays (internal SSO provenance) old.
	AdminsForDeletion(ctx context.Context, aadDays, ssoDays int) ([]*Identity, error)

	// CourtSystemAForDeletion lists court system A identities idle for at least days.
	CourtSystemAForDeletion(ctx context.Context, days int) ([]*Identity, error)

	// CourtSystemBForDeletion lists court system B identities idle for at least days.
	CourtSystemBForDeletion(ctx context.Context, days int) ([]*Identity, error)
}

// SubscriptionStore owns the media subscriptions attached to an identity.
type SubscriptionStore interface {
	// DeleteAllForUser removes every subscription of userID and returns how many
	// were removed. Zero is not an error.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ThirdPartyRepository defines the port for the third-party aggregate.
type ThirdPartyRepository interface {
	CreateUser(ctx context.Context, user *ApiUser) (*ApiUser, error)
	GetUser(ctx context.Context, id uuid.UUID) (*ApiUser, error)
	ListUsers(ctx context.Context) ([]*ApiUser, error)
	UpdateUserStatus(ctx context.Context, id uuid.UUID, status ApiUserStatus) error
	// DeleteUser removes the user together with its configuration and subscriptions.
	DeleteUser(ctx context.Context, id uuid.UUID) error

	GetConfiguration(ctx context.Context, userID uuid.UUID) (*ApiOauthConfiguration, error)
	// CreateConfiguration returns ErrDuplicate if the user already has one.
	CreateConfiguration(ctx context.Context, cfg *ApiOauthConfiguration) (*ApiOauthConfiguration, error)
	UpdateConfiguration(ctx context.Context, cfg *ApiOauthConfiguration) (*ApiOauthConfiguration, error)

	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]*ApiSubscription, error)
	CreateSubscriptions(ctx context.Context, userID uuid.UUID, subs []*ApiSubscription) ([]*ApiSubscription, error)
	// ReplaceSubscriptions atomically swaps the user's subscription set.
	ReplaceSubscriptions(ctx context.Context, userID uuid.UUID, subs []*ApiSubscription) ([]*ApiSubscription, error)
}
