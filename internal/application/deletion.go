package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vn.io.arda/account/internal/domain"
	"vn.io.arda/account/internal/metrics"
)

// DeletionOutcome reports which parts of an account's footprint were removed.
type DeletionOutcome struct {
	UserID               uuid.UUID `json:"userId"`
	AlreadyAbsent        bool      `json:"alreadyAbsent"`
	ProviderDeleted      bool      `json:"providerDeleted"`
	ProviderError        string    `json:"providerError,omitempty"`
	LocalDeleted         bool      `json:"localDeleted"`
	SubscriptionsDeleted int64     `json:"subscriptionsDeleted"`
}

// DeletionOrchestrator removes an account from the identity provider, the local
// account store and the subscription store, strictly in that order.
//
// A failed identity-provider delete is logged and local cleanup continues, so a
// divergent provider record never blocks retries. Whether the provider delete
// should instead be retried later is still open; see DESIGN.md.
type DeletionOrchestrator struct {
	accounts      domain.AccountRepository
	subscriptions domain.SubscriptionStore
	provider      IdentityProvider
	metrics       metrics.Recorder
}

// NewDeletionOrchestrator creates a DeletionOrchestrator.
func NewDeletionOrchestrator(
	accounts domain.AccountRepository,
	subscriptions domain.SubscriptionStore,
	provider IdentityProvider,
	rec metrics.Recorder,
) *DeletionOrchestrator {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &DeletionOrchestrator{
		accounts:      accounts,
		subscriptions: subscriptions,
		provider:      provider,
		metrics:       rec,
	}
}

// DeleteAccount is idempotent: calling it for an account that is already gone
// sweeps any leftover subscriptions and returns AlreadyAbsent with a nil error.
func (o *DeletionOrchestrator) DeleteAccount(ctx context.Context, userID uuid.UUID) (DeletionOutcome, error) {
	out := DeletionOutcome{UserID: userID}

	identity, err := o.accounts.FindByID(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		out.AlreadyAbsent = true
	case err != nil:
		return out, fmt.Errorf("load account %s: %w", userID, err)
	}

	// 1. Identity provider
	if identity != nil && identity.Provenance.HasProviderRecord() {
		if err := o.provider.DeleteUser(ctx, identity.Email); err != nil {
			o.metrics.RecordProviderDeleteFailure()
			out.ProviderError = err.Error()
			log.Warn().Err(err).
				Str("user_id", userID.String()).
				Str("provenance", string(identity.Provenance)).
				Msg("identity provider delete failed, continuing with local cleanup")
		} else {
			out.ProviderDeleted = true
		}
	}

	// 2. Local account row
	if identity != nil {
		deleted, err := o.accounts.Delete(ctx, userID)
		if err != nil {
			return out, fmt.Errorf("delete account %s: %w", userID, err)
		}
		out.LocalDeleted = deleted
		out.AlreadyAbsent = !deleted
	}

	// 3. Subscriptions
	n, err := o.subscriptions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("delete subscriptions for %s: %w", userID, err)
	}
	out.SubscriptionsDeleted = n

	log.Info().
		Str("user_id", userID.String()).
		Bool("already_absent", out.AlreadyAbsent).
		Bool("provider_deleted", out.ProviderDeleted).
		Int64("subscriptions_deleted", n).
		Msg("account deleted")

	return out, nil
}
