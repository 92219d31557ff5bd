package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vn.io.arda/account/internal/domain"
)

// AdminPolicy is the default PolicyService: only internal system admins may
// manage third-party integrations.
type AdminPolicy struct {
	accounts domain.AccountRepository
}

// NewAdminPolicy creates an AdminPolicy.
func NewAdminPolicy(accounts domain.AccountRepository) *AdminPolicy {
	return &AdminPolicy{accounts: accounts}
}

// CanManage looks the requester up on every call.
func (p *AdminPolicy) CanManage(ctx context.Context, requesterID string) (bool, error) {
	id, err := uuid.Parse(requesterID)
	if err != nil {
		return false, nil
	}

	identity, err := p.accounts.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load requester %s: %w", id, err)
	}

	return identity.Role == domain.RoleSystemAdmin &&
		identity.Provenance == domain.ProvenanceInternalSSO, nil
}
