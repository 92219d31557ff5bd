package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vn.io.arda/account/internal/domain"
)

// CreatedAccount pairs a created account with its position in the request.
type CreatedAccount struct {
	Index  int       `json:"index"`
	UserID uuid.UUID `json:"userId"`
}

// ErroredAccount is a rejected account with the reason it was rejected.
type ErroredAccount struct {
	Index   int                 `json:"index"`
	Account domain.AccountInput `json:"account"`
	Reasons []string            `json:"errorMessages"`
}

// CreateAccountsResult reports the outcome for every submitted account.
type CreateAccountsResult struct {
	Created []CreatedAccount `json:"created"`
	Errored []ErroredAccount `json:"errored"`
}

// AccountService holds the general account use-cases.
type AccountService struct {
	repo     domain.AccountRepository
	provider IdentityProvider
	now      func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(repo domain.AccountRepository, provider IdentityProvider) *AccountService {
	return &AccountService{repo: repo, provider: provider, now: time.Now}
}

// ValidateRoleProvenance reports whether role may be held by an identity of provenance.
// Unknown enumeration values are rejected with ErrValidation before the rule runs.
func (s *AccountService) ValidateRoleProvenance(rawRole, rawProvenance string) (bool, error) {
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return false, fmt.Errorf("unknown role %q: %w", rawRole, domain.ErrValidation)
	}
	prov, ok := domain.ParseProvenance(rawProvenance)
	if !ok {
		return false, fmt.Errorf("unknown provenance %q: %w", rawProvenance, domain.ErrValidation)
	}
	return domain.ValidRoleProvenance(role, prov), nil
}

// ValidateName reports whether the title/firstName/surname combination is allowed.
func (s *AccountService) ValidateName(title, firstName, surname string) bool {
	return domain.ValidNameCombination(title, firstName, surname)
}

// CreateAccounts creates each account independently. A rejected account is
// reported in Errored and never prevents its siblings from being created.
func (s *AccountService) CreateAccounts(ctx context.Context, issuerID string, inputs []domain.AccountInput) (CreateAccountsResult, error) {
	result := CreateAccountsResult{
		Created: make([]CreatedAccount, 0, len(inputs)),
		Errored: make([]ErroredAccount, 0),
	}

	for i, in := range inputs {
		in = normaliseAccountInput(in)

		if reasons := validateAccountInput(in); len(reasons) > 0 {
			result.Errored = append(result.Errored, ErroredAccount{Index: i, Account: in, Reasons: reasons})
			continue
		}

		identity, err := s.createOne(ctx, in)
		switch {
		case errors.Is(err, domain.ErrDuplicate):
			result.Errored = append(result.Errored, ErroredAccount{
				Index: i, Account: in, Reasons: []string{"account already exists with this email and provenance"},
			})
			continue
		case err != nil:
			// Store and provider outages abort the batch; already created accounts stay.
			return result, fmt.Errorf("create account %d: %w", i, err)
		}
		result.Created = append(result.Created, CreatedAccount{Index: i, UserID: identity.UserID})
	}

	log.Info().
		Str("issuer", issuerID).
		Int("created", len(result.Created)).
		Int("errored", len(result.Errored)).
		Msg("accounts created")

	return result, nil
}

func (s *AccountService) createOne(ctx context.Context, in domain.AccountInput) (*domain.Identity, error) {
	existing, err := s.repo.FindByEmailAndProvenance(ctx, in.Email, in.Provenance)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	provenanceUserID := in.ProvenanceUserID
	if in.Provenance.HasProviderRecord() {
		remoteID, err := s.provider.CreateUser(ctx, in.Email, in.Forenames, in.Surname)
		if err != nil {
			return nil, fmt.Errorf("create identity provider user: %w", err)
		}
		provenanceUserID = remoteID
	}

	now := s.now().UTC()
	identity := &domain.Identity{
		UserID:           uuid.New(),
		Provenance:       in.Provenance,
		ProvenanceUserID: provenanceUserID,
		Role:             in.Role,
		Email:            in.Email,
		Title:            in.Title,
		Forenames:        in.Forenames,
		Surname:          in.Surname,
		CreatedDate:      now,
	}
	switch {
	case in.Role == domain.RoleVerifiedMedia:
		identity.LastVerifiedDate = &now
	case in.Provenance != domain.ProvenanceThirdParty:
		identity.LastSignedInDate = &now
	}

	return s.repo.Create(ctx, identity)
}

func normaliseAccountInput(in domain.AccountInput) domain.AccountInput {
	in.Email = strings.TrimSpace(in.Email)
	in.ProvenanceUserID = strings.TrimSpace(in.ProvenanceUserID)
	in.Title = strings.TrimSpace(in.Title)
	in.Forenames = strings.TrimSpace(in.Forenames)
	in.Surname = strings.TrimSpace(in.Surname)
	return in
}

func validateAccountInput(in domain.AccountInput) []string {
	var reasons []string

	// Provider-backed accounts get their provenance user id from the provider.
	provenanceUserIDRules := []validation.Rule{validation.Length(0, 255)}
	if !in.Provenance.HasProviderRecord() {
		provenanceUserIDRules = append(provenanceUserIDRules, validation.Required)
	}

	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(1, 255), is.Email),
		validation.Field(&in.ProvenanceUserID, provenanceUserIDRules...),
		validation.Field(&in.Title, validation.Length(0, 50)),
		validation.Field(&in.Forenames, validation.Length(0, 255)),
		validation.Field(&in.Surname, validation.Length(0, 255)),
	)
	for _, fe := range fieldErrors(err) {
		reasons = append(reasons, fe.Field+": "+fe.Message)
	}

	switch {
	case !in.Role.IsKnown():
		reasons = append(reasons, fmt.Sprintf("unknown role %q", in.Role))
	case !in.Provenance.IsKnown():
		reasons = append(reasons, fmt.Sprintf("unknown provenance %q", in.Provenance))
	case !domain.ValidRoleProvenance(in.Role, in.Provenance):
		reasons = append(reasons, fmt.Sprintf("role %s is not allowed for provenance %s", in.Role, in.Provenance))
	}

	if !domain.ValidNameCombination(in.Title, in.Forenames, in.Surname) {
		reasons = append(reasons, "invalid combination of title, first name and surname")
	}
	return reasons
}

// GetAccount returns the identity with id, or ErrNotFound.
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	return s.repo.FindByID(ctx, id)
}

// ListByRole returns every identity holding rawRole.
func (s *AccountService) ListByRole(ctx context.Context, rawRole string) ([]*domain.Identity, error) {
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return nil, fmt.Errorf("unknown role %q: %w", rawRole, domain.ErrValidation)
	}
	identities, err := s.repo.FindByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list accounts by role %s: %w", role, err)
	}
	return identities, nil
}

// GetByProvenance returns the identity issued by provenance under provenanceUserID.
func (s *AccountService) GetByProvenance(ctx context.Context, provenance domain.Provenance, provenanceUserID string) (*domain.Identity, error) {
	if !provenance.IsKnown() {
		return nil, fmt.Errorf("unknown provenance %q: %w", provenance, domain.ErrValidation)
	}
	return s.repo.FindByProvenanceUserID(ctx, provenance, provenanceUserID)
}

// RecordSignIn stamps the identity's last sign-in time.
func (s *AccountService) RecordSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	if at.IsZero() {
		at = s.now()
	}
	if err := s.repo.UpdateLastSignedInDate(ctx, id, at.UTC()); err != nil {
		return fmt.Errorf("record sign-in for %s: %w", id, err)
	}
	return nil
}

// RecordVerification stamps the identity's last media verification time.
// Only verified media accounts carry a verification date.
func (s *AccountService) RecordVerification(ctx context.Context, id uuid.UUID, at time.Time) error {
	identity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if identity.Role != domain.RoleVerifiedMedia {
		return fmt.Errorf("account %s has role %s, not %s: %w", id, identity.Role, domain.RoleVerifiedMedia, domain.ErrValidation)
	}
	if at.IsZero() {
		at = s.now()
	}
	if err := s.repo.UpdateLastVerifiedDate(ctx, id, at.UTC()); err != nil {
		return fmt.Errorf("record verification for %s: %w", id, err)
	}
	return nil
}

// HandleEvent applies an account event consumed from the event stream.
// Events for accounts that no longer exist are dropped.
func (s *AccountService) HandleEvent(ctx context.Context, evt domain.AccountEvent) error {
	var err error
	switch evt.Type {
	case domain.EventSignedIn:
		err = s.RecordSignIn(ctx, evt.UserID, evt.OccurredAt)
	case domain.EventMediaVerified:
		err = s.RecordVerification(ctx, evt.UserID, evt.OccurredAt)
	default:
		return fmt.Errorf("unknown account event type %q", evt.Type)
	}

	if errors.Is(err, domain.ErrNotFound) {
		log.Warn().
			Str("event_id", evt.EventID).
			Str("user_id", evt.UserID.String()).
			Msg("account event for missing account, dropping")
		return nil
	}
	return err
}
