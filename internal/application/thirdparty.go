package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"vn.io.arda/account/internal/domain"
)

// ThirdPartyGate asks the policy collaborator, on every call, whether a requester
// may manage third-party users, configurations and subscriptions. The HTTP layer
// also puts admission, deletion and manual sweeps behind it.
type ThirdPartyGate struct {
	policy PolicyService
}

// NewThirdPartyGate creates a ThirdPartyGate.
func NewThirdPartyGate(policy PolicyService) *ThirdPartyGate {
	return &ThirdPartyGate{policy: policy}
}

// Authorize returns domain.ErrForbidden when the policy denies requesterID.
// Results are never cached; each guarded request must call Authorize itself.
func (g *ThirdPartyGate) Authorize(ctx context.Context, requesterID string) error {
	ok, err := g.policy.CanManage(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("policy check: %w", err)
	}
	if !ok {
		log.Info().Str("requester", requesterID).Msg("management request denied")
		return domain.ErrForbidden
	}
	return nil
}

// ThirdPartyService holds the third-party user, OAuth configuration and
// subscription use-cases. Every method authorizes before touching the store.
type ThirdPartyService struct {
	gate      *ThirdPartyGate
	repo      domain.ThirdPartyRepository
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewThirdPartyService creates a ThirdPartyService.
func NewThirdPartyService(gate *ThirdPartyGate, repo domain.ThirdPartyRepository) *ThirdPartyService {
	return &ThirdPartyService{
		gate:      gate,
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// --- API users ---

// CreateUser registers a new ApiUser in PENDING status.
func (s *ThirdPartyService) CreateUser(ctx context.Context, requesterID, name string) (*domain.ApiUser, error) {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(s.sanitizer.Sanitize(name))
	if err := validation.Validate(name, validation.Required, validation.Length(1, 255)); err != nil {
		return nil, fmt.Errorf("name: %v: %w", err, domain.ErrValidation)
	}

	user, err := s.repo.CreateUser(ctx, &domain.ApiUser{
		UserID:      uuid.New(),
		Name:        name,
		Status:      domain.ApiUserPending,
		CreatedDate: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create third-party user: %w", err)
	}

	log.Info().Str("requester", requesterID).Str("api_user", user.UserID.String()).Msg("third-party user created")
	return user, nil
}

// GetUser returns one ApiUser.
func (s *ThirdPartyService) GetUser(ctx context.Context, requesterID string, userID uuid.UUID) (*domain.ApiUser, error) {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.repo.GetUser(ctx, userID)
}

// ListUsers returns every ApiUser.
func (s *ThirdPartyService) ListUsers(ctx context.Context, requesterID string) ([]*domain.ApiUser, error) {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

// UpdateUserStatus moves an ApiUser to status.
func (s *ThirdPartyService) UpdateUserStatus(ctx context.Context, requesterID string, userID uuid.UUID, status domain.ApiUserStatus) error {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return err
	}
	if !status.IsKnown() {
		return fmt.Errorf("status %q: %w", status, domain.ErrValidation)
	}
	if err := s.repo.UpdateUserStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("update third-party user status: %w", err)
	}
	return nil
}

// DeleteUser removes an ApiUser with its configuration and subscriptions.
func (s *ThirdPartyService) DeleteUser(ctx context.Context, requesterID string, userID uuid.UUID) error {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete third-party user: %w", err)
	}
	log.Info().Str("requester", requesterID).Str("api_user", userID.String()).Msg("third-party user deleted")
	return nil
}

// --- OAuth configuration ---

// ConfigurationInput is the mutable part of an ApiOauthConfiguration.
type ConfigurationInput struct {
	DestinationURL  string `json:"destinationUrl"`
	TokenURL        string `json:"tokenUrl"`
	ClientIDKey     string `json:"clientIdKey"`
	ClientSecretKey string `json:"clientSecretKey"`
	ScopeKey        string `json:"scopeKey"`
}

// Validate checks the configuration shape.
func (in ConfigurationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.DestinationURL, validation.Required, is.URL),
		validation.Field(&in.TokenURL, validation.Required, is.URL),
		validation.Field(&in.ClientIDKey, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.ClientSecretKey, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.ScopeKey, validation.Required, validation.Length(1, 255)),
	)
}

// CreateConfiguration attaches the OAuth configuration to an existing ApiUser.
func (s *ThirdPartyService) CreateConfiguration(ctx context.Context, requesterID string, userID uuid.UUID, in ConfigurationInput) (*domain.ApiOauthConfiguration, error) {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return s.repo.CreateConfiguration(ctx, &domain.ApiOauthConfiguration{
		UserID:          userID,
		DestinationURL:  in.DestinationURL,
		TokenURL:        in.TokenURL,
		ClientIDKey:     in.ClientIDKey,
		ClientSecretKey: in.ClientSecretKey,
		ScopeKey:        in.ScopeKey,
		CreatedDate:     now,
		LastUpdatedDate: now,
	})
}

// GetConfiguration returns the ApiUser's OAuth configuration.
func (s *ThirdPartyService) GetConfiguration(ctx context.Context, requesterID string, userID uuid.UUID) (*domain.ApiOauthConfiguration, error) {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.repo.GetConfiguration(ctx, userID)
}

// UpdateConfiguration overwrites the ApiUser's OAuth configuration.
func (s *ThirdPartyService) UpdateConfiguration(ctx context.Context, requesterID string, userID uuid.UUID, in ConfigurationInput) (*domain.ApiOauthConfiguration, error) {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}

	existing, err := s.repo.GetConfiguration(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing.DestinationURL = in.DestinationURL
	existing.TokenURL = in.TokenURL
	existing.ClientIDKey = in.ClientIDKey
	existing.ClientSecretKey = in.ClientSecretKey
	existing.ScopeKey = in.ScopeKey
	existing.LastUpdatedDate = s.now().UTC()

	return s.repo.UpdateConfiguration(ctx, existing)
}

// --- Subscriptions ---

// SubscriptionInput is one requested list subscription.
type SubscriptionInput struct {
	ListType       string             `json:"listType"`
	Sensitivity    domain.Sensitivity `json:"sensitivity"`
	SearchCriteria string             `json:"searchCriteria"`
}

// Validate checks the subscription shape.
func (in SubscriptionInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ListType, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Sensitivity, validation.Required, validation.In(
			domain.SensitivityPublic, domain.SensitivityPrivate, domain.SensitivityClassified,
		)),
	)
}

// CreateSubscriptions adds subscriptions to an existing ApiUser.
func (s *ThirdPartyService) CreateSubscriptions(ctx context.Context, requesterID string, userID uuid.UUID, in []SubscriptionInput) ([]*domain.ApiSubscription, error) {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	subs, err := s.buildSubscriptions(userID, in)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.CreateSubscriptions(ctx, userID, subs)
}

// GetSubscriptions lists an ApiUser's subscriptions.
func (s *ThirdPartyService) GetSubscriptions(ctx context.Context, requesterID string, userID uuid.UUID) ([]*domain.ApiSubscription, error) {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.repo.ListSubscriptions(ctx, userID)
}

// UpdateSubscriptions replaces an ApiUser's whole subscription set.
func (s *ThirdPartyService) UpdateSubscriptions(ctx context.Context, requesterID string, userID uuid.UUID, in []SubscriptionInput) ([]*domain.ApiSubscription, error) {
	if err := s.gate.Authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	subs, err := s.buildSubscriptions(userID, in)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ReplaceSubscriptions(ctx, userID, subs)
}

func (s *ThirdPartyService) buildSubscriptions(userID uuid.UUID, in []SubscriptionInput) ([]*domain.ApiSubscription, error) {
	for i, sub := range in {
		if err := sub.Validate(); err != nil {
			return nil, fmt.Errorf("subscription %d: %v: %w", i, err, domain.ErrValidation)
		}
	}
	now := s.now().UTC()
	return lo.Map(in, func(sub SubscriptionInput, _ int) *domain.ApiSubscription {
		return &domain.ApiSubscription{
			ID:             uuid.New(),
			UserID:         userID,
			ListType:       sub.ListType,
			Sensitivity:    sub.Sensitivity,
			SearchCriteria: sub.SearchCriteria,
			CreatedDate:    now,
		}
	}), nil
}
