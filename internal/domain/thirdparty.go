package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApiUserStatus is the lifecycle state of a third-party API consumer.
type ApiUserStatus string

const (
	ApiUserPending   ApiUserStatus = "PENDING"
	ApiUserActive    ApiUserStatus = "ACTIVE"
	ApiUserSuspended ApiUserStatus = "SUSPENDED"
)

// IsKnown reports whether s is a declared status.
func (s ApiUserStatus) IsKnown() bool {
	switch s {
	case ApiUserPending, ApiUserActive, ApiUserSuspended:
		return true
	default:
		return false
	}
}

// ApiUser is a third-party API consumer. It owns at most one OAuth configuration
// and any number of subscriptions, all keyed by UserID.
type ApiUser struct {
	UserID      uuid.UUID     `json:"userId"`
	Name        string        `json:"name"`
	Status      ApiUserStatus `json:"status"`
	CreatedDate time.Time     `json:"createdDate"`
}

// ApiOauthConfiguration holds the outbound push settings for an ApiUser.
// Key fields name secrets held elsewhere, never the secret values.
type ApiOauthConfiguration struct {
	UserID          uuid.UUID `json:"userId"`
	DestinationURL  string    `json:"destinationUrl"`
	TokenURL        string    `json:"tokenUrl"`
	ClientIDKey     string    `json:"clientIdKey"`
	ClientSecretKey string    `json:"clientSecretKey"`
	ScopeKey        string    `json:"scopeKey"`
	CreatedDate     time.Time `json:"createdDate"`
	LastUpdatedDate time.Time `json:"lastUpdatedDate"`
}

// Sensitivity is the classification level of a publication list.
type Sensitivity string

const (
	SensitivityPublic     Sensitivity = "PUBLIC"
	SensitivityPrivate    Sensitivity = "PRIVATE"
	SensitivityClassified Sensitivity = "CLASSIFIED"
)

// ApiSubscription is one list type an ApiUser receives.
type ApiSubscription struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"userId"`
	ListType       string      `json:"listType"`
	Sensitivity    Sensitivity `json:"sensitivity"`
	SearchCriteria string      `json:"searchCriteria,omitempty"`
	CreatedDate    time.Time   `json:"createdDate"`
}
