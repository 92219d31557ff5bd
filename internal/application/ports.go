package application

import (
	"context"

	"vn.io.arda/account/internal/messages"
)

// IdentityProvider manages remote identities held by the external identity provider.
// The default implementation calls the Keycloak Admin REST API.
type IdentityProvider interface {
	// CreateUser registers a remote identity and returns its provider-side id.
	CreateUser(ctx context.Context, email, firstName, surname string) (string, error)

	// DeleteUser removes the remote identity registered under email.
	// Deleting an identity that does not exist is not an error.
	DeleteUser(ctx context.Context, email string) error
}

// NotificationDispatcher hands a templated message to the notification pipeline.
// Delivery is asynchronous; a returned error means the request was not accepted.
type NotificationDispatcher interface {
	Send(ctx context.Context, email string, template messages.Template, args map[string]string) error
}

// PolicyService decides whether a principal may manage third-party configuration.
type PolicyService interface {
	CanManage(ctx context.Context, requesterID string) (bool, error)
}
