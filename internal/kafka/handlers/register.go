// Package handlers registers the account-event decoders with the registry.
// Importing it for side effects is enough to wire every handler.
package handlers

import (
	"vn.io.arda/account/internal/kafka/registry"
)

// AccountEventsTopic carries sign-in and verification events published by the
// identity systems.
const AccountEventsTopic = "account-events"

// Register is a convenience alias so each handler file calls Register(...)
// instead of registry.Register(...).
func Register(topic, eventType string, h registry.EventHandler) {
	registry.Register(topic, eventType, h)
}
