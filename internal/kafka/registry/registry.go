// Package registry provides a lightweight event handler registry for Kafka events.
// Each handler registers itself via init(), so the consumer never changes when a
// new event type is added.
package registry

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"vn.io.arda/account/internal/domain"
)

// EventHandler maps raw Kafka message bytes to an AccountEvent.
// Returning nil means "skip this event".
type EventHandler func(data []byte) *domain.AccountEvent

var handlers = map[string]EventHandler{}

// Register binds a handler to a {topic}:{eventType} key.
// Panics on duplicate registration to catch wiring mistakes early.
func Register(topic, eventType string, h EventHandler) {
	key := topic + ":" + eventType
	if _, exists := handlers[key]; exists {
		panic("registry: duplicate handler registered for key: " + key)
	}
	handlers[key] = h
}

// Dispatch looks up and calls the handler for the given topic and the
// "eventType" field of data. Returns nil if nothing matched or data is not JSON.
func Dispatch(topic string, data []byte) *domain.AccountEvent {
	var envelope struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Warn().Str("topic", topic).Err(err).Msg("registry: failed to read eventType")
		return nil
	}

	key := topic + ":" + envelope.EventType
	h, ok := handlers[key]
	if !ok {
		log.Debug().Str("key", key).Msg("registry: no handler registered")
		return nil
	}
	return h(data)
}

// Registered reports whether a handler exists for topic and eventType.
func Registered(topic, eventType string) bool {
	_, ok := handlers[topic+":"+eventType]
	return ok
}
