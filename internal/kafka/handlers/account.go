package handlers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vn.io.arda/account/internal/domain"
)

func init() {
	Register(AccountEventsTopic, string(domain.EventSignedIn), handleSignedIn)
	Register(AccountEventsTopic, string(domain.EventMediaVerified), handleMediaVerified)
}

type accountEnv struct {
	EventType  string    `json:"eventType"`
	EventID    string    `json:"eventId"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    struct {
		UserID string `json:"userId"`
	} `json:"payload"`
}

func parseAccountEnv(data []byte, want domain.AccountEventType) *domain.AccountEvent {
	var env accountEnv
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("event_type", string(want)).Msg("malformed account event")
		return nil
	}
	userID, err := uuid.Parse(env.Payload.UserID)
	if err != nil {
		log.Warn().Str("event_id", env.EventID).Str("user_id", env.Payload.UserID).Msg("account event without valid userId")
		return nil
	}
	return &domain.AccountEvent{
		Type:       want,
		UserID:     userID,
		OccurredAt: env.OccurredAt,
		EventID:    env.EventID,
	}
}

func handleSignedIn(data []byte) *domain.AccountEvent {
	return parseAccountEnv(data, domain.EventSignedIn)
}

func handleMediaVerified(data []byte) *domain.AccountEvent {
	return parseAccountEnv(data, domain.EventMediaVerified)
}
