package registry_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/account/internal/domain"
	"vn.io.arda/account/internal/kafka/registry"
)

func makeJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func TestRegisterAndDispatch(t *testing.T) {
	id := uuid.New()
	called := false
	registry.Register("test-topic", "TEST_EVENT", func(data []byte) *domain.AccountEvent {
		called = true
		return &domain.AccountEvent{Type: domain.EventSignedIn, UserID: id}
	})

	result := registry.Dispatch("test-topic", makeJSON(map[string]string{
		"eventType": "TEST_EVENT",
	}))

	assert.True(t, called)
	require.NotNil(t, result)
	assert.Equal(t, id, result.UserID)
	assert.True(t, registry.Registered("test-topic", "TEST_EVENT"))
}

func TestDispatch_UnknownEvent_ReturnsNil(t *testing.T) {
	result := registry.Dispatch("test-topic", makeJSON(map[string]string{
		"eventType": "UNKNOWN_EVENT_XYZ",
	}))
	assert.Nil(t, result)
}

func TestDispatch_InvalidJSON_ReturnsNil(t *testing.T) {
	assert.Nil(t, registry.Dispatch("test-topic", []byte("not json")))
}

func TestRegister_DuplicatePanics(t *testing.T) {
	registry.Register("dupe-topic", "DUPE_EVENT", func(_ []byte) *domain.AccountEvent { return nil })
	assert.Panics(t, func() {
		registry.Register("dupe-topic", "DUPE_EVENT", func(_ []byte) *domain.AccountEvent { return nil })
	})
}
