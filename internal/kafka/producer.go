package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"vn.io.arda/account/internal/messages"
)

// NotificationsTopic is consumed by the notification pipeline that renders and
// delivers reminder emails.
const NotificationsTopic = "account-notifications"

// NotificationCommand is the message published for each reminder.
type NotificationCommand struct {
	CommandID string            `json:"commandId"`
	Template  messages.Template `json:"template"`
	Subject   string            `json:"subject"`
	Email     string            `json:"email"`
	Args      map[string]string `json:"args"`
}

type syncProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Producer implements application.NotificationDispatcher on top of franz-go.
type Producer struct {
	client syncProducer
	topic  string
	closer func()
}

// NewProducer creates a Producer publishing to topic.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, err
	}
	return &Producer{client: client, topic: topic, closer: client.Close}, nil
}

// Send publishes one notification command and waits for the broker ack.
func (p *Producer) Send(ctx context.Context, email string, template messages.Template, args map[string]string) error {
	cmd := NotificationCommand{
		CommandID: uuid.NewString(),
		Template:  template,
		Subject:   messages.Subject(template),
		Email:     email,
		Args:      args,
	}
	value, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode notification command: %w", err)
	}

	record := &kgo.Record{Topic: p.topic, Key: []byte(email), Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	log.Debug().
		Str("command_id", cmd.CommandID).
		Str("template", string(template)).
		Msg("notification command published")
	return nil
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() {
	if p.closer != nil {
		p.closer()
	}
}
