package kafka

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"vn.io.arda/account/internal/domain"
	"vn.io.arda/account/internal/kafka/registry"

	// Blank import triggers init() in each handler file,
	// registering all event handlers into the registry.
	_ "vn.io.arda/account/internal/kafka/handlers"
)

// EventHandler applies a decoded account event.
type EventHandler interface {
	HandleEvent(ctx context.Context, evt domain.AccountEvent) error
}

// Consumer wraps the franz-go Kafka client.
type Consumer struct {
	client  *kgo.Client
	handler EventHandler
}

// NewConsumer creates a Consumer with the given brokers, group ID, and topics.
func NewConsumer(brokers []string, groupID string, topics []string, handler EventHandler) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client, handler: handler}, nil
}

// Start begins polling Kafka and processing records. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	log.Info().Msg("kafka consumer started")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("kafka fetch error")
		})

		fetches.EachRecord(func(r *kgo.Record) {
			process(ctx, c.handler, r)
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Error().Err(err).Msg("kafka commit error")
		}
	}

	c.client.Close()
	log.Info().Msg("kafka consumer stopped")
}

// process decodes a record through the registry and applies it. Failures are
// logged and the offset still advances; timestamps are refreshed by the next event.
func process(ctx context.Context, handler EventHandler, r *kgo.Record) {
	log.Debug().
		Str("topic", r.Topic).
		Str("key", string(r.Key)).
		Msg("processing kafka record")

	evt := registry.Dispatch(r.Topic, r.Value)
	if evt == nil {
		log.Debug().Str("topic", r.Topic).Msg("no handler matched, skipping")
		return
	}

	if err := handler.HandleEvent(ctx, *evt); err != nil {
		log.Error().Err(err).
			Str("topic", r.Topic).
			Str("event_type", string(evt.Type)).
			Str("event_id", evt.EventID).
			Str("user_id", evt.UserID.String()).
			Msg("failed to apply account event")
	}
}
