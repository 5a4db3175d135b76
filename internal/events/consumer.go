package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/rs/zerolog/log"
)

// MaxDeliveries is how often an event is redelivered before it is
// moved to the dead letter topic.
const MaxDeliveries = 3

// EventConsumer tails the student change topic.
type EventConsumer struct {
	client   pulsar.Client
	consumer pulsar.Consumer
}

// Handler processes one decoded student event.
type Handler func(ctx context.Context, event EventPayload) error

// NewEventConsumer subscribes to the student change topic. Each subscription
// gets its own dead letter topic so two dashboards tailing the same topic
// don't share rejected events.
func NewEventConsumer(pulsarURL, topic, subscription string) (*EventConsumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: pulsarURL})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscription,
		Type:             pulsar.Shared,
		DLQ: &pulsar.DLQPolicy{
			MaxDeliveries:   MaxDeliveries,
			DeadLetterTopic: DeadLetterTopic(topic, subscription),
		},
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not subscribe %q to %s: %w", subscription, topic, err)
	}

	return &EventConsumer{client: client, consumer: consumer}, nil
}

// DeadLetterTopic names the topic undeliverable student events end up in.
func DeadLetterTopic(topic, subscription string) string {
	return fmt.Sprintf("%s-%s-dlq", topic, subscription)
}

// Run receives events and passes them to handle until ctx is cancelled.
// Undecodable payloads and handler failures are nacked for redelivery.
func (c *EventConsumer) Run(ctx context.Context, handle Handler) {
	for {
		msg, err := c.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("Error receiving student event")
			continue
		}

		event, err := Decode(msg.Payload())
		if err != nil {
			log.Error().Err(err).Str("payload", string(msg.Payload())).Msg("Error decoding student event")
			c.consumer.Nack(msg)
			continue
		}

		if err := handle(ctx, event); err != nil {
			log.Error().Err(err).Str("action", event.Action).Str("student_id", event.StudentID).Msg("Error handling student event")
			c.consumer.Nack(msg)
			continue
		}
		if err := c.consumer.Ack(msg); err != nil {
			log.Warn().Err(err).Msg("Error acknowledging student event")
		}
	}
}

// Decode parses a message payload into an EventPayload.
func Decode(payload []byte) (EventPayload, error) {
	var event EventPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("could not decode event payload: %w", err)
	}
	switch event.Action {
	case ActionCreated, ActionAllocated, ActionRefreshed:
	case "":
		return event, errors.New("event payload has no action")
	default:
		return event, fmt.Errorf("unknown event action %q", event.Action)
	}
	return event, nil
}

// Close cleans up the Pulsar consumer and client.
func (c *EventConsumer) Close() {
	c.consumer.Close()
	c.client.Close()
}
