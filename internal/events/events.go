package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/rs/zerolog/log"
)

// Student change actions
const (
	ActionCreated   = "created"
	ActionAllocated = "allocated"
	ActionRefreshed = "refreshed"
)

// EventPayload describes a change to the local student list.
type EventPayload struct {
	Action       string    `json:"action"`
	StudentID    string    `json:"studentId,omitempty"`
	AllocatedMan string    `json:"allocatedMan,omitempty"`
	Count        int       `json:"count,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Notifier receives student change events.
type Notifier interface {
	Notify(event EventPayload) error
	Close()
}

// EventPublisher publishes events to a Pulsar topic.
type EventPublisher struct {
	client   pulsar.Client
	producer pulsar.Producer
}

// NewEventPublisher initializes the Pulsar client and producer.
func NewEventPublisher(pulsarURL, topic string) (*EventPublisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: pulsarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar producer: %w", err)
	}

	log.Info().Str("topic", topic).Msg("Pulsar client and producer initialized successfully")
	return &EventPublisher{client: client, producer: producer}, nil
}

// Notify publishes an event without waiting for the broker. Send failures are logged.
func (p *EventPublisher) Notify(event EventPayload) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not serialize event payload: %w", err)
	}

	p.producer.SendAsync(context.Background(), &pulsar.ProducerMessage{
		Payload: message,
		Key:     event.StudentID,
	}, func(_ pulsar.MessageID, _ *pulsar.ProducerMessage, err error) {
		if err != nil {
			log.Error().Err(err).Str("action", event.Action).Msg("could not send event to Pulsar")
			return
		}
		log.Debug().RawJSON("event", message).Msg("Event sent to Pulsar")
	})
	return nil
}

// Close flushes pending events and closes the Pulsar client and producer.
func (p *EventPublisher) Close() {
	if err := p.producer.Flush(); err != nil {
		log.Warn().Err(err).Msg("could not flush Pulsar producer")
	}
	p.producer.Close()
	p.client.Close()
	log.Info().Msg("Pulsar client and producer closed successfully")
}
