package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/kafka"
)

// DefaultDomainEventTopic receives every published domain event
const DefaultDomainEventTopic = "eventhub.domain-events"

// Publisher emits domain events after a write has committed
type Publisher interface {
	// Publish sends one event. Callers log the error and never fail the write on it.
	Publish(ctx context.Context, event *domain.DomainEvent) error
	// Close releases the underlying client
	Close() error
}

// Producer is the subset of *kafka.Producer used here
type Producer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
}

// KafkaPublisher implements Publisher using Kafka
type KafkaPublisher struct {
	producer Producer
	topic    string
	source   string
	closer   func()
}

// Config contains configuration for the Kafka publisher
type Config struct {
	Topic  string
	Source string
}

// NewKafkaPublisher creates a publisher over an existing producer. The producer is
// closed with the publisher when it is a *kafka.Producer.
func NewKafkaPublisher(producer Producer, cfg *Config) *KafkaPublisher {
	p := &KafkaPublisher{producer: producer, topic: DefaultDomainEventTopic, source: "eventhub"}
	if cfg != nil {
		if cfg.Topic != "" {
			p.topic = cfg.Topic
		}
		if cfg.Source != "" {
			p.source = cfg.Source
		}
	}
	if kp, ok := producer.(*kafka.Producer); ok {
		p.closer = kp.Close
	}
	return p
}

// Publish keys the record by aggregate id so one aggregate stays ordered within a partition
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.DomainEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: map[string]string{
			"event_type":   string(event.Type),
			"event_id":     event.ID,
			"source":       p.source,
			"content_type": "application/json",
		},
	}
	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close closes the producer if this publisher owns it
func (p *KafkaPublisher) Close() error {
	if p.closer != nil {
		p.closer()
	}
	return nil
}

// NoOpPublisher drops every event
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (p *NoOpPublisher) Publish(ctx context.Context, event *domain.DomainEvent) error {
	return nil
}

func (p *NoOpPublisher) Close() error {
	return nil
}
