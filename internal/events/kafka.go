package events

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka brokers; empty disables event publishing"`
	Topic   string   `default:"storefront.events" usage:"Kafka topic for domain events"`
}

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages to a single topic, keyed by
// Event.Key and tagged with the event type header.
type KafkaPublisher struct {
	w MessageWriter
}

// NewKafkaWriter returns a writer balancing by message key.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher wraps a message writer.
func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return errors.Wrapf(err, "marshal %s event", e.Type)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(e.Key),
			Value:   value,
			Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type)}},
			Time:    e.OccurredAt,
		})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "write messages")
	}
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
