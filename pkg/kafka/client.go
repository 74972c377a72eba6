// Package kafka publishes domain events to Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"beatmarket/internal/config"
	"beatmarket/pkg/events"
	"beatmarket/pkg/log"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer used by Producer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes keyed by aggregate id.
type Producer struct {
	writer messageWriter
}

// NewProducer creates a producer for the configured topic.
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka producer initialized")
	return &Producer{writer: w}
}

// Publish sends one event. Messages with the same key land on the same partition.
func (p *Producer) Publish(ctx context.Context, eventType, key string, payload interface{}) error {
	body, err := json.Marshal(events.Envelope{
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write %s event: %w", eventType, err)
	}
	return nil
}

// Close flushes pending messages.
func (p *Producer) Close() error {
	return p.writer.Close()
}
