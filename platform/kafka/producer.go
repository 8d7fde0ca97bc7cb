// Package kafka adapts segmentio/kafka-go to the event publisher port.
// This is part of the platform layer and contains no business logic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"hr_backoffice/platform/events"
	"hr_backoffice/platform/logger"

	skafka "github.com/segmentio/kafka-go"
)

// HeaderEventName carries Event.EventName() on every produced message.
const HeaderEventName = "event-name"

// EventName returns the event-name header of msg, if present.
func EventName(msg skafka.Message) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == HeaderEventName {
			return string(h.Value), true
		}
	}
	return "", false
}

// Writer defines the subset of segmentio kafka.Writer we need. This makes the producer testable.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Producer publishes domain events as JSON messages. Keyed events use their
// partition key as message key, so the hash balancer routes every event of
// one key to one partition and the broker keeps them in order.
type Producer struct {
	writer Writer
	log    *logger.Logger
}

var _ events.Publisher = (*Producer)(nil)

// NewProducer creates a producer writing to topic on brokers.
func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	w := &skafka.Writer{
		Addr:         skafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		RequiredAcks: skafka.RequireAll,
	}
	return NewProducerWithWriter(w, log)
}

// NewProducerWithWriter allows injecting a test writer.
func NewProducerWithWriter(w Writer, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.Discard()
	}
	return &Producer{writer: w, log: log}
}

// Publish marshals the event to JSON and writes it synchronously.
func (p *Producer) Publish(ctx context.Context, event events.Event) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", events.ErrPublication)
	}

	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %w", events.ErrPublication, event.EventName(), err)
	}

	msg := skafka.Message{
		Value:   b,
		Headers: []skafka.Header{{Key: HeaderEventName, Value: []byte(event.EventName())}},
	}
	if keyed, ok := event.(events.Keyed); ok {
		msg.Key = []byte(keyed.PartitionKey())
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("kafka write failed", "event", event.EventName(), "error", err)
		return fmt.Errorf("%w: write %s: %w", events.ErrPublication, event.EventName(), err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
