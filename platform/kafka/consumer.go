package kafka

import (
	"context"
	"errors"
	"time"

	"hr_backoffice/platform/logger"

	skafka "github.com/segmentio/kafka-go"
)

// ErrSkip tells the consumer a message can never be processed. The offset is
// committed and the message is dropped instead of retried.
var ErrSkip = errors.New("kafka: skip message")

// Reader defines the subset of segmentio kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (skafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Handler processes one message. Returning nil commits the offset.
type Handler func(ctx context.Context, msg skafka.Message) error

// Consumer reads a topic inside a consumer group with at-least-once semantics.
type Consumer struct {
	reader         Reader
	log            *logger.Logger
	processTimeout time.Duration
	retryBackoff   time.Duration
	maxBackoff     time.Duration
}

// NewConsumer creates a group consumer for topic.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	r := skafka.NewReader(skafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewConsumerWithReader(r, log)
}

// NewConsumerWithReader allows injecting a test reader.
func NewConsumerWithReader(r Reader, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Discard()
	}
	return &Consumer{
		reader:         r,
		log:            log,
		processTimeout: 10 * time.Second,
		retryBackoff:   200 * time.Millisecond,
		maxBackoff:     10 * time.Second,
	}
}

// Run fetches and handles messages until ctx is cancelled. A failed message
// is retried in place with backoff before the next one is fetched, so the
// order of messages on a partition is never broken by a transient failure.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("kafka fetch failed", "error", err)
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}

		if !c.process(ctx, msg, handler) {
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("kafka commit failed", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}

// process returns false when ctx ended before the message was settled.
func (c *Consumer) process(ctx context.Context, msg skafka.Message, handler Handler) bool {
	backoff := c.retryBackoff
	for attempt := 1; ; attempt++ {
		processCtx, cancel := context.WithTimeout(ctx, c.processTimeout)
		err := handler(processCtx, msg)
		cancel()

		switch {
		case err == nil:
			return true
		case errors.Is(err, ErrSkip):
			c.log.Warn("kafka message skipped", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			return true
		}

		c.log.Error("kafka message processing failed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"error", err,
		)
		if !sleepCtx(ctx, backoff) {
			return false
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

// Close disconnects from the brokers.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
