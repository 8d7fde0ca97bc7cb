// Package events provides event bus infrastructure for decoupled,
// event-driven communication between modules.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"errors"
	"time"
)

// ErrPublication marks an event that could not be handed to the transport.
// It never means the work that produced the event failed.
var ErrPublication = errors.New("event publication failed")

// Event is the base interface all domain events must implement.
type Event interface {
	// EventName returns a unique identifier for the event type.
	EventName() string
	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time
}

// Keyed events are delivered in publish order relative to other events with
// the same partition key. Events with different keys have no relative order.
type Keyed interface {
	PartitionKey() string
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Timestamp time.Time `json:"occurredAt"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent creates a new base event with the current timestamp.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow ordinary functions to be used as handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Publisher hands events to a transport. Publish returns once the event is
// enqueued; it does not wait for handlers. A non-nil error wraps
// ErrPublication.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus is a Publisher that also dispatches to in-process subscribers.
type Bus interface {
	Publisher

	// Subscribe registers a handler for a specific event type.
	// The eventName should match the value returned by Event.EventName().
	Subscribe(eventName string, handler Handler)
}
