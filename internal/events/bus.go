// Package events re-exports the platform event bus for convenience.
// This allows internal modules to import events from internal/events
// while the implementation lives in platform/events.
package events

import (
	platformevents "hr_backoffice/platform/events"
	"hr_backoffice/platform/logger"
)

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = platformevents.InMemoryBus

// DeadLetterFunc and BusOption alias the platform bus configuration types.
type (
	DeadLetterFunc = platformevents.DeadLetterFunc
	BusOption      = platformevents.BusOption
)

var (
	WithRetry      = platformevents.WithRetry
	WithDeadLetter = platformevents.WithDeadLetter
)

// ErrPublication is the platform publication failure sentinel.
var ErrPublication = platformevents.ErrPublication

// NewInMemoryBus creates a new in-memory event bus with the given number of
// serial lanes.
func NewInMemoryBus(log *logger.Logger, lanes int, opts ...BusOption) *InMemoryBus {
	return platformevents.NewInMemoryBus(log, lanes, opts...)
}
