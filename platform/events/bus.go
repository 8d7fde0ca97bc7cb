package events

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"hr_backoffice/platform/logger"
)

const (
	laneBuffer        = 256
	defaultAttempts   = 6
	defaultBackoff    = 200 * time.Millisecond
	defaultMaxBackoff = 5 * time.Second
	handlerTimeout    = 30 * time.Second
)

// ErrBusClosed is returned by Publish after Shutdown.
var ErrBusClosed = errors.New("event bus closed")

type envelope struct {
	event Event
}

// DeadLetterFunc receives an event a handler still failed after every retry.
type DeadLetterFunc func(ctx context.Context, event Event, err error)

// BusOption configures an InMemoryBus.
type BusOption func(*InMemoryBus)

// WithRetry sets how often a failing handler is invoked and the backoff
// between attempts. The backoff doubles up to maxBackoff.
func WithRetry(attempts int, backoff, maxBackoff time.Duration) BusOption {
	return func(b *InMemoryBus) {
		if attempts > 0 {
			b.attempts = attempts
		}
		if backoff > 0 {
			b.backoff = backoff
		}
		if maxBackoff > 0 {
			b.maxBackoff = maxBackoff
		}
	}
}

// WithDeadLetter sets the receiver of undeliverable events.
func WithDeadLetter(fn DeadLetterFunc) BusOption {
	return func(b *InMemoryBus) {
		b.deadLetter = fn
	}
}

// InMemoryBus dispatches events to in-process handlers on a fixed set of
// serial lanes. Keyed events always land on the same lane, so events sharing a
// partition key are handled one at a time in publish order.
//
// A failing handler is retried in place on its lane, which holds back later
// events with the same key. Once attempts run out the event goes to the dead
// letter receiver.
type InMemoryBus struct {
	log        *logger.Logger
	lanes      []chan envelope
	next       atomic.Uint64
	mu         sync.RWMutex
	handlers   map[string][]Handler
	closeMu    sync.RWMutex
	closed     bool
	wg         sync.WaitGroup
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
	deadLetter DeadLetterFunc
	dlMu       sync.RWMutex
	abort      chan struct{}
	abortOnce  sync.Once
}

var _ Bus = (*InMemoryBus)(nil)

// NewInMemoryBus starts a bus with the given number of lanes (at least one).
func NewInMemoryBus(log *logger.Logger, lanes int, opts ...BusOption) *InMemoryBus {
	if lanes < 1 {
		lanes = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	b := &InMemoryBus{
		log:        log,
		lanes:      make([]chan envelope, lanes),
		handlers:   make(map[string][]Handler),
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
		abort:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	for i := range b.lanes {
		b.lanes[i] = make(chan envelope, laneBuffer)
		b.wg.Add(1)
		go b.run(b.lanes[i])
	}
	return b
}

// Subscribe registers a handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// SetDeadLetter replaces the dead letter receiver. The composition root uses it
// when the receiver depends on modules built after the bus.
func (b *InMemoryBus) SetDeadLetter(fn DeadLetterFunc) {
	b.dlMu.Lock()
	defer b.dlMu.Unlock()
	b.deadLetter = fn
}

// Publish enqueues event on its lane. It blocks only while the lane buffer is
// full, and gives up when ctx is done.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", ErrPublication)
	}

	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return fmt.Errorf("%w: %s: %w", ErrPublication, event.EventName(), ErrBusClosed)
	}

	lane := b.lanes[b.laneFor(event)]
	select {
	case lane <- envelope{event: event}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", ErrPublication, event.EventName(), ctx.Err())
	}
}

// Shutdown stops accepting events and waits for queued ones to be handled.
// When ctx ends first, pending retries stop and their events are dead
// lettered.
func (b *InMemoryBus) Shutdown(ctx context.Context) error {
	b.closeMu.Lock()
	if !b.closed {
		b.closed = true
		for _, lane := range b.lanes {
			close(lane)
		}
	}
	b.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.abortOnce.Do(func() { close(b.abort) })
		return ctx.Err()
	}
}

func (b *InMemoryBus) laneFor(event Event) int {
	if keyed, ok := event.(Keyed); ok {
		h := fnv.New32a()
		_, _ = h.Write([]byte(event.EventName()))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(keyed.PartitionKey()))
		return int(h.Sum32() % uint32(len(b.lanes)))
	}
	return int(b.next.Add(1) % uint64(len(b.lanes)))
}

func (b *InMemoryBus) run(lane <-chan envelope) {
	defer b.wg.Done()
	for env := range lane {
		b.dispatch(env.event)
	}
}

// dispatch runs handlers on a fresh context: request-scoped values such as the
// tenant do not cross the async boundary.
func (b *InMemoryBus) dispatch(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(h, event)
	}
}

func (b *InMemoryBus) invoke(h Handler, event Event) {
	backoff := b.backoff
	var err error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		if err = b.call(h, event); err == nil {
			return
		}
		b.log.Error("event handler failed",
			"event", event.EventName(),
			"attempt", attempt,
			"error", err,
		)
		if attempt == b.attempts || !b.wait(backoff) {
			break
		}
		backoff = min(backoff*2, b.maxBackoff)
	}
	b.deliverDeadLetter(event, err)
}

func (b *InMemoryBus) call(h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	return h.Handle(ctx, event)
}

// wait returns false when the bus was told to abort retries.
func (b *InMemoryBus) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-b.abort:
		return false
	case <-t.C:
		return true
	}
}

func (b *InMemoryBus) deliverDeadLetter(event Event, err error) {
	b.dlMu.RLock()
	fn := b.deadLetter
	b.dlMu.RUnlock()

	if fn == nil {
		b.log.Error("event dropped after retries", "event", event.EventName(), "error", err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("dead letter receiver panicked", "event", event.EventName(), "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	fn(ctx, event, err)
}
