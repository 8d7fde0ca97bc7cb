package events

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	key string
	seq int
}

func (testEvent) EventName() string      { return "test.event" }
func (e testEvent) PartitionKey() string { return e.key }

func TestInMemoryBusPreservesOrderPerKey(t *testing.T) {
	bus := NewInMemoryBus(nil, 4)

	var mu sync.Mutex
	seen := map[string][]int{}
	bus.Subscribe("test.event", HandlerFunc(func(_ context.Context, e Event) error {
		te := e.(testEvent)
		// Give other lanes a chance to interleave.
		time.Sleep(time.Microsecond)
		mu.Lock()
		seen[te.key] = append(seen[te.key], te.seq)
		mu.Unlock()
		return nil
	}))

	const perKey = 200
	keys := []string{"77", "78", "79", "80", "81"}
	for i := 0; i < perKey; i++ {
		for _, k := range keys {
			if err := bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), key: k, seq: i}); err != nil {
				t.Fatalf("publish: %v", err)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bus.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	for _, k := range keys {
		got := seen[k]
		if len(got) != perKey {
			t.Fatalf("key %s: expected %d events, got %d", k, perKey, len(got))
		}
		for i, seq := range got {
			if seq != i {
				t.Fatalf("key %s: event %d observed at position %d", k, seq, i)
			}
		}
	}
}

func TestInMemoryBusRetriesFailedHandlerBeforeNextEvent(t *testing.T) {
	bus := NewInMemoryBus(nil, 1, WithRetry(3, time.Millisecond, time.Millisecond))

	var mu sync.Mutex
	var handled []string
	failures := map[string]int{"42": 2}
	bus.Subscribe("test.event", HandlerFunc(func(_ context.Context, e Event) error {
		te := e.(testEvent)
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, te.key)
		if failures[te.key] > 0 {
			failures[te.key]--
			return errors.New("connection reset by peer")
		}
		return nil
	}))

	for _, k := range []string{"42", "43"} {
		if err := bus.Publish(context.Background(), testEvent{key: k}); err != nil {
			t.Fatalf("publish %s: %v", k, err)
		}
	}
	if err := bus.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	want := []string{"42", "42", "42", "43"}
	if len(handled) != len(want) {
		t.Fatalf("expected %v, got %v", want, handled)
	}
	for i := range want {
		if handled[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, handled)
		}
	}
}

func TestInMemoryBusDeadLettersExhaustedEvents(t *testing.T) {
	var mu sync.Mutex
	var dead []string
	var causes []error
	bus := NewInMemoryBus(nil, 1,
		WithRetry(2, time.Millisecond, time.Millisecond),
		WithDeadLetter(func(_ context.Context, e Event, err error) {
			mu.Lock()
			defer mu.Unlock()
			dead = append(dead, e.(testEvent).key)
			causes = append(causes, err)
		}),
	)

	calls := 0
	bus.Subscribe("test.event", HandlerFunc(func(_ context.Context, e Event) error {
		calls++
		switch e.(testEvent).key {
		case "bad":
			return errors.New("handler failed")
		case "panic":
			panic("handler panicked")
		}
		return nil
	}))

	for _, k := range []string{"bad", "panic", "good"} {
		if err := bus.Publish(context.Background(), testEvent{key: k}); err != nil {
			t.Fatalf("publish %s: %v", k, err)
		}
	}
	if err := bus.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if calls != 5 {
		t.Fatalf("expected 5 handler calls, got %d", calls)
	}
	if len(dead) != 2 || dead[0] != "bad" || dead[1] != "panic" {
		t.Fatalf("expected bad and panic dead lettered, got %v", dead)
	}
	if causes[0] == nil || causes[1] == nil {
		t.Fatalf("expected causes for dead letters, got %v", causes)
	}
}

func TestInMemoryBusShutdownTimeoutAbortsRetries(t *testing.T) {
	dead := make(chan string, 1)
	bus := NewInMemoryBus(nil, 1,
		WithRetry(100, time.Hour, time.Hour),
		WithDeadLetter(func(_ context.Context, e Event, _ error) {
			dead <- e.(testEvent).key
		}),
	)
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		return errors.New("database unavailable")
	}))

	if err := bus.Publish(context.Background(), testEvent{key: "77"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := bus.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	select {
	case key := <-dead:
		if key != "77" {
			t.Fatalf("expected event 77 dead lettered, got %s", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retrying event was not dead lettered after shutdown timeout")
	}
}

func TestInMemoryBusPublishAfterShutdown(t *testing.T) {
	bus := NewInMemoryBus(nil, 2)
	if err := bus.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	err := bus.Publish(context.Background(), testEvent{key: strconv.Itoa(1)})
	if !errors.Is(err, ErrPublication) {
		t.Fatalf("expected ErrPublication, got %v", err)
	}
	if !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed in chain, got %v", err)
	}
}
