package adapters

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hr_backoffice/internal/events"
)

type recordingRecorder struct {
	mu     sync.Mutex
	events []events.IdentityCreated
	causes []error
}

func (r *recordingRecorder) RecordUndelivered(_ context.Context, evt events.IdentityCreated, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	r.causes = append(r.causes, cause)
	return nil
}

func TestIdentityDeadLetterRecordsExhaustedIdentityEvents(t *testing.T) {
	recorder := &recordingRecorder{}
	dl := NewIdentityDeadLetter(recorder, nil)

	bus := events.NewInMemoryBus(nil, 1,
		events.WithRetry(2, time.Millisecond, time.Millisecond),
		events.WithDeadLetter(dl.Receive),
	)
	bus.Subscribe(events.IdentityCreatedName, events.HandlerFunc(func(context.Context, events.Event) error {
		return errors.New("database unavailable")
	}))
	bus.Subscribe(events.IdentityLinkConflict{}.EventName(), events.HandlerFunc(func(context.Context, events.Event) error {
		return errors.New("smtp unavailable")
	}))

	evt := events.NewIdentityCreated("acme", "kc-1", 42, "a@b.com")
	if err := bus.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(context.Background(), events.IdentityLinkConflict{BaseEvent: events.NewBaseEvent(), TenantID: "acme", EmployeeID: 42}); err != nil {
		t.Fatalf("publish conflict: %v", err)
	}
	if err := bus.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if len(recorder.events) != 1 {
		t.Fatalf("expected only the identity event recorded, got %d", len(recorder.events))
	}
	if recorder.events[0].EventID != evt.EventID {
		t.Fatalf("expected event %s recorded, got %s", evt.EventID, recorder.events[0].EventID)
	}
	if recorder.causes[0] == nil {
		t.Fatal("expected the handler error as cause")
	}
}
