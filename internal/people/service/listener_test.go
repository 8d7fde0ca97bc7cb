package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"hr_backoffice/internal/access"
	"hr_backoffice/internal/events"
	"hr_backoffice/internal/people/repository"
	"hr_backoffice/platform/kafka"
	"hr_backoffice/platform/tenancy"

	skafka "github.com/segmentio/kafka-go"
)

func TestListenerReestablishesTenantFromEvent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedEmployee(repo, 42, 5)
	listener := NewIdentityListener(svc, nil)

	// No tenant in the consumer context: the listener must scope by the event.
	if err := listener.Handle(context.Background(), identityEvent("kc-1", 42)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), "acme", 42)
	if stored.ExternalIdentityID == nil || *stored.ExternalIdentityID != "kc-1" {
		t.Fatalf("expected kc-1 linked, got %v", stored.ExternalIdentityID)
	}
	if _, ok := tenancy.TenantID(context.Background()); ok {
		t.Fatal("tenant must not leak into the caller context")
	}
}

func TestListenerKafkaMessages(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedEmployee(repo, 42, 5)
	listener := NewIdentityListener(svc, nil)

	raw, err := json.Marshal(identityEvent("kc-1", 42))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := listener.HandleMessage(context.Background(), skafka.Message{Value: raw}); err != nil {
		t.Fatalf("valid message: %v", err)
	}
	if err := listener.HandleMessage(context.Background(), skafka.Message{Value: raw}); err != nil {
		t.Fatalf("redelivered message must succeed, got %v", err)
	}

	conflict, _ := json.Marshal(identityEvent("kc-2", 42))
	if err := listener.HandleMessage(context.Background(), skafka.Message{Value: conflict}); !errors.Is(err, kafka.ErrSkip) {
		t.Fatalf("conflict must be skipped after reporting, got %v", err)
	}

	if err := listener.HandleMessage(context.Background(), skafka.Message{Value: []byte("{")}); !errors.Is(err, kafka.ErrSkip) {
		t.Fatalf("garbage must be skipped, got %v", err)
	}

	missing, _ := json.Marshal(events.IdentityCreated{EmployeeID: 42})
	if err := listener.HandleMessage(context.Background(), skafka.Message{Value: missing}); !errors.Is(err, kafka.ErrSkip) {
		t.Fatalf("invalid payload must be skipped, got %v", err)
	}

	unknown, _ := json.Marshal(identityEvent("kc-9", 999))
	if err := listener.HandleMessage(context.Background(), skafka.Message{Value: unknown}); !errors.Is(err, kafka.ErrSkip) {
		t.Fatalf("unknown employee must be skipped, got %v", err)
	}
}

func TestListenerSkipsMessagesNamedAsOtherEvents(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedEmployee(repo, 42, 5)
	listener := NewIdentityListener(svc, nil)

	raw, _ := json.Marshal(identityEvent("kc-1", 42))
	foreign := skafka.Message{
		Value:   raw,
		Headers: []skafka.Header{{Key: kafka.HeaderEventName, Value: []byte("people.identity_link.conflict")}},
	}
	if err := listener.HandleMessage(context.Background(), foreign); !errors.Is(err, kafka.ErrSkip) {
		t.Fatalf("foreign event must be skipped, got %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), "acme", 42)
	if stored.ExternalIdentityID != nil {
		t.Fatalf("foreign event must not link, got %v", *stored.ExternalIdentityID)
	}

	named := skafka.Message{
		Value:   raw,
		Headers: []skafka.Header{{Key: kafka.HeaderEventName, Value: []byte(events.IdentityCreatedName)}},
	}
	if err := listener.HandleMessage(context.Background(), named); err != nil {
		t.Fatalf("named identity event: %v", err)
	}
	stored, _ = repo.GetByID(context.Background(), "acme", 42)
	if stored.ExternalIdentityID == nil || *stored.ExternalIdentityID != "kc-1" {
		t.Fatalf("expected kc-1 linked, got %v", stored.ExternalIdentityID)
	}
}

type flakyLinkRepo struct {
	*repository.Memory
	mu       sync.Mutex
	failures int
}

func (r *flakyLinkRepo) LinkIdentity(ctx context.Context, tenantID string, employeeID int64, identityID string, linkedAt time.Time) (repository.LinkResult, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return repository.LinkResult{}, errors.New("connection reset by peer")
	}
	r.mu.Unlock()
	return r.Memory.LinkIdentity(ctx, tenantID, employeeID, identityID, linkedAt)
}

func TestListenerTransientFailureIsRedeliveredOnBus(t *testing.T) {
	repo := &flakyLinkRepo{Memory: repository.NewMemory(), failures: 1}
	seedEmployee(repo.Memory, 42, 5)
	svc := New(repo, access.NewValidator(nil), &recordingPublisher{}, nil, nil, "BR")

	bus := events.NewInMemoryBus(nil, 2, events.WithRetry(3, time.Millisecond, time.Millisecond))
	bus.Subscribe(events.IdentityCreatedName, NewIdentityListener(svc, nil))

	if err := bus.Publish(context.Background(), identityEvent("kc-1", 42)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), "acme", 42)
	if stored.ExternalIdentityID == nil || *stored.ExternalIdentityID != "kc-1" {
		t.Fatalf("expected kc-1 linked after redelivery, got %v", stored.ExternalIdentityID)
	}
}

func TestListenerSettledFailureIsNotRetried(t *testing.T) {
	repo := &flakyLinkRepo{Memory: repository.NewMemory()}
	svc := New(repo, access.NewValidator(nil), &recordingPublisher{}, nil, nil, "BR")

	var dead []events.Event
	bus := events.NewInMemoryBus(nil, 1,
		events.WithRetry(3, time.Millisecond, time.Millisecond),
		events.WithDeadLetter(func(_ context.Context, e events.Event, _ error) { dead = append(dead, e) }),
	)
	bus.Subscribe(events.IdentityCreatedName, NewIdentityListener(svc, nil))

	// Employee 99 does not exist: NotFound settles the event.
	if err := bus.Publish(context.Background(), identityEvent("kc-1", 99)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(dead) != 0 {
		t.Fatalf("settled events must not be dead lettered, got %d", len(dead))
	}
}
