package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"hr_backoffice/platform/events"

	skafka "github.com/segmentio/kafka-go"
)

// fakeWriter is a test writer that records messages written.
type fakeWriter struct {
	msgs []skafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type sampleEvent struct {
	events.BaseEvent
	EmployeeID int64 `json:"employeeId"`
}

func (sampleEvent) EventName() string      { return "sample.created" }
func (e sampleEvent) PartitionKey() string { return fmt.Sprint(e.EmployeeID) }

func TestProducerKeysMessagesByPartitionKey(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, nil)

	if err := p.Publish(context.Background(), sampleEvent{BaseEvent: events.NewBaseEvent(), EmployeeID: 42}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fw.msgs))
	}

	msg := fw.msgs[0]
	if string(msg.Key) != "42" {
		t.Fatalf("expected key 42, got %q", msg.Key)
	}
	if name, ok := EventName(msg); !ok || name != "sample.created" {
		t.Fatalf("expected event-name header, got %+v", msg.Headers)
	}
	if _, ok := EventName(skafka.Message{}); ok {
		t.Fatal("expected no event name on a bare message")
	}

	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if decoded["employeeId"] != float64(42) {
		t.Fatalf("unexpected payload %v", decoded)
	}
}

func TestProducerWrapsWriteFailure(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, nil)

	err := p.Publish(context.Background(), sampleEvent{EmployeeID: 1})
	if !errors.Is(err, events.ErrPublication) {
		t.Fatalf("expected ErrPublication, got %v", err)
	}
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []skafka.Message
	committed []int64
	drained   chan struct{}
}

func (f *fakeReader) FetchMessage(ctx context.Context) (skafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()

	select {
	case f.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return skafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...skafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumerRetriesBeforeCommitAndSkipsPoison(t *testing.T) {
	reader := &fakeReader{
		queue: []skafka.Message{
			{Offset: 1, Value: []byte("flaky")},
			{Offset: 2, Value: []byte("poison")},
			{Offset: 3, Value: []byte("ok")},
		},
		drained: make(chan struct{}, 1),
	}
	c := NewConsumerWithReader(reader, nil)
	c.retryBackoff = time.Millisecond

	var order []string
	flakyFailures := 2
	handler := func(_ context.Context, msg skafka.Message) error {
		order = append(order, string(msg.Value))
		switch string(msg.Value) {
		case "flaky":
			if flakyFailures > 0 {
				flakyFailures--
				return errors.New("transient")
			}
		case "poison":
			return fmt.Errorf("bad payload: %w", ErrSkip)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, handler) }()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}

	want := []string{"flaky", "flaky", "flaky", "poison", "ok"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("expected handling order %v, got %v", want, order)
	}
	if fmt.Sprint(reader.committed) != fmt.Sprint([]int64{1, 2, 3}) {
		t.Fatalf("expected offsets 1,2,3 committed in order, got %v", reader.committed)
	}
}
