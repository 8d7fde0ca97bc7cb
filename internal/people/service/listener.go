package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hr_backoffice/internal/events"
	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/kafka"
	"hr_backoffice/platform/logger"
	"hr_backoffice/platform/tenancy"

	skafka "github.com/segmentio/kafka-go"
)

// errSettled marks an event that must not be redelivered: it is invalid,
// targets no employee, or its conflict has already been reported.
var errSettled = errors.New("identity event settled without link")

// IdentityListener consumes IdentityCreated events from any transport and
// applies them inside the tenant carried by the event.
type IdentityListener struct {
	svc *Service
	log *logger.Logger
}

// NewIdentityListener creates the listener.
func NewIdentityListener(svc *Service, log *logger.Logger) *IdentityListener {
	if log == nil {
		log = logger.Discard()
	}
	return &IdentityListener{svc: svc, log: log}
}

// Handle implements events.Handler for the in-process bus.
func (l *IdentityListener) Handle(ctx context.Context, event events.Event) error {
	var evt events.IdentityCreated
	switch typed := event.(type) {
	case events.IdentityCreated:
		evt = typed
	case *events.IdentityCreated:
		if typed == nil {
			return nil
		}
		evt = *typed
	default:
		return nil
	}

	if err := l.apply(ctx, evt); err != nil && !errors.Is(err, errSettled) {
		return err
	}
	return nil
}

// HandleMessage is the kafka consumer handler. Permanent failures are skipped
// so one bad message does not block the partition. Messages named as another
// event are skipped without decoding; unnamed messages are decoded.
func (l *IdentityListener) HandleMessage(ctx context.Context, msg skafka.Message) error {
	if name, ok := kafka.EventName(msg); ok && name != events.IdentityCreatedName {
		l.log.Debug("ignoring foreign event", "event", name, "offset", msg.Offset)
		return fmt.Errorf("event %q: %w", name, kafka.ErrSkip)
	}

	var evt events.IdentityCreated
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		l.log.Warn("identity event undecodable", "offset", msg.Offset, "error", err)
		return fmt.Errorf("decode identity event: %w", kafka.ErrSkip)
	}

	err := l.apply(ctx, evt)
	if errors.Is(err, errSettled) {
		return fmt.Errorf("%w: %w", kafka.ErrSkip, err)
	}
	return err
}

func (l *IdentityListener) apply(ctx context.Context, evt events.IdentityCreated) error {
	if err := evt.Validate(); err != nil {
		l.log.Warn("identity event rejected", "event_id", evt.EventID, "employee_id", evt.EmployeeID, "error", err)
		return fmt.Errorf("%w: %w", errSettled, err)
	}

	return tenancy.Scope(ctx, evt.TenantID, func(ctx context.Context) error {
		_, err := l.svc.ApplyIdentityCreated(ctx, evt)
		switch {
		case err == nil:
			return nil
		case apperr.Is(err, apperr.KindConflict), apperr.Is(err, apperr.KindNotFound), apperr.Is(err, apperr.KindValidation):
			l.log.WithContext(ctx).Warn("identity event not linked",
				"event_id", evt.EventID,
				"employee_id", evt.EmployeeID,
				"external_identity_id", evt.ExternalIdentityID,
				"error", err,
			)
			return fmt.Errorf("%w: %w", errSettled, err)
		default:
			return err
		}
	})
}
