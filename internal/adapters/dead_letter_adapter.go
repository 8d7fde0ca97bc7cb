package adapters

import (
	"context"

	"hr_backoffice/internal/events"
	"hr_backoffice/platform/logger"
)

// UndeliveredRecorder stores identity events whose consumer kept failing.
type UndeliveredRecorder interface {
	RecordUndelivered(ctx context.Context, evt events.IdentityCreated, cause error) error
}

// IdentityDeadLetter routes events the in-process bus gave up on. Identity
// events go back to the publication outbox; anything else is logged.
type IdentityDeadLetter struct {
	recorder UndeliveredRecorder
	log      *logger.Logger
}

// NewIdentityDeadLetter creates the router.
func NewIdentityDeadLetter(recorder UndeliveredRecorder, log *logger.Logger) *IdentityDeadLetter {
	if log == nil {
		log = logger.Discard()
	}
	return &IdentityDeadLetter{recorder: recorder, log: log}
}

// Receive implements events.DeadLetterFunc.
func (d *IdentityDeadLetter) Receive(ctx context.Context, event events.Event, cause error) {
	var evt events.IdentityCreated
	switch typed := event.(type) {
	case events.IdentityCreated:
		evt = typed
	case *events.IdentityCreated:
		evt = *typed
	default:
		d.log.Error("event dead lettered", "event", event.EventName(), "error", cause)
		return
	}

	if err := d.recorder.RecordUndelivered(ctx, evt, cause); err != nil {
		d.log.WithTenantID(evt.TenantID).Error("identity event lost",
			"event_id", evt.EventID.String(),
			"employee_id", evt.EmployeeID,
			"external_identity_id", evt.ExternalIdentityID,
			"cause", cause,
			"error", err,
		)
	}
}
