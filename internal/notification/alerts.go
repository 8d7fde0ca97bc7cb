// Package notification reports reconciliation problems to operators. Every
// alert is logged; it is also emailed when an operator address is configured.
package notification

import (
	"context"
	"fmt"
	"time"

	"hr_backoffice/internal/email"
	"hr_backoffice/internal/events"
	"hr_backoffice/platform/logger"
)

const sendTimeout = 20 * time.Second

// OperatorAlerts is the operator channel for link conflicts and failed
// identity event publications.
type OperatorAlerts struct {
	sender email.Sender
	to     string
	log    *logger.Logger
}

// NewOperatorAlerts creates the channel. An empty recipient logs only.
func NewOperatorAlerts(sender email.Sender, to string, log *logger.Logger) *OperatorAlerts {
	if sender == nil {
		sender = email.NoopSender{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &OperatorAlerts{sender: sender, to: to, log: log}
}

// Name returns the module identifier.
func (a *OperatorAlerts) Name() string { return "notification" }

// RegisterHandlers subscribes the channel to the events it reports on.
func (a *OperatorAlerts) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.IdentityLinkConflict{}.EventName(), a)
}

// Handle routes bus events to the matching alert.
func (a *OperatorAlerts) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.IdentityLinkConflict:
		return a.LinkConflict(ctx, e)
	default:
		a.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// LinkConflict reports an employee that received an identity different from
// the one it is linked to.
func (a *OperatorAlerts) LinkConflict(ctx context.Context, e events.IdentityLinkConflict) error {
	a.log.WithTenantID(e.TenantID).Warn("operator_alert",
		"alert", "identity_link_conflict",
		"employee_id", e.EmployeeID,
		"linked_identity_id", e.LinkedIdentityID,
		"incoming_identity_id", e.IncomingIdentityID,
		"source_event_id", e.SourceEventID.String(),
	)
	if a.to == "" {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	err := a.sender.SendIdentityLinkConflictEmail(sendCtx, a.to, email.LinkConflict{
		TenantID:           e.TenantID,
		EmployeeID:         e.EmployeeID,
		LinkedIdentityID:   e.LinkedIdentityID,
		IncomingIdentityID: e.IncomingIdentityID,
		SourceEventID:      e.SourceEventID.String(),
		DetectedAt:         e.DetectedAt,
	})
	if err != nil {
		return fmt.Errorf("send link conflict alert: %w", err)
	}
	return nil
}

// PublicationFailed reports an identity whose creation event was not
// delivered. final marks alerts sent after retries are exhausted.
func (a *OperatorAlerts) PublicationFailed(ctx context.Context, e events.IdentityCreated, cause error, final bool) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	a.log.WithTenantID(e.TenantID).Error("operator_alert",
		"alert", "identity_publication_failed",
		"employee_id", e.EmployeeID,
		"external_identity_id", e.ExternalIdentityID,
		"event_id", e.EventID.String(),
		"final", final,
		"reason", reason,
	)
	if a.to == "" {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	err := a.sender.SendPublicationFailureEmail(sendCtx, a.to, email.PublicationFailure{
		TenantID:           e.TenantID,
		EmployeeID:         e.EmployeeID,
		ExternalIdentityID: e.ExternalIdentityID,
		EventID:            e.EventID.String(),
		Reason:             reason,
		Final:              final,
	})
	if err != nil {
		return fmt.Errorf("send publication alert: %w", err)
	}
	return nil
}
