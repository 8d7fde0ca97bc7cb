// Package email delivers operator alerts.
package email

import (
	"context"
	"strconv"
	"time"

	"hr_backoffice/platform/config"
)

// LinkConflict describes an identity event that was refused because the
// employee is already linked to another identity.
type LinkConflict struct {
	TenantID           string
	EmployeeID         int64
	LinkedIdentityID   string
	IncomingIdentityID string
	SourceEventID      string
	DetectedAt         time.Time
}

// PublicationFailure describes an identity whose creation event could not be
// delivered. Final is set once retries are exhausted.
type PublicationFailure struct {
	TenantID           string
	EmployeeID         int64
	ExternalIdentityID string
	EventID            string
	Reason             string
	Final              bool
}

type Sender interface {
	SendIdentityLinkConflictEmail(ctx context.Context, toEmail string, c LinkConflict) error
	SendPublicationFailureEmail(ctx context.Context, toEmail string, f PublicationFailure) error
}

type NoopSender struct{}

func (NoopSender) SendIdentityLinkConflictEmail(context.Context, string, LinkConflict) error {
	return nil
}

func (NoopSender) SendPublicationFailureEmail(context.Context, string, PublicationFailure) error {
	return nil
}

// NewSender returns an SMTP sender when operator email is configured and a
// no-op sender otherwise.
func NewSender(cfg config.OperatorAlertConfig) Sender {
	if !cfg.IsOperatorEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetSMTPFromAddress(), "HR Back Office")
}

func linkConflictContent(c LinkConflict) (string, error) {
	return renderEmailTemplate(baseEmailData{
		Title:      "Identity link conflict",
		Heading:    "Identity link conflict",
		Subheading: "An identity event was refused because the employee is already linked to a different identity. The stored link was kept.",
		Fields: []Field{
			{Label: "Tenant", Value: c.TenantID},
			{Label: "Employee", Value: strconv.FormatInt(c.EmployeeID, 10)},
			{Label: "Linked identity", Value: c.LinkedIdentityID},
			{Label: "Incoming identity", Value: c.IncomingIdentityID},
			{Label: "Source event", Value: c.SourceEventID},
			{Label: "Detected at", Value: c.DetectedAt.UTC().Format(time.RFC3339)},
		},
		Action: "Check the identity provider for a duplicate account and remove the one that should not exist.",
	})
}

func publicationFailureContent(f PublicationFailure) (string, error) {
	data := baseEmailData{
		Title:      "Identity event pending",
		Heading:    "Identity event not delivered",
		Subheading: "The identity was created in the identity provider but the employee has not been linked yet. Delivery will be retried.",
		Fields: []Field{
			{Label: "Tenant", Value: f.TenantID},
			{Label: "Employee", Value: strconv.FormatInt(f.EmployeeID, 10)},
			{Label: "Identity", Value: f.ExternalIdentityID},
			{Label: "Event", Value: f.EventID},
			{Label: "Reason", Value: f.Reason},
		},
	}
	if f.Final {
		data.Title = "Identity event abandoned"
		data.Subheading = "Retries are exhausted. The identity exists in the identity provider but the employee is still unlinked."
		data.Action = "Republish the event or link the employee manually."
	}
	return renderEmailTemplate(data)
}
