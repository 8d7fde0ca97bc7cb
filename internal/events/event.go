// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"strconv"
	"strings"
	"time"

	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Publisher   = events.Publisher
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Access-Control Domain Events
// =============================================================================

// IdentityCreatedName is the wire name of IdentityCreated.
const IdentityCreatedName = "accesscontrol.identity.created"

// IdentityCreated is published once the identity provider has created an
// account for an employee. People binds the account to the employee record.
type IdentityCreated struct {
	BaseEvent
	EventID            uuid.UUID `json:"eventId"`
	TenantID           string    `json:"tenantId"`
	ExternalIdentityID string    `json:"externalIdentityId"`
	EmployeeID         int64     `json:"employeeId"`
	Email              string    `json:"email"`
}

func (e IdentityCreated) EventName() string { return IdentityCreatedName }

// PartitionKey keeps every event of one employee on one lane/partition.
func (e IdentityCreated) PartitionKey() string {
	return strconv.FormatInt(e.EmployeeID, 10)
}

// NewIdentityCreated stamps a new event id and occurrence time.
func NewIdentityCreated(tenantID, externalIdentityID string, employeeID int64, email string) IdentityCreated {
	return IdentityCreated{
		BaseEvent:          NewBaseEvent(),
		EventID:            uuid.New(),
		TenantID:           tenantID,
		ExternalIdentityID: externalIdentityID,
		EmployeeID:         employeeID,
		Email:              email,
	}
}

// Validate rejects payloads that can never be applied.
func (e IdentityCreated) Validate() error {
	var problems []string
	if strings.TrimSpace(e.TenantID) == "" {
		problems = append(problems, "tenantId")
	}
	if strings.TrimSpace(e.ExternalIdentityID) == "" {
		problems = append(problems, "externalIdentityId")
	}
	if e.EmployeeID <= 0 {
		problems = append(problems, "employeeId")
	}
	if e.Timestamp.IsZero() {
		problems = append(problems, "occurredAt")
	}
	if len(problems) > 0 {
		return apperr.Validation("invalid identity created event").WithDetails(map[string][]string{"fields": problems})
	}
	return nil
}

// =============================================================================
// People Domain Events
// =============================================================================

// EmployeeCreated is published after an employee record is stored.
type EmployeeCreated struct {
	BaseEvent
	TenantID   string `json:"tenantId"`
	EmployeeID int64  `json:"employeeId"`
	CompanyID  int64  `json:"companyId"`
	Email      string `json:"email"`
}

func (e EmployeeCreated) EventName() string { return "people.employee.created" }

func (e EmployeeCreated) PartitionKey() string {
	return strconv.FormatInt(e.EmployeeID, 10)
}

// IdentityLinkConflict is published when an employee already bound to one
// external identity receives an event for a different one. The stored link
// is left untouched.
type IdentityLinkConflict struct {
	BaseEvent
	TenantID           string    `json:"tenantId"`
	EmployeeID         int64     `json:"employeeId"`
	LinkedIdentityID   string    `json:"linkedIdentityId"`
	IncomingIdentityID string    `json:"incomingIdentityId"`
	SourceEventID      uuid.UUID `json:"sourceEventId"`
	DetectedAt         time.Time `json:"detectedAt"`
}

func (e IdentityLinkConflict) EventName() string { return "people.identity_link.conflict" }

func (e IdentityLinkConflict) PartitionKey() string {
	return strconv.FormatInt(e.EmployeeID, 10)
}
