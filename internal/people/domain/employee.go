// Package domain holds the employee aggregate and its value objects.
package domain

import (
	"net/mail"
	"strings"
	"time"

	"hr_backoffice/platform/apperr"
	"hr_backoffice/platform/phone"
)

// Status is the employment status of an employee.
type Status string

const (
	StatusActive     Status = "active"
	StatusOnLeave    Status = "on_leave"
	StatusTerminated Status = "terminated"
)

// ParseStatus builds a Status; blank input yields StatusActive.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return StatusActive, nil
	case StatusActive, StatusOnLeave, StatusTerminated:
		return s, nil
	default:
		return "", apperr.Validation("invalid employee status").WithDetails(map[string]string{"status": raw})
	}
}

// Email is a normalized (trimmed, lower-cased) mailbox address.
type Email string

// NewEmail builds an Email.
func NewEmail(raw string) (Email, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", apperr.Validation("invalid email address").WithDetails(map[string]string{"email": raw})
	}
	return Email(trimmed), nil
}

func (e Email) String() string { return string(e) }

// Phone is an E.164 number; the zero value means "no phone".
type Phone string

// NewPhone builds a Phone, reading national numbers in region.
func NewPhone(raw, region string) (Phone, error) {
	normalized, err := phone.NormalizeE164(raw, region)
	if err != nil {
		return "", apperr.Validation("invalid phone number").WithDetails(map[string]string{"phone": raw})
	}
	return Phone(normalized), nil
}

func (p Phone) String() string { return string(p) }

// Employee is a tenant-scoped person record. ExternalIdentityID is the only
// link to the identity provider and is bound at most once.
type Employee struct {
	ID                 int64
	TenantID           string
	CompanyID          int64
	DepartmentID       *int64
	FirstName          string
	LastName           string
	Email              Email
	Phone              Phone
	Status             Status
	ExternalIdentityID *string
	IdentityLinkedAt   *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Linked reports whether the employee is bound to an external identity.
func (e Employee) Linked() bool {
	return e.ExternalIdentityID != nil
}
