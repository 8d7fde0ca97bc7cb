package adapters

import (
	"context"

	acservice "hr_backoffice/internal/accesscontrol/service"
	peopletransport "hr_backoffice/internal/people/transport"
)

// EmployeeReader is the narrow people service view provisioning needs.
type EmployeeReader interface {
	Get(ctx context.Context, id int64) (peopletransport.EmployeeResponse, error)
}

// EmployeeDirectoryAdapter implements accesscontrol/service.EmployeeDirectory
// on top of the people service.
type EmployeeDirectoryAdapter struct {
	people EmployeeReader
}

// NewEmployeeDirectoryAdapter creates a new adapter.
func NewEmployeeDirectoryAdapter(people EmployeeReader) *EmployeeDirectoryAdapter {
	return &EmployeeDirectoryAdapter{people: people}
}

// LookupEmployee resolves an employee of the current tenant.
func (a *EmployeeDirectoryAdapter) LookupEmployee(ctx context.Context, employeeID int64) (acservice.Employee, error) {
	e, err := a.people.Get(ctx, employeeID)
	if err != nil {
		return acservice.Employee{}, err
	}
	return acservice.Employee{
		ID:                 e.ID,
		CompanyID:          e.CompanyID,
		FirstName:          e.FirstName,
		LastName:           e.LastName,
		Email:              e.Email,
		ExternalIdentityID: e.ExternalIdentityID,
	}, nil
}

// Compile-time check.
var _ acservice.EmployeeDirectory = (*EmployeeDirectoryAdapter)(nil)
