package transport

// ProvisionIdentityRequest carries optional overrides for the account created
// in the identity provider. The employee's email is always the login.
type ProvisionIdentityRequest struct {
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	LastName  string `json:"lastName" validate:"omitempty,max=100"`
}

type ProvisionIdentityResponse struct {
	EmployeeID         int64   `json:"employeeId"`
	ExternalIdentityID string  `json:"externalIdentityId"`
	EventID            string  `json:"eventId"`
	PublicationPending bool    `json:"publicationPending"`
	OutboxID           *string `json:"outboxId,omitempty"`
}
