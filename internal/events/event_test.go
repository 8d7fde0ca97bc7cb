package events

import (
	"encoding/json"
	"testing"

	"hr_backoffice/platform/apperr"
)

func TestIdentityCreatedWireShape(t *testing.T) {
	evt := NewIdentityCreated("acme", "kc-1", 42, "a@b.com")

	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"eventId", "tenantId", "externalIdentityId", "employeeId", "email", "occurredAt"} {
		if _, ok := decoded[field]; !ok {
			t.Fatalf("expected field %q in %s", field, raw)
		}
	}
	if evt.PartitionKey() != "42" {
		t.Fatalf("expected partition key 42, got %q", evt.PartitionKey())
	}
}

func TestIdentityCreatedValidate(t *testing.T) {
	if err := NewIdentityCreated("acme", "kc-1", 42, "a@b.com").Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	err := IdentityCreated{EmployeeID: 42}.Validate()
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
