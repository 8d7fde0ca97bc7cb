package domain

import (
	"testing"

	"hr_backoffice/platform/apperr"
)

func TestDecideLink(t *testing.T) {
	kc1 := "kc-1"

	if got := DecideLink(nil, "kc-1"); got != LinkApplied {
		t.Fatalf("unlinked employee must link, got %v", got)
	}
	if got := DecideLink(&kc1, "kc-1"); got != LinkUnchanged {
		t.Fatalf("same identity must be a no-op, got %v", got)
	}
	if got := DecideLink(&kc1, "kc-2"); got != LinkConflict {
		t.Fatalf("different identity must conflict, got %v", got)
	}
}

func TestNewEmail(t *testing.T) {
	email, err := NewEmail("  Ana.Souza@Example.COM ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != "ana.souza@example.com" {
		t.Fatalf("expected normalized email, got %q", email)
	}

	for _, raw := range []string{"", "not-an-email", "Ana <ana@example.com>"} {
		if _, err := NewEmail(raw); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%q: expected validation error, got %v", raw, err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus(""); err != nil || s != StatusActive {
		t.Fatalf("blank status must default to active, got %q (%v)", s, err)
	}
	if s, err := ParseStatus("On_Leave"); err != nil || s != StatusOnLeave {
		t.Fatalf("expected on_leave, got %q (%v)", s, err)
	}
	if _, err := ParseStatus("retired"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewPhone(t *testing.T) {
	p, err := NewPhone("11 98765-4321", "BR")
	if err != nil || p != "+5511987654321" {
		t.Fatalf("expected E.164 phone, got %q (%v)", p, err)
	}
	if p, err := NewPhone("", "BR"); err != nil || p != "" {
		t.Fatalf("blank phone must be empty, got %q (%v)", p, err)
	}
	if _, err := NewPhone("123", "BR"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
