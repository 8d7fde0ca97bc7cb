package phone

import (
	"errors"
	"testing"
)

func TestNormalizeE164(t *testing.T) {
	got, err := NormalizeE164("(11) 98765-4321", "BR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "+5511987654321" {
		t.Fatalf("expected +5511987654321, got %q", got)
	}

	got, err = NormalizeE164("+31 6 12345678", "BR")
	if err != nil || got != "+31612345678" {
		t.Fatalf("international numbers ignore the region, got %q (%v)", got, err)
	}
}

func TestNormalizeE164RejectsGarbage(t *testing.T) {
	if _, err := NormalizeE164("not a number", "BR"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if got, err := NormalizeE164("   ", "BR"); err != nil || got != "" {
		t.Fatalf("blank input must be empty without error, got %q (%v)", got, err)
	}
}
