package validator

import "testing"

type sampleRequest struct {
	Name  string `validate:"required,notblank"`
	Phone string `validate:"omitempty,phone"`
}

func TestCustomTags(t *testing.T) {
	v := New("BR")

	if err := v.Struct(sampleRequest{Name: "Ana", Phone: "11 98765-4321"}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if err := v.Struct(sampleRequest{Name: "   "}); err == nil {
		t.Fatal("expected blank name to fail")
	}
	if err := v.Struct(sampleRequest{Name: "Ana", Phone: "12"}); err == nil {
		t.Fatal("expected invalid phone to fail")
	}
}
