package email

import (
	"strings"
	"testing"
	"time"
)

func TestLinkConflictContentEscapesValues(t *testing.T) {
	content, err := linkConflictContent(LinkConflict{
		TenantID:           "acme",
		EmployeeID:         42,
		LinkedIdentityID:   "kc-1",
		IncomingIdentityID: "<script>kc-2</script>",
		DetectedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	if !strings.Contains(content, "kc-1") || !strings.Contains(content, "2026-01-02T03:04:05Z") {
		t.Fatalf("missing values in content: %s", content)
	}
	if strings.Contains(content, "<script>") {
		t.Fatal("values must be html-escaped")
	}
}

func TestPublicationFailureContentFinal(t *testing.T) {
	pending, err := publicationFailureContent(PublicationFailure{EmployeeID: 42, ExternalIdentityID: "kc-1"})
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	final, err := publicationFailureContent(PublicationFailure{EmployeeID: 42, ExternalIdentityID: "kc-1", Final: true})
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	if !strings.Contains(pending, "will be retried") || !strings.Contains(final, "Retries are exhausted") {
		t.Fatal("final alerts must differ from pending alerts")
	}
}
