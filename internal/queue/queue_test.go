package queue

import (
	"context"
	"testing"
	"time"

	"github.com/fixtureops/contact-monitor/internal/domain"
)

func TestAuditEventValidate(t *testing.T) {
	t.Parallel()

	base := AuditEvent{
		NotificationID: "rec-1",
		Plant:          "Timisoara",
		AdapterCode:    "A1",
		FixtureType:    "ICT",
		IssueType:      domain.IssueWarning,
		Status:         domain.DeliverySent,
		Recipient:      "owner@x.com",
		OccurredAt:     time.Unix(1_700_000_000, 0),
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	missing := base
	missing.NotificationID = "  "
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for missing notification id")
	}

	badTier := base
	badTier.IssueType = domain.IssueType("NOTICE")
	if err := badTier.Validate(); err == nil {
		t.Fatal("expected error for invalid issue type")
	}

	badStatus := base
	badStatus.Status = domain.DeliveryStatus("PENDING")
	if err := badStatus.Validate(); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestRoutingKey(t *testing.T) {
	t.Parallel()

	if got := RoutingKey(domain.IssueWarning); got != "warning" {
		t.Fatalf("RoutingKey(WARNING) = %q, want warning", got)
	}
	if got := RoutingKey(domain.IssueLimit); got != "limit" {
		t.Fatalf("RoutingKey(LIMIT) = %q, want limit", got)
	}
}

func TestNopPublisher(t *testing.T) {
	t.Parallel()

	var p NopPublisher
	if err := p.Publish(context.Background(), AuditEvent{}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
