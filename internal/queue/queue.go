package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fixtureops/contact-monitor/internal/domain"
)

const (
	// auditExchangeName receives one event per dispatch outcome for
	// downstream reporting.
	auditExchangeName = "monitor.audit"
)

// AuditEvent is the broker payload describing one dispatch outcome.
type AuditEvent struct {
	NotificationID string                `json:"notificationId"`
	RunID          string                `json:"runId,omitempty"`
	Plant          string                `json:"plant"`
	AdapterCode    string                `json:"adapterCode"`
	FixtureType    string                `json:"fixtureType"`
	IssueType      domain.IssueType      `json:"issueType"`
	Status         domain.DeliveryStatus `json:"status"`
	Recipient      string                `json:"recipient"`
	CCCount        int                   `json:"ccCount"`
	OccurredAt     time.Time             `json:"occurredAt"`
}

func (e AuditEvent) Validate() error {
	if strings.TrimSpace(e.NotificationID) == "" {
		return fmt.Errorf("notificationId is required")
	}
	if !e.IssueType.IsValid() {
		return fmt.Errorf("invalid issue type %q", e.IssueType)
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("invalid delivery status %q", e.Status)
	}
	return nil
}

// RoutingKey maps the issue tier to the audit routing key, e.g. warning.
func RoutingKey(issueType domain.IssueType) string {
	return strings.ToLower(issueType.String())
}

// Publisher publishes audit events. Publishing is best-effort: the monitor
// logs failures and keeps going.
type Publisher interface {
	Publish(ctx context.Context, event AuditEvent) error
	Close() error
}

// NopPublisher discards events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AuditEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }
