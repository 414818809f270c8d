package mailer

import (
	"context"

	"github.com/fixtureops/contact-monitor/internal/domain"
)

// TriggeredBy tags outgoing mail with the originating subsystem.
const TriggeredBy = "contact-monitor"

// Message carries everything one threshold notification needs: the owner
// recipient, the composed CC set, the fixture identity and numbers, and
// the associated probe inventory.
type Message struct {
	To          string
	CC          []string
	OwnerName   string
	Plant       string
	AdapterCode string
	FixtureType string
	ProjectName string
	Contacts    int
	Threshold   int
	Probes      []domain.Probe
}

// Notifier is the outbound delivery port. A nil error means the relay
// accepted the message for the recipient.
type Notifier interface {
	SendWarning(ctx context.Context, msg Message) error
	SendLimit(ctx context.Context, msg Message) error
}
