package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultRelayTimeout = 10 * time.Second

type relayProbe struct {
	PartNumber string `json:"partNumber"`
	Qty        int    `json:"qty"`
}

type relayRequest struct {
	Type        string       `json:"type"`
	To          string       `json:"to"`
	CC          []string     `json:"cc,omitempty"`
	Subject     string       `json:"subject"`
	OwnerName   string       `json:"ownerName,omitempty"`
	Plant       string       `json:"plant"`
	AdapterCode string       `json:"adapterCode"`
	FixtureType string       `json:"fixtureType"`
	ProjectName string       `json:"projectName"`
	Contacts    int          `json:"contacts"`
	Threshold   int          `json:"threshold"`
	Probes      []relayProbe `json:"probes,omitempty"`
	TriggeredBy string       `json:"triggeredBy"`
}

// RelayNotifier delivers threshold mail through an HTTP mail-relay
// endpoint.
type RelayNotifier struct {
	client   *resty.Client
	endpoint string
}

func NewRelayNotifier(endpoint string) (*RelayNotifier, error) {
	client := resty.New()
	client.SetTimeout(defaultRelayTimeout)
	client.SetRetryCount(0)

	return NewRelayNotifierWithClient(endpoint, client)
}

func NewRelayNotifierWithClient(endpoint string, client *resty.Client) (*RelayNotifier, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("mail relay endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid mail relay endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultRelayTimeout)
	}
	client.SetRetryCount(0)

	return &RelayNotifier{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (n *RelayNotifier) SendWarning(ctx context.Context, msg Message) error {
	subject := fmt.Sprintf("[WARNING] fixture %s/%s/%s reached %d of %d contacts",
		msg.Plant, msg.AdapterCode, msg.FixtureType, msg.Contacts, msg.Threshold)
	return n.send(ctx, "warning", subject, msg)
}

func (n *RelayNotifier) SendLimit(ctx context.Context, msg Message) error {
	subject := fmt.Sprintf("[LIMIT] fixture %s/%s/%s passed its limit of %d contacts (now %d)",
		msg.Plant, msg.AdapterCode, msg.FixtureType, msg.Threshold, msg.Contacts)
	return n.send(ctx, "limit", subject, msg)
}

func (n *RelayNotifier) send(ctx context.Context, kind string, subject string, msg Message) error {
	if n == nil || n.client == nil {
		return fmt.Errorf("notifier is not initialized")
	}
	if !domain.ValidOwnerEmail(msg.To) {
		return fmt.Errorf("%w: recipient %q is not a valid address", domain.ErrValidation, msg.To)
	}

	probes := make([]relayProbe, 0, len(msg.Probes))
	for _, probe := range msg.Probes {
		probes = append(probes, relayProbe{PartNumber: probe.PartNumber, Qty: probe.Qty})
	}

	reqBody := relayRequest{
		Type:        kind,
		To:          msg.To,
		CC:          msg.CC,
		Subject:     subject,
		OwnerName:   msg.OwnerName,
		Plant:       msg.Plant,
		AdapterCode: msg.AdapterCode,
		FixtureType: msg.FixtureType,
		ProjectName: msg.ProjectName,
		Contacts:    msg.Contacts,
		Threshold:   msg.Threshold,
		Probes:      probes,
		TriggeredBy: TriggeredBy,
	}

	response, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(n.endpoint)
	if err != nil {
		return &RelayError{
			Message:   "relay request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &RelayError{
			Message:   "relay returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &RelayError{
		StatusCode: statusCode,
		Message:    relayErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func relayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("relay returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
