package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMonitorCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncMonitorRun("ok")
	metrics.ObserveRunDuration(250 * time.Millisecond)
	metrics.IncEmailSent("WARNING")
	metrics.IncEmailFailed("limit", "relay_error")
	metrics.IncCandidateSkipped("warning", "invalid_email")
	metrics.IncCandidateSkipped("warning", "throttled")
	metrics.ObserveMailSendDuration("warning", 80*time.Millisecond)

	if got := testutil.ToFloat64(metrics.monitorRunsTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("runs_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.emailsSentTotal.WithLabelValues("warning")); got != 1 {
		t.Fatalf("emails_sent_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.emailsFailedTotal.WithLabelValues("limit", "relay_error")); got != 1 {
		t.Fatalf("emails_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.candidatesSkippedTotal.WithLabelValues("warning", "throttled")); got != 1 {
		t.Fatalf("candidates_skipped_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
