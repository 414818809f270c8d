package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API surface and the
// threshold monitor.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	monitorRunsTotal       *prometheus.CounterVec
	monitorRunDuration     prometheus.Histogram
	emailsSentTotal        *prometheus.CounterVec
	emailsFailedTotal      *prometheus.CounterVec
	candidatesSkippedTotal *prometheus.CounterVec
	mailSendDuration       *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contact_monitor",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "contact_monitor",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		monitorRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contact_monitor",
				Name:      "runs_total",
				Help:      "Total number of monitor runs by result.",
			},
			[]string{"result"},
		),
		monitorRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "contact_monitor",
				Name:      "run_duration_seconds",
				Help:      "Full monitor run duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		emailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contact_monitor",
				Name:      "emails_sent_total",
				Help:      "Total number of threshold notifications delivered, by tier.",
			},
			[]string{"tier"},
		),
		emailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contact_monitor",
				Name:      "emails_failed_total",
				Help:      "Total number of threshold notifications that failed delivery, by tier and reason.",
			},
			[]string{"tier", "reason"},
		),
		candidatesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "contact_monitor",
				Name:      "candidates_skipped_total",
				Help:      "Total number of candidates skipped without a dispatch attempt, by tier and reason.",
			},
			[]string{"tier", "reason"},
		),
		mailSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "contact_monitor",
				Name:      "mail_send_duration_seconds",
				Help:      "Mail relay send duration in seconds grouped by tier.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"tier"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.monitorRunsTotal,
		m.monitorRunDuration,
		m.emailsSentTotal,
		m.emailsFailedTotal,
		m.candidatesSkippedTotal,
		m.mailSendDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncMonitorRun(result string) {
	if m == nil {
		return
	}
	m.monitorRunsTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) ObserveRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.monitorRunDuration.Observe(seconds)
}

func (m *Metrics) IncEmailSent(tier string) {
	if m == nil {
		return
	}
	m.emailsSentTotal.WithLabelValues(normalizeLabel(tier)).Inc()
}

func (m *Metrics) IncEmailFailed(tier string, reason string) {
	if m == nil {
		return
	}
	m.emailsFailedTotal.WithLabelValues(normalizeLabel(tier), normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncCandidateSkipped(tier string, reason string) {
	if m == nil {
		return
	}
	m.candidatesSkippedTotal.WithLabelValues(normalizeLabel(tier), normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveMailSendDuration(tier string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.mailSendDuration.WithLabelValues(normalizeLabel(tier)).Observe(seconds)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
