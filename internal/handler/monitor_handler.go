package handler

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MonitorRunner is the trigger handler's view of the threshold monitor.
type MonitorRunner interface {
	Run(ctx context.Context) (domain.RunSummary, error)
}

// RunLocker guards against overlapping monitor runs across instances.
type RunLocker interface {
	Acquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

type MonitorHandler struct {
	runner     MonitorRunner
	lock       RunLocker
	triggerKey string
	logger     *zap.Logger
}

func NewMonitorHandler(runner MonitorRunner, lock RunLocker, triggerKey string, logger *zap.Logger) (*MonitorHandler, error) {
	if runner == nil {
		return nil, fmt.Errorf("monitor runner is required")
	}
	if lock == nil {
		return nil, fmt.Errorf("run lock is required")
	}
	if triggerKey == "" {
		return nil, fmt.Errorf("trigger key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MonitorHandler{
		runner:     runner,
		lock:       lock,
		triggerKey: triggerKey,
		logger:     logger,
	}, nil
}

func (h *MonitorHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/internal/monitor/run", h.triggerRun)
}

// triggerRun is the scheduler entry point. GET keeps it callable from the
// plainest cron tooling; the shared key is checked before any work and a
// held lock means another run is already in flight.
func (h *MonitorHandler) triggerRun(c *fiber.Ctx) error {
	key := c.Query("key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.triggerKey)) != 1 {
		return fmt.Errorf("%w: bad trigger key", domain.ErrUnauthorized)
	}

	ctx := c.UserContext()

	token, ok, err := h.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return fiber.NewError(fiber.StatusConflict, "a monitor run is already in progress")
	}
	defer func() {
		if releaseErr := h.lock.Release(ctx, token); releaseErr != nil {
			h.logger.Warn("failed to release run lock", zap.Error(releaseErr))
		}
	}()

	summary, err := h.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("monitor run failed: %w", err)
	}

	return c.JSON(runSummaryResponse(summary))
}

type passCountersPayload struct {
	Sent             int `json:"sent"`
	Failed           int `json:"failed"`
	SkippedInvalid   int `json:"skippedInvalid"`
	SkippedThrottled int `json:"skippedThrottled"`
}

type runSummaryPayload struct {
	EmailsSent      int                 `json:"emailsSent"`
	WindowHours     int                 `json:"windowHours"`
	MaxEmailsPerRun int                 `json:"maxEmailsPerRun"`
	Warning         passCountersPayload `json:"warning"`
	Limit           passCountersPayload `json:"limit"`
}

func runSummaryResponse(summary domain.RunSummary) runSummaryPayload {
	return runSummaryPayload{
		EmailsSent:      summary.EmailsSent,
		WindowHours:     summary.WindowHours,
		MaxEmailsPerRun: summary.MaxEmailsPerRun,
		Warning: passCountersPayload{
			Sent:             summary.Warning.Sent,
			Failed:           summary.Warning.Failed,
			SkippedInvalid:   summary.Warning.SkippedInvalid,
			SkippedThrottled: summary.Warning.SkippedThrottled,
		},
		Limit: passCountersPayload{
			Sent:             summary.Limit.Sent,
			Failed:           summary.Limit.Failed,
			SkippedInvalid:   summary.Limit.SkippedInvalid,
			SkippedThrottled: summary.Limit.SkippedThrottled,
		},
	}
}
