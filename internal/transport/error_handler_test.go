package transport

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"github.com/gofiber/fiber/v2"
)

func TestErrorHandlerStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation", err: fmt.Errorf("bad plant: %w", domain.ErrValidation), wantStatus: fiber.StatusBadRequest},
		{name: "not found", err: domain.ErrNotFound, wantStatus: fiber.StatusNotFound},
		{name: "conflict", err: fmt.Errorf("fixture exists: %w", domain.ErrConflict), wantStatus: fiber.StatusConflict},
		{name: "unauthorized", err: domain.ErrUnauthorized, wantStatus: fiber.StatusUnauthorized},
		{name: "fiber error passthrough", err: fiber.ErrTooManyRequests, wantStatus: fiber.StatusTooManyRequests},
		{name: "unknown", err: fmt.Errorf("boom"), wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
			app.Get("/boom", func(c *fiber.Ctx) error {
				return tt.err
			})

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}
