package router

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newUnlimitedApp() *fiber.App {
	app := fiber.New()
	setup(app, NewWebhookRouter(), NewCronRouter())
	return app
}

func TestCronRoutes(t *testing.T) {
	t.Setenv("CRON_SECRET", "")
	app := newUnlimitedApp()

	for _, path := range []string{"/api/cron/health", "/api/cron/subscription-cleanup"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("GET %s = %d, want %d", path, resp.StatusCode, fiber.StatusOK)
		}
	}

	// Without the shared secret the sweep trigger is rejected before any work.
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/api/cron/subscription-cleanup", nil))
	if err != nil {
		t.Fatalf("POST /api/cron/subscription-cleanup: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("POST /api/cron/subscription-cleanup = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestWebhookRoutesInstalled(t *testing.T) {
	app := newUnlimitedApp()

	// A malformed body stops each handler at parsing, so route resolution can
	// be checked without a database: installed paths answer 400, missing ones
	// would answer 404 or 405.
	paths := []string{
		"/webhooks/payu/confirmation",
		"/webhooks/payu/cancel",
		"/api/webhooks/payu",
		"/api/payu/confirmation",
		"/api/webhooks/cancel",
	}
	for _, path := range paths {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, path, nil))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("POST %s = %d, want %d", path, resp.StatusCode, fiber.StatusBadRequest)
		}
	}
}
