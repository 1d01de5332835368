package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/andsoler0309/HR-app-sub001/app/controllers"
)

// CronRouter carries the external cron entrypoints. Installed ahead of the
// rate-limited /api group: the caller is secret-guarded and must never be
// throttled into skipping a sweep.
type CronRouter struct {
}

func NewCronRouter() *CronRouter {
	return &CronRouter{}
}

func (h CronRouter) InstallRouter(app *fiber.App) {
	cron := app.Group("/api/cron")
	cron.Get("/health", controllers.HandleCronHealth)
	// GET on the cleanup path doubles as the liveness check the cron caller
	// uses to probe the endpoint.
	cron.Get("/subscription-cleanup", controllers.HandleCronHealth)
	cron.Post("/subscription-cleanup", controllers.HandleSubscriptionCleanup)
}
