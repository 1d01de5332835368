package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires every route group. Webhooks and cron go first so
// provider callbacks and the external cron caller never sit behind the API
// rate limiter; fiber matches routes in registration order.
func InstallRouter(app *fiber.App) {
	setup(app, NewWebhookRouter(), NewCronRouter(), NewApiRouter())
}

func setup(app *fiber.App, routers ...Router) {
	for _, r := range routers {
		r.InstallRouter(app)
	}
}
