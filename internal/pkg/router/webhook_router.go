package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/andsoler0309/HR-app-sub001/app/controllers"
)

// WebhookRouter carries the provider callback routes. These stay outside the
// rate-limited /api group: a redelivery burst from PayU must never be
// throttled into a retry storm.
type WebhookRouter struct {
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	payu := app.Group("/webhooks/payu")
	payu.Post("/confirmation", controllers.HandlePayUConfirmation)
	payu.Post("/cancel", controllers.HandleCancelWebhook)

	// Browser redirect back from the PayU checkout page.
	app.Get("/payu/response", controllers.HandlePayUResponse)
	app.Post("/payu/response", controllers.HandlePayUResponse)

	app.Post("/webhooks/mercadopago", controllers.HandleMercadoPagoWebhook)

	// Paths existing provider configurations post to. Registered here, before
	// the /api group, so deliveries to them dodge the limiter too.
	app.Post("/api/webhooks/payu", controllers.HandlePayUConfirmation)
	app.Post("/api/payu/confirmation", controllers.HandlePayUConfirmation)
	app.Post("/api/webhooks/cancel", controllers.HandleCancelWebhook)
}
