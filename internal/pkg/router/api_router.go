package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/andsoler0309/HR-app-sub001/app/controllers"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/cache"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Storage: cache.NewLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Subscription lifecycle
	subs := api.Group("/subscriptions")
	subs.Post("/checkout", controllers.HandleStartCheckout)
	subs.Post("/cancel", controllers.HandleCancelSubscription)
	subs.Post("/activate-recent", controllers.HandleActivateRecent)

	// PayU checkout signature for the payment form
	api.Post("/payu/signature", controllers.HandlePayUSignature)

	// Payroll engine and yearly config
	payroll := api.Group("/payroll")
	payroll.Post("/deductions", controllers.HandleCalculateDeductions)
	payroll.Post("/config", controllers.HandleCreatePayrollConfig)
	payroll.Get("/config", controllers.HandleGetPayrollConfig)
	payroll.Put("/config", controllers.HandleUpdatePayrollConfig)

	// HR resources behind the plan ceilings
	api.Post("/employees", controllers.HandleCreateEmployee)
	api.Get("/employees", controllers.HandleListEmployees)
}
