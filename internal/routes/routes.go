package routes

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/services"
)

// Setup registers every route group on the app.
func Setup(app *fiber.App, registry *services.Registry) {
	api := app.Group("/api")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "AgriChain API v1.0",
			"status":  "running",
		})
	})

	SetupCropRoutes(app, registry)
	SetupOrderRoutes(app, registry)
	SetupShipmentRoutes(app, registry)
	SetupPaymentRoutes(app, registry)
	SetupTraceabilityRoutes(app, registry)
	SetupDisputeRoutes(app, registry)
}
