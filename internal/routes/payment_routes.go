package routes

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/handlers"
	"agrichain/internal/middleware"
	"agrichain/internal/services"
)

func SetupPaymentRoutes(app *fiber.App, registry *services.Registry) {
	handler := handlers.NewPaymentHandler(registry.Payments)

	payments := app.Group("/api/payments", middleware.Protected())

	// Initiate payment (buyer)
	payments.Post("/", handler.Initiate)

	// Processor outcomes
	payments.Post("/:id/complete", handler.Complete)
	payments.Post("/:id/fail", handler.Fail)

	// Payment state per order
	payments.Get("/order/:orderId", handler.GetByOrder)
}
