package routes

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/handlers"
	"agrichain/internal/middleware"
	"agrichain/internal/services"
)

func SetupDisputeRoutes(app *fiber.App, registry *services.Registry) {
	handler := handlers.NewDisputeHandler(registry.Disputes)

	disputes := app.Group("/api/disputes", middleware.Protected())

	// Raise a dispute (either order party)
	disputes.Post("/", handler.Open)

	// My disputes and per-order view
	disputes.Get("/mine", handler.ListMine)
	disputes.Get("/order/:orderId", handler.ListByOrder)

	// Admin resolution workflow
	disputes.Get("/", middleware.AdminOnly(), handler.ListAll)
	disputes.Post("/:id/review", middleware.AdminOnly(), handler.Review)
	disputes.Post("/:id/resolve", middleware.AdminOnly(), handler.Resolve)
	disputes.Post("/:id/close", middleware.AdminOnly(), handler.Close)

	// Get specific dispute
	disputes.Get("/:id", handler.GetByID)
}
