package routes

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/handlers"
	"agrichain/internal/middleware"
	"agrichain/internal/services"
)

func SetupOrderRoutes(app *fiber.App, registry *services.Registry) {
	handler := handlers.NewOrderHandler(registry.Orders, registry.Payments)

	orders := app.Group("/api/orders", middleware.Protected())

	// Place a buy request (buyer)
	orders.Post("/", handler.Create)

	// My orders + seller's pending queue
	orders.Get("/mine", handler.ListMine)
	orders.Get("/pending", handler.ListPending)

	// Admin view of all orders
	orders.Get("/all", middleware.AdminOnly(), handler.ListAll)

	// Lifecycle transitions
	orders.Post("/:id/accept", handler.Accept)
	orders.Post("/:id/reject", handler.Reject)
	orders.Post("/:id/cancel", handler.Cancel)
	orders.Post("/:id/confirm-delivery", handler.ConfirmDelivery)

	// Get specific order
	orders.Get("/:id", handler.GetByID)
}
