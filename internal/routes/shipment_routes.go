package routes

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/handlers"
	"agrichain/internal/middleware"
	"agrichain/internal/services"
)

func SetupShipmentRoutes(app *fiber.App, registry *services.Registry) {
	handler := handlers.NewShipmentHandler(registry.Shipments)

	shipments := app.Group("/api/shipments", middleware.Protected())

	// Create shipment for an accepted order (seller)
	shipments.Post("/", handler.Create)

	// Admin view filtered by status
	shipments.Get("/", middleware.AdminOnly(), handler.ListByStatus)

	// Lookups
	shipments.Get("/order/:orderId", handler.GetByOrder)
	shipments.Get("/track/:trackingNumber", handler.Track)

	// Telemetry and movement
	shipments.Put("/:id/location", handler.UpdateLocation)
	shipments.Put("/:id/telemetry", handler.UpdateTelemetry)
	shipments.Post("/:id/simulate", handler.Simulate)
	shipments.Post("/:id/deliver", handler.Deliver)
}
