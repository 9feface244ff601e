package routes

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/handlers"
	"agrichain/internal/middleware"
	"agrichain/internal/services"
)

func SetupTraceabilityRoutes(app *fiber.App, registry *services.Registry) {
	handler := handlers.NewTraceabilityHandler(registry.Traceability)

	trace := app.Group("/api/traceability", middleware.Protected())

	// Full chain, oldest first
	trace.Get("/:cropId", handler.GetChain)

	// Recompute and check every stored hash
	trace.Get("/:cropId/verify", handler.Verify)
}
