package routes

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/handlers"
	"agrichain/internal/middleware"
	"agrichain/internal/models"
	"agrichain/internal/services"
)

func SetupCropRoutes(app *fiber.App, registry *services.Registry) {
	handler := handlers.NewCropHandler(registry.Inventory)

	crops := app.Group("/api/crops", middleware.Protected())

	// Register a new batch (farmer)
	crops.Post("/", middleware.RequireRole(models.RoleFarmer), handler.Register)

	// Marketplace browse and own inventory
	crops.Get("/marketplace", handler.Marketplace)
	crops.Get("/mine", handler.MyInventory)

	// List / unlist a batch for sale (owner)
	crops.Post("/:id/list", handler.List)
	crops.Post("/:id/unlist", handler.Unlist)

	// Get specific batch
	crops.Get("/:id", handler.GetByID)
}
