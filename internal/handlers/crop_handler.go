package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"agrichain/internal/services"
)

type CropHandler struct {
	inventory *services.InventoryService
}

func NewCropHandler(inventory *services.InventoryService) *CropHandler {
	return &CropHandler{inventory: inventory}
}

type RegisterCropRequest struct {
	CropName    string `json:"crop_name" validate:"required"`
	CropType    string `json:"crop_type"`
	Unit        string `json:"unit" validate:"required"`
	Description string `json:"description"`
	HarvestDate string `json:"harvest_date"`
	Location    string `json:"location"`
	Quantity    string `json:"quantity" validate:"required"`
}

type ListCropRequest struct {
	PricePerUnit string `json:"price_per_unit" validate:"required"`
}

// Register creates a new crop batch owned by the calling farmer.
func (h *CropHandler) Register(c *fiber.Ctx) error {
	req := new(RegisterCropRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quantity",
		})
	}

	batch, err := h.inventory.RegisterBatch(currentUserID(c), services.RegisterBatchInput{
		CropName:    req.CropName,
		CropType:    req.CropType,
		Unit:        req.Unit,
		Description: req.Description,
		HarvestDate: req.HarvestDate,
		Location:    req.Location,
		Quantity:    quantity,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Crop batch registered",
		"crop":    batch,
	})
}

// List puts the batch on the marketplace at the given unit price.
func (h *CropHandler) List(c *fiber.Ctx) error {
	cropID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(ListCropRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	price, err := decimal.NewFromString(req.PricePerUnit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid price",
		})
	}

	batch, err := h.inventory.ListForSale(cropID, currentUserID(c), price)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Crop batch listed for sale",
		"crop":    batch,
	})
}

// Unlist withdraws the batch from the marketplace.
func (h *CropHandler) Unlist(c *fiber.Ctx) error {
	cropID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	batch, err := h.inventory.Unlist(cropID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Crop batch unlisted",
		"crop":    batch,
	})
}

// Marketplace returns every batch currently listed for sale.
func (h *CropHandler) Marketplace(c *fiber.Ctx) error {
	batches, err := h.inventory.ListMarketplace()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"crops": batches,
		"count": len(batches),
	})
}

// MyInventory returns the caller's batches.
func (h *CropHandler) MyInventory(c *fiber.Ctx) error {
	batches, err := h.inventory.ListByOwner(currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"crops": batches,
		"count": len(batches),
	})
}

// GetByID returns one batch.
func (h *CropHandler) GetByID(c *fiber.Ctx) error {
	cropID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	batch, err := h.inventory.GetBatch(cropID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"crop": batch,
	})
}
