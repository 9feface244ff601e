package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/services"
)

var validate = validator.New()

// respondError maps engine error kinds to HTTP statuses. Anything without a
// kind is a storage failure: logged, returned as a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	kind := services.ErrorKind(err)
	if kind == "" {
		log.Printf("ERROR: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	status := fiber.StatusBadRequest
	switch kind {
	case "NOT_FOUND":
		status = fiber.StatusNotFound
	case "UNAUTHORIZED_ROLE":
		status = fiber.StatusForbidden
	case "ALREADY_RESOLVED", "ALREADY_COMPLETED", "SHIPMENT_CLOSED":
		status = fiber.StatusConflict
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  kind,
	})
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("user_id").(uint)
	return id
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id parameter")
	}
	return uint(id), nil
}
