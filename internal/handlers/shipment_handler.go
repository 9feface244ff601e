package handlers

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/models"
	"agrichain/internal/services"
)

type ShipmentHandler struct {
	shipments *services.ShipmentService
}

func NewShipmentHandler(shipments *services.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{shipments: shipments}
}

type CreateShipmentRequest struct {
	OrderID       uint   `json:"order_id" validate:"required"`
	Location      string `json:"location" validate:"required"`
	TransportMode string `json:"transport_mode"`
	CarrierName   string `json:"carrier_name"`
}

type UpdateLocationRequest struct {
	Location string `json:"location" validate:"required"`
}

type UpdateTelemetryRequest struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Create opens a shipment for an accepted order; the order moves to SHIPPED
// in the same step.
func (h *ShipmentHandler) Create(c *fiber.Ctx) error {
	req := new(CreateShipmentRequest)
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

	shipment, err := h.shipments.Create(currentUserID(c), services.CreateShipmentInput{
		OrderID:       req.OrderID,
		Location:      req.Location,
		TransportMode: req.TransportMode,
		CarrierName:   req.CarrierName,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Shipment created",
		"shipment": shipment,
	})
}

// UpdateLocation records a new position for the shipment.
func (h *ShipmentHandler) UpdateLocation(c *fiber.Ctx) error {
	shipmentID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(UpdateLocationRequest)
	if err := c.BodyParser(req); err != nil || req.Location == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	shipment, err := h.shipments.UpdateLocation(shipmentID, currentUserID(c), req.Location)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Location updated",
		"shipment": shipment,
	})
}

// UpdateTelemetry records sensor readings.
func (h *ShipmentHandler) UpdateTelemetry(c *fiber.Ctx) error {
	shipmentID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(UpdateTelemetryRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	shipment, err := h.shipments.UpdateTelemetry(shipmentID, currentUserID(c), req.Temperature, req.Humidity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Telemetry updated",
		"shipment": shipment,
	})
}

// Simulate advances the shipment one waypoint toward its destination.
func (h *ShipmentHandler) Simulate(c *fiber.Ctx) error {
	shipmentID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	shipment, err := h.shipments.SimulateMovement(shipmentID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Shipment advanced",
		"shipment": shipment,
	})
}

// Deliver confirms delivery explicitly.
func (h *ShipmentHandler) Deliver(c *fiber.Ctx) error {
	shipmentID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	shipment, err := h.shipments.MarkDelivered(shipmentID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Shipment delivered",
		"shipment": shipment,
	})
}

// GetByOrder returns the shipment bound to an order.
func (h *ShipmentHandler) GetByOrder(c *fiber.Ctx) error {
	orderID, err := paramID(c, "orderId")
	if err != nil {
		return err
	}

	shipment, err := h.shipments.GetByOrder(orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"shipment": shipment,
	})
}

// Track looks a shipment up by tracking number.
func (h *ShipmentHandler) Track(c *fiber.Ctx) error {
	shipment, err := h.shipments.Track(c.Params("trackingNumber"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"shipment": shipment,
	})
}

// ListByStatus returns shipments filtered by status, admin only.
func (h *ShipmentHandler) ListByStatus(c *fiber.Ctx) error {
	shipments, err := h.shipments.ListByStatus(models.ShipmentStatus(c.Query("status")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"shipments": shipments,
		"count":     len(shipments),
	})
}
