package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"agrichain/internal/models"
	"agrichain/internal/services"
)

type OrderHandler struct {
	orders   *services.OrderService
	payments *services.PaymentService
}

func NewOrderHandler(orders *services.OrderService, payments *services.PaymentService) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments}
}

type CreateOrderRequest struct {
	CropID   uint   `json:"crop_id" validate:"required"`
	Quantity string `json:"quantity" validate:"required"`
}

// Create places a buy request and reserves the quantity.
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	req := new(CreateOrderRequest)
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

	order, err := h.orders.Create(currentUserID(c), req.CropID, quantity)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed. Waiting for the seller to accept.",
		"order":   order,
	})
}

// Accept - seller accepts the order.
func (h *OrderHandler) Accept(c *fiber.Ctx) error {
	return h.transition(c, h.orders.Accept, "Order accepted")
}

// Reject - seller rejects the order, reservation is released.
func (h *OrderHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.orders.Reject, "Order rejected. Reserved quantity returned to the batch.")
}

// Cancel - buyer cancels a pending order.
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, h.orders.Cancel, "Order cancelled. Reserved quantity returned to the batch.")
}

// ConfirmDelivery - either party confirms the shipped order arrived.
func (h *OrderHandler) ConfirmDelivery(c *fiber.Ctx) error {
	return h.transition(c, h.orders.ConfirmDelivered, "Delivery confirmed. Ownership transferred.")
}

func (h *OrderHandler) transition(c *fiber.Ctx, fn func(orderID, actorID uint) (*models.Order, error), message string) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	order, err := fn(orderID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": message,
		"order":   order,
	})
}

// GetByID returns one order with its payment state alongside, so callers
// can apply their own settlement policy.
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetByID(orderID)
	if err != nil {
		return respondError(c, err)
	}

	userID := currentUserID(c)
	role, _ := c.Locals("role").(models.Role)
	if order.BuyerID != userID && order.SellerID != userID && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this order",
		})
	}

	paymentStatus := "NONE"
	if payment, err := h.payments.GetByOrder(orderID); err == nil {
		paymentStatus = string(payment.Status)
	}

	return c.JSON(fiber.Map{
		"order":          order,
		"payment_status": paymentStatus,
	})
}

// ListMine returns the caller's orders, optionally filtered by side.
func (h *OrderHandler) ListMine(c *fiber.Ctx) error {
	orders, err := h.orders.ListForUser(currentUserID(c), c.Query("role"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"count":  len(orders),
	})
}

// ListPending returns REQUESTED orders awaiting the caller's decision.
func (h *OrderHandler) ListPending(c *fiber.Ctx) error {
	orders, err := h.orders.PendingForSeller(currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"count":  len(orders),
	})
}

// ListAll returns every order, admin only.
func (h *OrderHandler) ListAll(c *fiber.Ctx) error {
	orders, err := h.orders.ListAll()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"count":  len(orders),
	})
}
