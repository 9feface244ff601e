package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"agrichain/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type InitiatePaymentRequest struct {
	OrderID uint   `json:"order_id" validate:"required"`
	Amount  string `json:"amount" validate:"required"`
	Method  string `json:"method"`
}

type CompletePaymentRequest struct {
	TransactionID string `json:"transaction_id"`
}

// Initiate creates a PENDING payment for the order.
func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	req := new(InitiatePaymentRequest)
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

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid amount",
		})
	}

	payment, err := h.payments.Initiate(currentUserID(c), req.OrderID, amount, req.Method)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Payment initiated",
		"payment": payment,
	})
}

// Complete records the processor's confirmation.
func (h *PaymentHandler) Complete(c *fiber.Ctx) error {
	paymentID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(CompletePaymentRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	payment, err := h.payments.Complete(paymentID, req.TransactionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Payment completed",
		"payment": payment,
	})
}

// Fail records the processor's failure report.
func (h *PaymentHandler) Fail(c *fiber.Ctx) error {
	paymentID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.payments.Fail(paymentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Payment marked as failed",
		"payment": payment,
	})
}

// GetByOrder returns the order's payment state.
func (h *PaymentHandler) GetByOrder(c *fiber.Ctx) error {
	orderID, err := paramID(c, "orderId")
	if err != nil {
		return err
	}

	payment, err := h.payments.GetByOrder(orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"payment": payment,
	})
}
