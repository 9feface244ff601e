package handlers

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/models"
	"agrichain/internal/services"
)

type DisputeHandler struct {
	disputes *services.DisputeService
}

func NewDisputeHandler(disputes *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

type OpenDisputeRequest struct {
	OrderID           uint   `json:"order_id" validate:"required"`
	ReportedAgainstID uint   `json:"reported_against_id"`
	Reason            string `json:"reason" validate:"required"`
	Description       string `json:"description" validate:"required"`
}

type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required"`
}

// Open raises a dispute against an order. Allowed in any order state.
func (h *DisputeHandler) Open(c *fiber.Ctx) error {
	req := new(OpenDisputeRequest)
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

	dispute, err := h.disputes.Open(currentUserID(c), services.OpenDisputeInput{
		OrderID:           req.OrderID,
		ReportedAgainstID: req.ReportedAgainstID,
		Reason:            models.DisputeReason(req.Reason),
		Description:       req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Dispute raised. An administrator will review it.",
		"dispute": dispute,
	})
}

// Review moves the dispute under review, admin only.
func (h *DisputeHandler) Review(c *fiber.Ctx) error {
	disputeID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	dispute, err := h.disputes.MarkUnderReview(disputeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Dispute under review",
		"dispute": dispute,
	})
}

// Resolve closes out the dispute with a resolution text, admin only.
func (h *DisputeHandler) Resolve(c *fiber.Ctx) error {
	disputeID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(ResolveDisputeRequest)
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

	dispute, err := h.disputes.Resolve(disputeID, currentUserID(c), req.Resolution)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Dispute resolved",
		"dispute": dispute,
	})
}

// Close archives the dispute, admin only.
func (h *DisputeHandler) Close(c *fiber.Ctx) error {
	disputeID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	dispute, err := h.disputes.Close(disputeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Dispute closed",
		"dispute": dispute,
	})
}

// GetByID returns one dispute. Parties and admins only.
func (h *DisputeHandler) GetByID(c *fiber.Ctx) error {
	disputeID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	dispute, err := h.disputes.GetByID(disputeID)
	if err != nil {
		return respondError(c, err)
	}

	userID := currentUserID(c)
	role, _ := c.Locals("role").(models.Role)
	if dispute.ReportedByID != userID && dispute.ReportedAgainstID != userID && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this dispute",
		})
	}

	return c.JSON(fiber.Map{
		"dispute": dispute,
	})
}

// ListMine returns disputes the caller is involved in.
func (h *DisputeHandler) ListMine(c *fiber.Ctx) error {
	disputes, err := h.disputes.ListForUser(currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"disputes": disputes,
		"count":    len(disputes),
	})
}

// ListByOrder returns every dispute raised against an order.
func (h *DisputeHandler) ListByOrder(c *fiber.Ctx) error {
	orderID, err := paramID(c, "orderId")
	if err != nil {
		return err
	}

	disputes, err := h.disputes.ListByOrder(orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"disputes": disputes,
		"count":    len(disputes),
	})
}

// ListAll returns disputes optionally filtered by status, admin only.
func (h *DisputeHandler) ListAll(c *fiber.Ctx) error {
	disputes, err := h.disputes.ListByStatus(models.DisputeStatus(c.Query("status")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"disputes": disputes,
		"count":    len(disputes),
	})
}
