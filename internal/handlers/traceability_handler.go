package handlers

import (
	"github.com/gofiber/fiber/v2"

	"agrichain/internal/services"
)

type TraceabilityHandler struct {
	chain *services.TraceabilityService
}

func NewTraceabilityHandler(chain *services.TraceabilityService) *TraceabilityHandler {
	return &TraceabilityHandler{chain: chain}
}

// GetChain returns the batch's full trace chain, oldest first.
func (h *TraceabilityHandler) GetChain(c *fiber.Ctx) error {
	cropID, err := paramID(c, "cropId")
	if err != nil {
		return err
	}

	records, err := h.chain.GetChain(cropID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"crop_id": cropID,
		"records": records,
		"count":   len(records),
	})
}

// Verify recomputes the chain and reports whether it is intact. A broken
// chain is reported with kind INTEGRITY_MISMATCH but still a 200: integrity
// is a signal the caller decides what to do with.
func (h *TraceabilityHandler) Verify(c *fiber.Ctx) error {
	cropID, err := paramID(c, "cropId")
	if err != nil {
		return err
	}

	ok, err := h.chain.Verify(cropID)
	if err != nil {
		return respondError(c, err)
	}

	resp := fiber.Map{
		"crop_id": cropID,
		"valid":   ok,
	}
	if !ok {
		resp["kind"] = "INTEGRITY_MISMATCH"
	}
	return c.JSON(resp)
}
