package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pasarlink/pasarlink/internal/settlement"
)

// RegisterSettlementRoutes wires the manual settlement trigger.
func RegisterSettlementRoutes(r fiber.Router, h *settlement.Handler) {
	r.Post("/settlements/run", h.Run)
}
