package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pasarlink/pasarlink/internal/refund"
)

// RegisterRefundRoutes wires the refund workflow endpoints. openLimiter
// throttles refund creation to blunt abusive request storms.
func RegisterRefundRoutes(r fiber.Router, h *refund.Handler, openLimiter fiber.Handler) {
	r.Post("/refunds", openLimiter, h.Open)
	r.Get("/refunds/:refundId", h.Get)
	r.Get("/orders/:orderId/refunds", h.ListByOrder)
	r.Post("/refunds/:refundId/approve", h.Approve)
	r.Post("/refunds/:refundId/reject", h.Reject)
	r.Post("/refunds/:refundId/confirm-return", h.ConfirmReturn)
}
