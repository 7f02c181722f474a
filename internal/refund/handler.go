package refund

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes refund workflow HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a refund HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type openRequest struct {
	OrderID  string   `json:"order_id"`
	BuyerID  string   `json:"buyer_id"`
	Amount   int64    `json:"amount"`
	Reason   string   `json:"reason"`
	Evidence []string `json:"evidence"`
	Items    []struct {
		OrderItemID string `json:"order_item_id"`
		Quantity    int    `json:"quantity"`
	} `json:"items"`
}

type decisionRequest struct {
	RequiresReturn bool   `json:"requires_return"`
	Reason         string `json:"reason"`
	Accepted       bool   `json:"accepted"`
	InspectionNote string `json:"inspection_note"`
}

// Open creates a refund request for a completed order.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	input := OpenInput{
		OrderID:  req.OrderID,
		BuyerID:  req.BuyerID,
		Amount:   req.Amount,
		Reason:   req.Reason,
		Evidence: req.Evidence,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, ItemInput{OrderItemID: item.OrderItemID, Quantity: item.Quantity})
	}
	r, err := h.service.Open(c.UserContext(), input)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(r))
}

// Get returns a refund by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	r, err := h.service.Get(c.UserContext(), c.Params("refundId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(r))
}

// ListByOrder returns every refund opened against an order.
func (h *Handler) ListByOrder(c *fiber.Ctx) error {
	refunds, err := h.service.ListByOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return mapError(err)
	}
	out := make([]fiber.Map, 0, len(refunds))
	for _, r := range refunds {
		out = append(out, toResponse(r))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"refunds": out})
}

// Approve moves the refund to APPROVED.
func (h *Handler) Approve(c *fiber.Ctx) error {
	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	r, err := h.service.Approve(c.UserContext(), c.Params("refundId"), req.RequiresReturn)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(r))
}

// Reject ends the refund in REJECTED.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	r, err := h.service.Reject(c.UserContext(), c.Params("refundId"), req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(r))
}

// ConfirmReturn settles or rejects an approved refund after inspection.
func (h *Handler) ConfirmReturn(c *fiber.Ctx) error {
	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	r, err := h.service.ConfirmReturn(c.UserContext(), c.Params("refundId"), req.Accepted, req.InspectionNote)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(r))
}

func mapError(err error) error {
	var validation *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.As(err, &validation):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}

func toResponse(r Refund) fiber.Map {
	items := make([]fiber.Map, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, fiber.Map{
			"order_item_id": item.OrderItemID,
			"quantity":      item.Quantity,
			"amount":        item.Amount,
		})
	}
	return fiber.Map{
		"id":              r.ID,
		"order_id":        r.OrderID,
		"buyer_id":        r.BuyerID,
		"status":          string(r.Status),
		"amount":          r.Amount,
		"reason":          r.Reason,
		"evidence":        r.Evidence,
		"requires_return": r.RequiresReturn,
		"items":           items,
		"created_at":      r.CreatedAt,
		"updated_at":      r.UpdatedAt,
	}
}
