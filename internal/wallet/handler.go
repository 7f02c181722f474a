package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type movementRequest struct {
	OwnerKind   string `json:"owner_kind"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	OrderID     string `json:"order_id"`
}

type walletResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	OwnerKind string `json:"owner_kind"`
	Balance   int64  `json:"balance"`
}

// Balance returns the owner's wallet balance, provisioning on first access.
func (h *Handler) Balance(c *fiber.Ctx) error {
	ownerID := c.Params("ownerId")
	kind := OwnerKind(c.Query("kind", string(OwnerBuyer)))
	balance, err := h.service.Balance(c.UserContext(), ownerID, kind)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner_id": ownerID,
		"balance":  balance,
	})
}

// Deposit credits the owner's wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	ownerID := c.Params("ownerId")
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Deposit(c.UserContext(), DepositInput{
		OwnerID:     ownerID,
		OwnerKind:   OwnerKind(req.OwnerKind),
		Amount:      req.Amount,
		Description: req.Description,
		OrderID:     req.OrderID,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}

// Withdraw debits the owner's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	ownerID := c.Params("ownerId")
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		OwnerID:     ownerID,
		OwnerKind:   OwnerKind(req.OwnerKind),
		Amount:      req.Amount,
		Description: req.Description,
		OrderID:     req.OrderID,
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}

// Entries lists the owner's ledger history, newest first.
func (h *Handler) Entries(c *fiber.Ctx) error {
	ownerID := c.Params("ownerId")
	limit := c.QueryInt("limit", 50)
	entries, err := h.service.Entries(c.UserContext(), ownerID, limit)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"id":          e.ID,
			"type":        string(e.Type),
			"amount":      e.Amount,
			"description": e.Description,
			"order_id":    e.OrderID,
			"created_at":  e.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"owner_id": ownerID, "entries": out})
}

func toResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		OwnerKind: string(w.OwnerKind),
		Balance:   w.Balance,
	}
}
