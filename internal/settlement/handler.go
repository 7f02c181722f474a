package settlement

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the manual settlement trigger.
type Handler struct {
	runner *Runner
}

// NewHandler builds a settlement HTTP handler.
func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

// Run triggers one settlement batch, honoring the run-lock.
func (h *Handler) Run(c *fiber.Ctx) error {
	result, err := h.runner.RunOnce(c.UserContext())
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
}
