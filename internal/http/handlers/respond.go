package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	applog "github.com/parvezdia/textile-waste-management/internal/log"
)

// fail maps service errors to HTTP responses. Capacity rejections carry the
// usage numbers so factories can see how much room is left.
func fail(c *fiber.Ctx, action string, err error) error {
	var (
		ve *domain.ValidationError
		ce *domain.CapacityError
		se *domain.InsufficientStockError
		te *domain.InvalidTransitionError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &ce):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ce.Error(), "capacity": ce.Check})
	case errors.As(err, &se):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": se.Error(), "lot_id": se.LotID, "requested": se.Requested, "available": se.Available,
		})
	case errors.As(err, &te):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": te.Error(), "from": te.From, "to": te.To})
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Reason})
	}
	applog.Error(c, action, err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

func badRequest(c *fiber.Ctx, field string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid " + field})
}
