package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parvezdia/textile-waste-management/internal/services"
	"github.com/parvezdia/textile-waste-management/internal/validate"
)

type NotificationHandler struct {
	Notify *services.NotificationService
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	u := currentUser(c)
	limit := 50
	if q := c.Query("limit"); q != "" {
		n, ok := validate.Units(q)
		if !ok {
			return badRequest(c, "limit")
		}
		limit = n
	}
	items, err := h.Notify.List(u.ID, limit)
	if err != nil {
		return fail(c, "notifications.list.fail", err)
	}
	return c.JSON(items)
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	if err := h.Notify.MarkRead(id, u.ID); err != nil {
		return fail(c, "notifications.read.fail", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
