package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	applog "github.com/parvezdia/textile-waste-management/internal/log"
	"github.com/parvezdia/textile-waste-management/internal/services"
	"github.com/parvezdia/textile-waste-management/internal/validate"
)

// AdminHandler groups review and back-office operations.
type AdminHandler struct {
	Ledger *services.WasteService
	Orders *services.OrderService
	Auth   *services.AuthService
}

func (h *AdminHandler) ApproveWaste(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	lot, err := h.Ledger.Approve(id, u.ID)
	if err != nil {
		return fail(c, "admin.waste.approve.fail", err)
	}
	applog.Audit(c, "admin.waste.approve", map[string]any{"lot": id})
	return c.JSON(lot)
}

func (h *AdminHandler) RejectWaste(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	lot, err := h.Ledger.Reject(id, u.ID, body.Reason)
	if err != nil {
		return fail(c, "admin.waste.reject.fail", err)
	}
	applog.Audit(c, "admin.waste.reject", map[string]any{"lot": id, "reason": body.Reason})
	return c.JSON(lot)
}

// SweepExpired expires every overdue lot.
func (h *AdminHandler) SweepExpired(c *fiber.Ctx) error {
	n, err := h.Ledger.SweepExpired(time.Now().UTC())
	if err != nil {
		return fail(c, "admin.waste.sweep.fail", err)
	}
	applog.Audit(c, "admin.waste.sweep", map[string]any{"expired": n})
	return c.JSON(fiber.Map{"expired": n})
}

// TransitionOrder moves an order along the fulfillment lifecycle.
func (h *AdminHandler) TransitionOrder(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	o, err := h.Orders.Transition(id, body.Status, u.ID)
	if err != nil {
		return fail(c, "admin.order.transition.fail", err)
	}
	return c.JSON(o)
}

func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	limit := 50
	if q := c.Query("limit"); q != "" {
		n, ok := validate.Units(q)
		if !ok {
			return badRequest(c, "limit")
		}
		limit = n
	}
	orders, err := h.Orders.ListLatest(limit)
	if err != nil {
		return fail(c, "admin.order.list.fail", err)
	}
	return c.JSON(orders)
}

func (h *AdminHandler) ApproveDesigner(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	if err := h.Auth.ApproveDesigner(id); err != nil {
		return fail(c, "admin.designer.approve.fail", err)
	}
	applog.Audit(c, "admin.designer.approve", map[string]any{"designer": id})
	return c.JSON(fiber.Map{"ok": true})
}
