package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	applog "github.com/parvezdia/textile-waste-management/internal/log"
	"github.com/parvezdia/textile-waste-management/internal/services"
	"github.com/parvezdia/textile-waste-management/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

func (h *OrderHandler) Place(c *fiber.Ctx) error {
	u := currentUser(c)
	var body struct {
		DesignID       string            `json:"design_id"`
		Quantity       int               `json:"quantity"`
		Customizations map[string]string `json:"customizations"`
		PaymentMethod  string            `json:"payment_method"`
		Address        string            `json:"address"`
		Carrier        string            `json:"carrier"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	designID, ok := validate.ID(body.DesignID)
	if !ok {
		return badRequest(c, "design_id")
	}
	if body.Quantity < 1 || body.Quantity > 10000 {
		return badRequest(c, "quantity")
	}

	order, err := h.Orders.Place(u.ID, services.PlaceInput{
		DesignID:       designID,
		Quantity:       body.Quantity,
		Customizations: body.Customizations,
		PaymentMethod:  body.PaymentMethod,
		Address:        body.Address,
		Carrier:        body.Carrier,
	})
	if err != nil {
		return fail(c, "order.place.fail", err)
	}
	applog.Audit(c, "order.place", map[string]any{
		"order": order.ID, "design": designID, "quantity": body.Quantity, "total": order.TotalPrice.String(),
	})
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	o, err := h.Orders.Get(id)
	if err != nil {
		return fail(c, "order.get.fail", err)
	}
	if u.Role != domain.RoleAdmin && o.BuyerID != u.ID {
		applog.Security(c, "access.denied.order", map[string]any{"order": id, "user": u.ID})
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	return c.JSON(o)
}

// ListMine lists the logged-in buyer's orders.
func (h *OrderHandler) ListMine(c *fiber.Ctx) error {
	u := currentUser(c)
	orders, err := h.Orders.ListByBuyer(u.ID)
	if err != nil {
		return fail(c, "order.list.fail", err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	u := currentUser(c)
	if u.Role != domain.RoleBuyer && u.Role != domain.RoleAdmin {
		applog.Security(c, "access.denied.cancel", map[string]any{"user": u.ID, "role": u.Role})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	}
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	o, err := h.Orders.Cancel(id, u)
	if err != nil {
		return fail(c, "order.cancel.fail", err)
	}
	applog.Audit(c, "order.cancel", map[string]any{"order": id, "actor": u.ID})
	return c.JSON(o)
}
