package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	applog "github.com/parvezdia/textile-waste-management/internal/log"
	"github.com/parvezdia/textile-waste-management/internal/services"
	"github.com/parvezdia/textile-waste-management/internal/validate"
)

type DesignHandler struct {
	Designs *services.DesignService
	Pricing *services.PricingService
}

func (h *DesignHandler) Create(c *fiber.Ctx) error {
	u := currentUser(c)
	var body struct {
		Name                  string `json:"name"`
		Description           string `json:"description"`
		BasePrice             string `json:"base_price"`
		EstimatedDeliveryDays int    `json:"estimated_delivery_days"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	name, ok := validate.Name(body.Name)
	if !ok {
		return badRequest(c, "name")
	}
	price, err := decimal.NewFromString(body.BasePrice)
	if err != nil {
		return badRequest(c, "base_price")
	}
	d, err := h.Designs.Create(u.ID, services.CreateDesignInput{
		Name:                  name,
		Description:           body.Description,
		BasePrice:             price,
		EstimatedDeliveryDays: body.EstimatedDeliveryDays,
	})
	if err != nil {
		return fail(c, "design.create.fail", err)
	}
	applog.Audit(c, "design.create", map[string]any{"design": d.ID})
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *DesignHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	d, err := h.Designs.Get(id)
	if err != nil {
		return fail(c, "design.get.fail", err)
	}
	return c.JSON(d)
}

func (h *DesignHandler) ListPublished(c *fiber.Ctx) error {
	designs, err := h.Designs.ListPublished()
	if err != nil {
		return fail(c, "design.list.fail", err)
	}
	return c.JSON(designs)
}

func (h *DesignHandler) ListMine(c *fiber.Ctx) error {
	u := currentUser(c)
	designs, err := h.Designs.ListByDesigner(u.ID)
	if err != nil {
		return fail(c, "design.list.fail", err)
	}
	return c.JSON(designs)
}

func (h *DesignHandler) SetStatus(c *fiber.Ctx) error {
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
	d, err := h.Designs.SetStatus(id, u.ID, body.Status)
	if err != nil {
		return fail(c, "design.status.fail", err)
	}
	applog.Audit(c, "design.status", map[string]any{"design": id, "status": body.Status})
	return c.JSON(d)
}

func (h *DesignHandler) BindMaterial(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	var body struct {
		LotID string `json:"lot_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	lotID, ok := validate.ID(body.LotID)
	if !ok {
		return badRequest(c, "lot_id")
	}
	if err := h.Designs.BindMaterial(id, u.ID, lotID); err != nil {
		return fail(c, "design.bind.fail", err)
	}
	applog.Audit(c, "design.bind", map[string]any{"design": id, "lot": lotID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}

func (h *DesignHandler) UnbindMaterial(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	lotID, ok := validate.ID(c.Params("lotID"))
	if !ok {
		return badRequest(c, "lot_id")
	}
	if err := h.Designs.UnbindMaterial(id, u.ID, lotID); err != nil {
		return fail(c, "design.unbind.fail", err)
	}
	applog.Audit(c, "design.unbind", map[string]any{"design": id, "lot": lotID})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *DesignHandler) Materials(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	lots, err := h.Designs.Materials(id)
	if err != nil {
		return fail(c, "design.materials.fail", err)
	}
	return c.JSON(lots)
}

func (h *DesignHandler) Fulfillable(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	n, err := h.Designs.FulfillableQuantity(id)
	if err != nil {
		return fail(c, "design.fulfillable.fail", err)
	}
	return c.JSON(fiber.Map{"design_id": id, "fulfillable": n})
}

func (h *DesignHandler) AddOption(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	var body struct {
		Type    string             `json:"type"`
		Name    string             `json:"name"`
		Choices []string           `json:"choices"`
		Impact  domain.PriceImpact `json:"impact"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	opt, err := h.Designs.AddOption(id, u.ID, services.AddOptionInput{
		Type:    body.Type,
		Name:    body.Name,
		Choices: body.Choices,
		Impact:  body.Impact,
	})
	if err != nil {
		return fail(c, "design.option.fail", err)
	}
	return c.Status(fiber.StatusCreated).JSON(opt)
}

func (h *DesignHandler) RemoveOption(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	optID, ok := validate.ID(c.Params("optID"))
	if !ok {
		return badRequest(c, "option_id")
	}
	if err := h.Designs.RemoveOption(id, u.ID, optID); err != nil {
		return fail(c, "design.option.remove.fail", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *DesignHandler) Options(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	opts, err := h.Designs.Options(id)
	if err != nil {
		return fail(c, "design.options.fail", err)
	}
	return c.JSON(opts)
}

// Quote prices a prospective order without creating anything.
func (h *DesignHandler) Quote(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	var body struct {
		Quantity       int               `json:"quantity"`
		Customizations map[string]string `json:"customizations"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	if body.Quantity < 1 {
		body.Quantity = 1
	}
	total, err := h.Pricing.Quote(id, body.Customizations, body.Quantity)
	if err != nil {
		return fail(c, "design.quote.fail", err)
	}
	return c.JSON(fiber.Map{"design_id": id, "quantity": body.Quantity, "total": total})
}
