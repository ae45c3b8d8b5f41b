package handlers

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	applog "github.com/parvezdia/textile-waste-management/internal/log"
	"github.com/parvezdia/textile-waste-management/internal/repos"
	"github.com/parvezdia/textile-waste-management/internal/services"
	"github.com/parvezdia/textile-waste-management/internal/validate"
)

type WasteHandler struct {
	Ledger    *services.WasteService
	Capacity  *services.CapacityService
	Score     *services.ScoreService
	Factories *repos.FactoryRepo
}

func (h *WasteHandler) Submit(c *fiber.Ctx) error {
	u := currentUser(c)
	var body struct {
		Type            string  `json:"type"`
		Material        string  `json:"material"`
		Color           string  `json:"color"`
		Quantity        float64 `json:"quantity"`
		Unit            string  `json:"unit"`
		QualityGrade    string  `json:"quality_grade"`
		StorageLocation string  `json:"storage_location"`
		BatchNumber     string  `json:"batch_number"`
		Description     string  `json:"description"`
		ExpiryDate      string  `json:"expiry_date"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	if body.Quantity <= 0 {
		return badRequest(c, "quantity")
	}
	unit, ok := validate.Unit(body.Unit)
	if !ok {
		return badRequest(c, "unit")
	}
	in := services.SubmitInput{
		Type:            body.Type,
		Material:        body.Material,
		Color:           body.Color,
		Quantity:        body.Quantity,
		Unit:            unit,
		QualityGrade:    body.QualityGrade,
		StorageLocation: body.StorageLocation,
		BatchNumber:     body.BatchNumber,
		Description:     body.Description,
	}
	if body.QualityGrade != "" {
		grade, ok := validate.Grade(body.QualityGrade)
		if !ok {
			return badRequest(c, "quality_grade")
		}
		in.QualityGrade = grade
	}
	if body.ExpiryDate != "" {
		t, err := time.Parse(time.RFC3339, body.ExpiryDate)
		if err != nil {
			return badRequest(c, "expiry_date")
		}
		in.ExpiryDate = &t
	}

	lot, err := h.Ledger.Submit(u.ID, in)
	if err != nil {
		return fail(c, "waste.submit.fail", err)
	}
	applog.Audit(c, "waste.submit", map[string]any{"lot": lot.ID})
	return c.Status(fiber.StatusCreated).JSON(lot)
}

func (h *WasteHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	lot, err := h.Ledger.Get(id)
	if err != nil {
		return fail(c, "waste.get.fail", err)
	}
	return c.JSON(lot)
}

func (h *WasteHandler) History(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	hist, err := h.Ledger.History(id)
	if err != nil {
		return fail(c, "waste.history.fail", err)
	}
	return c.JSON(hist)
}

// ListMine lists the logged-in factory's lots.
func (h *WasteHandler) ListMine(c *fiber.Ctx) error {
	u := currentUser(c)
	lots, err := h.Ledger.ListByFactory(u.ID)
	if err != nil {
		return fail(c, "waste.list.fail", err)
	}
	return c.JSON(lots)
}

func (h *WasteHandler) Reserve(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	var body struct {
		Quantity float64 `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	child, err := h.Ledger.Reserve(id, body.Quantity, u.ID)
	if err != nil {
		return fail(c, "waste.reserve.fail", err)
	}
	applog.Audit(c, "waste.reserve", map[string]any{"lot": id, "child": child.ID, "quantity": body.Quantity})
	return c.Status(fiber.StatusCreated).JSON(child)
}

// CapacityStatus reports the factory's current headroom without changing
// anything.
func (h *WasteHandler) CapacityStatus(c *fiber.Ctx) error {
	u := currentUser(c)
	additional := 0.0
	if q := c.Query("additional"); q != "" {
		v, ok := validate.Quantity(q)
		if !ok {
			return badRequest(c, "additional")
		}
		additional = v
	}
	check, err := h.Capacity.Validate(u.ID, additional)
	if err != nil {
		return fail(c, "capacity.status.fail", err)
	}
	return c.JSON(check)
}

// CapacityRecommended suggests a capacity from recent intake history.
func (h *WasteHandler) CapacityRecommended(c *fiber.Ctx) error {
	u := currentUser(c)
	window := 30
	if q := c.Query("window_days"); q != "" {
		n, ok := validate.Units(q)
		if !ok {
			return badRequest(c, "window_days")
		}
		window = n
	}
	rec, err := h.Capacity.Recommended(u.ID, window)
	if err != nil {
		return fail(c, "capacity.recommended.fail", err)
	}
	return c.JSON(fiber.Map{"recommended": rec, "window_days": window})
}

// SetCapacity declares the factory's storage capacity. A null capacity
// reverts the profile to "not set", which fails intake closed.
func (h *WasteHandler) SetCapacity(c *fiber.Ctx) error {
	u := currentUser(c)
	var body struct {
		Capacity *float64 `json:"capacity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	var capacity sql.NullFloat64
	if body.Capacity != nil {
		if *body.Capacity <= 0 {
			return badRequest(c, "capacity")
		}
		capacity = sql.NullFloat64{Float64: *body.Capacity, Valid: true}
	}
	if err := h.Factories.SetCapacity(u.ID, capacity); err != nil {
		return fail(c, "capacity.set.fail", err)
	}
	applog.Audit(c, "capacity.set", map[string]any{"factory": u.ID, "capacity": body.Capacity})
	return c.JSON(fiber.Map{"ok": true})
}

// SetCertifications replaces the factory's declared certifications.
func (h *WasteHandler) SetCertifications(c *fiber.Ctx) error {
	u := currentUser(c)
	var body struct {
		Certifications []string `json:"certifications"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "body")
	}
	for _, cert := range body.Certifications {
		known := false
		for _, t := range domain.CertificationTypes {
			if t == cert {
				known = true
				break
			}
		}
		if !known {
			return badRequest(c, "certifications")
		}
	}
	raw, err := json.Marshal(body.Certifications)
	if err != nil {
		return badRequest(c, "certifications")
	}
	if err := h.Factories.UpdateCertifications(u.ID, string(raw)); err != nil {
		return fail(c, "certifications.set.fail", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Rescore recomputes a lot's sustainability score.
func (h *WasteHandler) Rescore(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id")
	}
	score, err := h.Score.UpdateScore(id, time.Now().UTC())
	if err != nil {
		return fail(c, "waste.rescore.fail", err)
	}
	return c.JSON(fiber.Map{"id": id, "score": score})
}
