package services_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/services"
)

func TestFulfillableFromLots(t *testing.T) {
	lots := []domain.WasteLot{
		{Status: domain.LotAvailable, Quantity: 50.5},
		{Status: domain.LotReserved, Quantity: 30.2},
		{Status: domain.LotAvailable, Quantity: 80},
	}
	if got := services.FulfillableFromLots(lots); got != 30 {
		t.Fatalf("fulfillable = %d, want 30", got)
	}

	// Depleted and terminal lots do not count.
	lots = append(lots,
		domain.WasteLot{Status: domain.LotUsed, Quantity: 5},
		domain.WasteLot{Status: domain.LotAvailable, Quantity: 0},
	)
	if got := services.FulfillableFromLots(lots); got != 30 {
		t.Fatalf("fulfillable = %d, want 30", got)
	}

	// Nothing bound falls back to the default cap.
	if got := services.FulfillableFromLots(nil); got != services.DefaultFulfillable {
		t.Fatalf("fulfillable = %d, want %d", got, services.DefaultFulfillable)
	}
}

func TestFulfillableQuantity(t *testing.T) {
	e := newEnv(t)

	// DSG-DEMO001 is bound to 120kg and 60kg lots.
	n, err := e.designs.FulfillableQuantity("DSG-DEMO001")
	if err != nil {
		t.Fatal(err)
	}
	if n != 60 {
		t.Fatalf("fulfillable = %d, want 60", n)
	}

	// Consuming the scarce lot moves the bottleneck.
	if err := e.ledger.Consume("WST-DEMO002", 35.5, "u-admin"); err != nil {
		t.Fatal(err)
	}
	n, err = e.designs.FulfillableQuantity("DSG-DEMO001")
	if err != nil {
		t.Fatal(err)
	}
	if n != 24 {
		t.Fatalf("fulfillable = %d, want 24", n)
	}
}

func TestCreateDesignRequiresApproval(t *testing.T) {
	e := newEnv(t)

	u, err := e.auth.Register(services.RegisterInput{
		Email:    "kofi@atelier.test",
		Name:     "Kofi",
		Password: "Str0ng!pass",
		Role:     domain.RoleDesigner,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.designs.Create(u.ID, services.CreateDesignInput{
		Name:      "Remnant Scarf",
		BasePrice: decimal.NewFromInt(40),
	})
	if err == nil {
		t.Fatal("unapproved designer should not create designs")
	}

	if err := e.auth.ApproveDesigner(u.ID); err != nil {
		t.Fatal(err)
	}
	d, err := e.designs.Create(u.ID, services.CreateDesignInput{
		Name:      "Remnant Scarf",
		BasePrice: decimal.NewFromInt(40),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(d.ID, "DSG-") {
		t.Fatalf("bad design id %q", d.ID)
	}
	if d.Status != domain.DesignDraft {
		t.Fatalf("status = %s, want DRAFT", d.Status)
	}

	// No materials bound yet.
	n, err := e.designs.FulfillableQuantity(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != services.DefaultFulfillable {
		t.Fatalf("fulfillable = %d, want %d", n, services.DefaultFulfillable)
	}
}

func TestDeletedDesignIsImmutable(t *testing.T) {
	e := newEnv(t)

	d, err := e.designs.Create("u-anara", services.CreateDesignInput{
		Name:      "Offcut Jacket",
		BasePrice: decimal.NewFromInt(220),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.designs.SetStatus(d.ID, "u-anara", domain.DesignDeleted); err != nil {
		t.Fatal(err)
	}
	if _, err := e.designs.SetStatus(d.ID, "u-anara", domain.DesignPublished); err == nil {
		t.Fatal("deleted design should be immutable")
	}
	if err := e.designs.BindMaterial(d.ID, "u-anara", "WST-DEMO001"); err == nil {
		t.Fatal("binding to a deleted design should fail")
	}
}

func TestDesignReviewBeforePublication(t *testing.T) {
	e := newEnv(t)

	d, err := e.designs.Create("u-anara", services.CreateDesignInput{
		Name:      "Selvedge Tote",
		BasePrice: decimal.NewFromInt(85),
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.designs.SetStatus(d.ID, "u-anara", domain.DesignPendingReview)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.DesignPendingReview {
		t.Fatalf("status = %s, want PENDING_REVIEW", got.Status)
	}

	// A design under review is not in the public catalog yet.
	published, err := e.designs.ListPublished()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range published {
		if p.ID == d.ID {
			t.Fatal("unpublished design listed in catalog")
		}
	}

	if _, err := e.designs.SetStatus(d.ID, "u-anara", domain.DesignPublished); err != nil {
		t.Fatal(err)
	}
}

func TestBindMaterialOwnership(t *testing.T) {
	e := newEnv(t)

	// u-oaktree does not own DSG-DEMO001.
	if err := e.designs.BindMaterial("DSG-DEMO001", "u-oaktree", "WST-DEMO003"); err == nil {
		t.Fatal("binding someone else's design should fail")
	}

	if err := e.designs.BindMaterial("DSG-DEMO001", "u-anara", "WST-DEMO003"); err != nil {
		t.Fatal(err)
	}
	// Binding is idempotent.
	if err := e.designs.BindMaterial("DSG-DEMO001", "u-anara", "WST-DEMO003"); err != nil {
		t.Fatal(err)
	}
	lots, err := e.designs.Materials("DSG-DEMO001")
	if err != nil {
		t.Fatal(err)
	}
	if len(lots) != 3 {
		t.Fatalf("materials = %d, want 3", len(lots))
	}

	if err := e.designs.UnbindMaterial("DSG-DEMO001", "u-anara", "WST-DEMO003"); err != nil {
		t.Fatal(err)
	}
	lots, err = e.designs.Materials("DSG-DEMO001")
	if err != nil {
		t.Fatal(err)
	}
	if len(lots) != 2 {
		t.Fatalf("materials = %d, want 2", len(lots))
	}
}
