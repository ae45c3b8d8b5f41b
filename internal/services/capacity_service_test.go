package services_test

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/services"
)

// Seed data: u-meridian has capacity 1000 and three active lots totaling
// 120+60+35 = 215kg.

func TestCapacityValidate(t *testing.T) {
	e := newEnv(t)

	check, err := e.capacity.Validate("u-meridian", 700)
	if err != nil {
		t.Fatal(err)
	}
	if !check.Valid {
		t.Fatalf("700kg should fit: %+v", check)
	}
	if check.CurrentUsage != 215 {
		t.Fatalf("usage = %v, want 215", check.CurrentUsage)
	}
	if check.Available != 785 {
		t.Fatalf("available = %v, want 785", check.Available)
	}

	check, err = e.capacity.Validate("u-meridian", 800)
	if err != nil {
		t.Fatal(err)
	}
	if check.Valid {
		t.Fatalf("800kg should not fit: %+v", check)
	}
	if check.Message != "Would exceed capacity by 15.0kg" {
		t.Fatalf("message = %q", check.Message)
	}
}

func TestCapacityUsageIgnoresTerminalLots(t *testing.T) {
	e := newEnv(t)

	// Use up one lot entirely; its quantity must stop counting.
	if err := e.ledger.Consume("WST-DEMO002", 60, "u-admin"); err != nil {
		t.Fatal(err)
	}
	check, err := e.capacity.Validate("u-meridian", 0)
	if err != nil {
		t.Fatal(err)
	}
	if check.CurrentUsage != 155 {
		t.Fatalf("usage = %v, want 155", check.CurrentUsage)
	}
}

func TestCapacityUnsetFailsClosed(t *testing.T) {
	e := newEnv(t)

	u, err := e.auth.Register(services.RegisterInput{
		Email:       "ops@northloom.test",
		Name:        "Northloom",
		Password:    "Str0ng!pass",
		Role:        domain.RoleFactory,
		FactoryName: "Northloom",
		Location:    "Izmir",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.ledger.Submit(u.ID, services.SubmitInput{Material: "wool", Quantity: 10})
	var ce *domain.CapacityError
	if !errors.As(err, &ce) {
		t.Fatalf("want CapacityError, got %v", err)
	}
	if ce.Check.Message != "Factory capacity not set." {
		t.Fatalf("message = %q", ce.Check.Message)
	}

	// Explicit exemption waives the check entirely.
	if _, err := e.db.Exec(`UPDATE factory_profiles SET capacity_exempt=1 WHERE user_id=?`, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ledger.Submit(u.ID, services.SubmitInput{Material: "wool", Quantity: 100000}); err != nil {
		t.Fatal(err)
	}
}

func TestSubmitRejectedAtCapacity(t *testing.T) {
	e := newEnv(t)

	// 785kg of headroom left; the submit path enforces it.
	if _, err := e.ledger.Submit("u-meridian", services.SubmitInput{Material: "cotton", Quantity: 785}); err != nil {
		t.Fatal(err)
	}
	_, err := e.ledger.Submit("u-meridian", services.SubmitInput{Material: "cotton", Quantity: 1})
	var ce *domain.CapacityError
	if !errors.As(err, &ce) {
		t.Fatalf("want CapacityError, got %v", err)
	}
}

func TestRecommendedCapacity(t *testing.T) {
	e := newEnv(t)

	u, err := e.auth.Register(services.RegisterInput{
		Email:       "mill@eastmill.test",
		Name:        "Eastmill",
		Password:    "Str0ng!pass",
		Role:        domain.RoleFactory,
		FactoryName: "Eastmill",
		Location:    "Porto",
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, err := e.capacity.Recommended(u.ID, 30)
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Fatalf("no history should recommend nothing, got %v", *rec)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i, qty := range []float64{50, 150} {
		if _, err := e.db.Exec(`
			INSERT INTO waste_lots(id,factory_id,material,quantity,status,date_added)
			VALUES(?,?, 'cotton', ?, 'AVAILABLE', ?)
		`, fmt.Sprintf("WST-REC%d", i), u.ID, qty, now); err != nil {
			t.Fatal(err)
		}
	}

	rec, err = e.capacity.Recommended(u.ID, 30)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("expected a recommendation")
	}
	// mean 100, population stddev 50 -> (100 + 2*50) * 30
	if math.Abs(*rec-6000) > 1e-9 {
		t.Fatalf("recommended = %v, want 6000", *rec)
	}
}
