package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/services"
)

func placeDemoOrder(t *testing.T, e *env, qty int) *domain.Order {
	t.Helper()
	o, err := e.orders.Place("u-oaktree", services.PlaceInput{
		DesignID:       "DSG-DEMO001",
		Quantity:       qty,
		Customizations: map[string]string{"color": "Blue", "size": "Large"},
		Address:        "14 Harbor Lane, Rotterdam",
	})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestPlaceOrder(t *testing.T) {
	e := newEnv(t)

	o := placeDemoOrder(t, e, 2)
	if !strings.HasPrefix(o.ID, "ORD-") {
		t.Fatalf("bad order id %q", o.ID)
	}
	if o.Status != domain.OrderPending {
		t.Fatalf("status = %s, want PENDING", o.Status)
	}
	// (150 + 7.50 + 12.50) * 2
	if !o.TotalPrice.Equal(d("340.00")) {
		t.Fatalf("total = %s, want 340.00", o.TotalPrice)
	}

	// A SALE transaction is written with the order.
	var txnType string
	if err := e.db.Get(&txnType, `SELECT type FROM transactions WHERE id=?`, "TXN-"+o.ID); err != nil {
		t.Fatal(err)
	}
	if txnType != domain.TxnSale {
		t.Fatalf("txn type = %s, want SALE", txnType)
	}
}

func TestPlaceOrderRejectsBadCustomizations(t *testing.T) {
	e := newEnv(t)

	_, err := e.orders.Place("u-oaktree", services.PlaceInput{
		DesignID:       "DSG-DEMO001",
		Quantity:       1,
		Customizations: map[string]string{"fabric": "Hemp"},
		Address:        "somewhere",
	})
	if err == nil {
		t.Fatal("unknown option should be rejected at placement")
	}

	_, err = e.orders.Place("u-oaktree", services.PlaceInput{
		DesignID:       "DSG-DEMO001",
		Quantity:       1,
		Customizations: map[string]string{"color": "Chartreuse"},
		Address:        "somewhere",
	})
	if err == nil {
		t.Fatal("unknown choice should be rejected at placement")
	}
}

func TestPlaceOrderRespectsFulfillable(t *testing.T) {
	e := newEnv(t)

	// Bound lots hold 120kg and 60kg, so at most 60 units.
	if _, err := e.orders.Place("u-oaktree", services.PlaceInput{
		DesignID: "DSG-DEMO001",
		Quantity: 61,
		Address:  "somewhere",
	}); err == nil {
		t.Fatal("order above the fulfillable quantity should fail")
	}
}

func TestOrderLifecycle(t *testing.T) {
	e := newEnv(t)
	o := placeDemoOrder(t, e, 2)

	// Skipping ahead is rejected.
	_, err := e.orders.Transition(o.ID, domain.OrderShipped, "u-admin")
	var ite *domain.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}

	for _, status := range []string{
		domain.OrderConfirmed,
		domain.OrderInProduction,
		domain.OrderReadyForDelivery,
		domain.OrderShipped,
		domain.OrderDelivered,
	} {
		if _, err := e.orders.Transition(o.ID, status, "u-admin"); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	// Delivery consumed 2 units from each bound lot.
	lot, err := e.ledger.Get("WST-DEMO001")
	if err != nil {
		t.Fatal(err)
	}
	if lot.Quantity != 118 {
		t.Fatalf("WST-DEMO001 qty = %v, want 118", lot.Quantity)
	}
	lot, err = e.ledger.Get("WST-DEMO002")
	if err != nil {
		t.Fatal(err)
	}
	if lot.Quantity != 58 {
		t.Fatalf("WST-DEMO002 qty = %v, want 58", lot.Quantity)
	}

	// DELIVERED is terminal.
	if _, err := e.orders.Transition(o.ID, domain.OrderConfirmed, "u-admin"); err == nil {
		t.Fatal("DELIVERED should be terminal")
	}
	admin := &domain.User{ID: "u-admin", Role: domain.RoleAdmin}
	if _, err := e.orders.Cancel(o.ID, admin); err == nil {
		t.Fatal("delivered order should not be cancellable")
	}

	// The designer heard about production starting.
	notifs, err := e.notify.List("u-anara", 20)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, n := range notifs {
		if n.Message == "Production has started for order "+o.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing production notification: %+v", notifs)
	}
}

func TestTransitionCancelEdge(t *testing.T) {
	e := newEnv(t)

	// PENDING can escape straight to CANCELED through the transition table.
	o := placeDemoOrder(t, e, 1)
	got, err := e.orders.Transition(o.ID, domain.OrderCanceled, "u-admin")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderCanceled {
		t.Fatalf("status = %s, want CANCELED", got.Status)
	}
	var refundType string
	if err := e.db.Get(&refundType, `SELECT type FROM transactions WHERE id=?`, "REF-"+o.ID); err != nil {
		t.Fatal(err)
	}
	if refundType != domain.TxnRefund {
		t.Fatalf("txn type = %s, want REFUND", refundType)
	}
	if _, err := e.orders.Transition(o.ID, domain.OrderConfirmed, "u-admin"); err == nil {
		t.Fatal("CANCELED should be terminal")
	}

	// A shipped order is past the cancel operation but keeps its table edge.
	o = placeDemoOrder(t, e, 1)
	for _, status := range []string{
		domain.OrderConfirmed,
		domain.OrderInProduction,
		domain.OrderReadyForDelivery,
		domain.OrderShipped,
	} {
		if _, err := e.orders.Transition(o.ID, status, "u-admin"); err != nil {
			t.Fatal(err)
		}
	}
	admin := &domain.User{ID: "u-admin", Role: domain.RoleAdmin}
	if _, err := e.orders.Cancel(o.ID, admin); err == nil {
		t.Fatal("cancel operation should refuse a shipped order")
	}
	got, err = e.orders.Transition(o.ID, domain.OrderCanceled, "u-admin")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderCanceled {
		t.Fatalf("status = %s, want CANCELED", got.Status)
	}
}

func TestDeliveryRollsBackOnShortStock(t *testing.T) {
	e := newEnv(t)
	o := placeDemoOrder(t, e, 40)

	for _, status := range []string{
		domain.OrderConfirmed,
		domain.OrderInProduction,
		domain.OrderReadyForDelivery,
		domain.OrderShipped,
	} {
		if _, err := e.orders.Transition(o.ID, status, "u-admin"); err != nil {
			t.Fatal(err)
		}
	}

	// Stock shrank underneath the order after placement.
	if err := e.ledger.Consume("WST-DEMO002", 30, "u-admin"); err != nil {
		t.Fatal(err)
	}

	_, err := e.orders.Transition(o.ID, domain.OrderDelivered, "u-admin")
	var ise *domain.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}

	// The whole delivery rolled back: order still SHIPPED, no lot touched.
	got, err := e.orders.Get(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderShipped {
		t.Fatalf("order status = %s, want SHIPPED", got.Status)
	}
	lot, err := e.ledger.Get("WST-DEMO001")
	if err != nil {
		t.Fatal(err)
	}
	if lot.Quantity != 120 {
		t.Fatalf("WST-DEMO001 qty = %v, want 120", lot.Quantity)
	}
}

func TestBuyerCancelRefunds(t *testing.T) {
	e := newEnv(t)
	o := placeDemoOrder(t, e, 1)

	buyer := &domain.User{ID: "u-oaktree", Role: domain.RoleBuyer}
	got, err := e.orders.Cancel(o.ID, buyer)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderCanceled {
		t.Fatalf("status = %s, want CANCELED", got.Status)
	}

	var refundType string
	if err := e.db.Get(&refundType, `SELECT type FROM transactions WHERE id=?`, "REF-"+o.ID); err != nil {
		t.Fatal(err)
	}
	if refundType != domain.TxnRefund {
		t.Fatalf("txn type = %s, want REFUND", refundType)
	}

	// Canceling twice fails.
	if _, err := e.orders.Cancel(o.ID, buyer); err == nil {
		t.Fatal("second cancel should fail")
	}
}

func TestBuyerCannotCancelOthersOrders(t *testing.T) {
	e := newEnv(t)
	o := placeDemoOrder(t, e, 1)

	u, err := e.auth.Register(services.RegisterInput{
		Email:    "rival@buyer.test",
		Name:     "Rival",
		Password: "Str0ng!pass",
		Role:     domain.RoleBuyer,
	})
	if err != nil {
		t.Fatal(err)
	}
	rival := &domain.User{ID: u.ID, Role: domain.RoleBuyer}
	if _, err := e.orders.Cancel(o.ID, rival); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestBuyerCancelWindowExpires(t *testing.T) {
	e := newEnv(t)
	o := placeDemoOrder(t, e, 1)

	// Age the order past the cancellation window.
	if _, err := e.db.Exec(`UPDATE orders SET date_ordered=? WHERE id=?`,
		"2026-01-01T00:00:00Z", o.ID); err != nil {
		t.Fatal(err)
	}

	buyer := &domain.User{ID: "u-oaktree", Role: domain.RoleBuyer}
	if _, err := e.orders.Cancel(o.ID, buyer); err == nil {
		t.Fatal("cancel outside the window should fail")
	}

	// Staff are not bound by the window.
	admin := &domain.User{ID: "u-admin", Role: domain.RoleAdmin}
	if _, err := e.orders.Cancel(o.ID, admin); err != nil {
		t.Fatal(err)
	}
}
