package services_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/services"
)

func TestSubmitAndReview(t *testing.T) {
	e := newEnv(t)

	lot, err := e.ledger.Submit("u-meridian", services.SubmitInput{
		Type:         "offcut",
		Material:     "cotton",
		Quantity:     100,
		QualityGrade: domain.QualityExcellent,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(lot.ID, "WST-") {
		t.Fatalf("bad lot id %q", lot.ID)
	}
	if lot.Status != domain.LotPendingReview {
		t.Fatalf("status = %s, want PENDING_REVIEW", lot.Status)
	}
	if lot.Score != 10 { // 1.0 * (100/1000) * 100
		t.Fatalf("score = %v, want 10", lot.Score)
	}

	approved, err := e.ledger.Approve(lot.ID, "u-admin")
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != domain.LotAvailable {
		t.Fatalf("status = %s, want AVAILABLE", approved.Status)
	}

	// Review is only valid once.
	if _, err := e.ledger.Approve(lot.ID, "u-admin"); err == nil {
		t.Fatal("second approve should fail")
	}

	hist, err := e.ledger.History(lot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("history entries = %d, want 2", len(hist))
	}
	if hist[0].Status != domain.LotAvailable || hist[1].Status != domain.LotPendingReview {
		t.Fatalf("history order wrong: %+v", hist)
	}

	// The factory is told about the review outcome.
	notifs, err := e.notify.List("u-meridian", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(notifs) == 0 || !strings.Contains(notifs[0].Message, "approved") {
		t.Fatalf("expected approval notification, got %+v", notifs)
	}
}

func TestRejectKeepsReason(t *testing.T) {
	e := newEnv(t)

	lot, err := e.ledger.Reject("WST-DEMO003", "u-admin", "contaminated batch")
	if err != nil {
		t.Fatal(err)
	}
	if lot.Status != domain.LotRejected {
		t.Fatalf("status = %s, want REJECTED", lot.Status)
	}
	hist, err := e.ledger.History("WST-DEMO003")
	if err != nil {
		t.Fatal(err)
	}
	if hist[0].Notes != "contaminated batch" {
		t.Fatalf("notes = %q", hist[0].Notes)
	}
}

func TestCheckExpiryIdempotent(t *testing.T) {
	e := newEnv(t)

	past := time.Now().UTC().Add(-48 * time.Hour)
	lot, err := e.ledger.Submit("u-meridian", services.SubmitInput{
		Material:   "linen",
		Quantity:   20,
		ExpiryDate: &past,
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	got, err := e.ledger.CheckExpiry(lot.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.LotExpired {
		t.Fatalf("status = %s, want EXPIRED", got.Status)
	}
	n1, err := e.waste.HistoryCount(lot.ID)
	if err != nil {
		t.Fatal(err)
	}

	// Second pass must change nothing and append nothing.
	got, err = e.ledger.CheckExpiry(lot.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.LotExpired {
		t.Fatalf("status = %s after second check", got.Status)
	}
	n2, err := e.waste.HistoryCount(lot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n1 != n2 {
		t.Fatalf("history grew from %d to %d on a no-op", n1, n2)
	}
}

func TestCheckExpiryLeavesFreshLotsAlone(t *testing.T) {
	e := newEnv(t)

	future := time.Now().UTC().Add(30 * 24 * time.Hour)
	lot, err := e.ledger.Submit("u-meridian", services.SubmitInput{
		Material:   "denim",
		Quantity:   10,
		ExpiryDate: &future,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.ledger.CheckExpiry(lot.ID, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.LotPendingReview {
		t.Fatalf("fresh lot expired: %s", got.Status)
	}
}

func TestSweepExpired(t *testing.T) {
	e := newEnv(t)

	past := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 2; i++ {
		if _, err := e.ledger.Submit("u-meridian", services.SubmitInput{
			Material:   "jute",
			Quantity:   5,
			ExpiryDate: &past,
		}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := e.ledger.SweepExpired(time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
}

func TestConsumeRestoreRoundTrip(t *testing.T) {
	e := newEnv(t)

	// WST-DEMO002 starts AVAILABLE with 60kg.
	if err := e.ledger.Consume("WST-DEMO002", 60, "u-admin"); err != nil {
		t.Fatal(err)
	}
	lot, err := e.ledger.Get("WST-DEMO002")
	if err != nil {
		t.Fatal(err)
	}
	if lot.Status != domain.LotUsed || lot.Quantity != 0 {
		t.Fatalf("after full consume: status=%s qty=%v", lot.Status, lot.Quantity)
	}

	// Restoring stock revives the lot.
	if err := e.ledger.Restore("WST-DEMO002", 10, "u-admin"); err != nil {
		t.Fatal(err)
	}
	lot, err = e.ledger.Get("WST-DEMO002")
	if err != nil {
		t.Fatal(err)
	}
	if lot.Status != domain.LotAvailable || lot.Quantity != 10 {
		t.Fatalf("after restore: status=%s qty=%v", lot.Status, lot.Quantity)
	}

	// Asking for more than is held is surfaced, never clamped.
	err = e.ledger.Consume("WST-DEMO002", 25, "u-admin")
	var ise *domain.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if ise.Requested != 25 || ise.Available != 10 {
		t.Fatalf("error detail: %+v", ise)
	}
	lot, _ = e.ledger.Get("WST-DEMO002")
	if lot.Quantity != 10 {
		t.Fatalf("failed consume changed quantity to %v", lot.Quantity)
	}
}

func TestReserveSplitsLot(t *testing.T) {
	e := newEnv(t)

	child, err := e.ledger.Reserve("WST-DEMO001", 20, "u-meridian")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(child.ID, "WST-DEMO001_R") {
		t.Fatalf("child id = %q", child.ID)
	}
	if child.Status != domain.LotReserved || child.Quantity != 20 {
		t.Fatalf("child: status=%s qty=%v", child.Status, child.Quantity)
	}

	parent, err := e.ledger.Get("WST-DEMO001")
	if err != nil {
		t.Fatal(err)
	}
	if parent.Quantity != 100 {
		t.Fatalf("parent qty = %v, want 100", parent.Quantity)
	}

	// RESERVED still occupies storage, so usage is unchanged.
	check, err := e.capacity.Validate("u-meridian", 0)
	if err != nil {
		t.Fatal(err)
	}
	if check.CurrentUsage != 215 {
		t.Fatalf("usage = %v, want 215", check.CurrentUsage)
	}

	// Only AVAILABLE lots can be split.
	if _, err := e.ledger.Reserve(child.ID, 5, "u-meridian"); err == nil {
		t.Fatal("reserving a RESERVED lot should fail")
	}

	// Back-to-back reserves from one parent get distinct child ids.
	second, err := e.ledger.Reserve("WST-DEMO001", 10, "u-meridian")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == child.ID {
		t.Fatalf("duplicate child id %q", second.ID)
	}
}
