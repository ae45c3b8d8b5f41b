package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	applog "github.com/parvezdia/textile-waste-management/internal/log"
	"github.com/parvezdia/textile-waste-management/internal/repos"
)

// WasteService is the waste ledger: it owns lot status transitions and is
// the only component allowed to mutate lot quantities.
type WasteService struct {
	DB       *sqlx.DB
	Waste    *repos.WasteRepo
	Capacity *CapacityService
	Notify   NotificationGateway
}

func NewWasteService(db *sqlx.DB, waste *repos.WasteRepo, capacity *CapacityService, notify NotificationGateway) *WasteService {
	return &WasteService{DB: db, Waste: waste, Capacity: capacity, Notify: notify}
}

// SubmitInput carries the factory-supplied lot attributes.
type SubmitInput struct {
	Type            string
	Material        string
	Color           string
	Quantity        float64
	Unit            string
	QualityGrade    string
	StorageLocation string
	BatchNumber     string
	Description     string
	ExpiryDate      *time.Time
}

// Submit validates capacity and creates a lot in PENDING_REVIEW. The usage
// derivation, capacity check and insert run in one transaction so two
// concurrent submissions cannot jointly exceed capacity; the unit is
// retried once on a lock conflict.
func (s *WasteService) Submit(factoryID string, in SubmitInput) (*domain.WasteLot, error) {
	if in.Quantity <= 0 {
		return nil, domain.Validationf("quantity must be positive")
	}
	if in.Material == "" {
		return nil, domain.Validationf("material is required")
	}
	if in.Unit == "" {
		in.Unit = "kg"
	}
	if in.QualityGrade == "" {
		in.QualityGrade = domain.QualityGood
	}
	if _, ok := qualityWeights[in.QualityGrade]; !ok {
		return nil, domain.Validationf("unknown quality grade %q", in.QualityGrade)
	}

	now := time.Now().UTC()
	var lot *domain.WasteLot
	err := repos.WithTxRetry(s.DB, func(tx *sqlx.Tx) error {
		check, err := s.Capacity.ValidateTx(tx, factoryID, in.Quantity)
		if err != nil {
			return err
		}
		if !check.Valid {
			return &domain.CapacityError{Check: check}
		}

		l := &domain.WasteLot{
			ID:              newID("WST"),
			FactoryID:       factoryID,
			Type:            in.Type,
			Material:        in.Material,
			Color:           in.Color,
			Quantity:        in.Quantity,
			Unit:            in.Unit,
			QualityGrade:    in.QualityGrade,
			Status:          domain.LotPendingReview,
			StorageLocation: in.StorageLocation,
			BatchNumber:     in.BatchNumber,
			Description:     in.Description,
			DateAdded:       now.Format(time.RFC3339),
		}
		if in.ExpiryDate != nil {
			l.ExpiryDate = sql.NullString{String: in.ExpiryDate.UTC().Format(time.RFC3339), Valid: true}
		}
		l.Score = SustainabilityScore(l, now)

		if err := s.Waste.Insert(tx, l); err != nil {
			return err
		}
		if err := s.Waste.AppendHistory(tx, l.ID, l.Status, actorOf(factoryID), "submitted"); err != nil {
			return err
		}
		lot = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	applog.Info(nil, "waste.submit", map[string]any{
		"lot": lot.ID, "factory": factoryID, "quantity": in.Quantity, "unit": in.Unit,
	})
	return lot, nil
}

// Approve moves a pending lot to AVAILABLE and notifies the factory.
func (s *WasteService) Approve(lotID, actorID string) (*domain.WasteLot, error) {
	lot, err := s.review(lotID, actorID, domain.LotAvailable, "approved")
	if err != nil {
		return nil, err
	}
	s.Notify.Notify(lot.FactoryID, domain.NotifyWasteReview,
		fmt.Sprintf("Your waste lot %s has been approved", lotID))
	return lot, nil
}

// Reject moves a pending lot to REJECTED with a reason and notifies the
// factory.
func (s *WasteService) Reject(lotID, actorID, reason string) (*domain.WasteLot, error) {
	if reason == "" {
		reason = "rejected"
	}
	lot, err := s.review(lotID, actorID, domain.LotRejected, reason)
	if err != nil {
		return nil, err
	}
	s.Notify.Notify(lot.FactoryID, domain.NotifyWasteReview,
		fmt.Sprintf("Your waste lot %s has been rejected: %s", lotID, reason))
	return lot, nil
}

func (s *WasteService) review(lotID, actorID, target, note string) (*domain.WasteLot, error) {
	var lot *domain.WasteLot
	err := repos.WithTx(s.DB, func(tx *sqlx.Tx) error {
		l, err := s.Waste.GetTx(tx, lotID)
		if err != nil {
			return err
		}
		if l.Status != domain.LotPendingReview {
			return domain.Validationf("lot %s is %s; only PENDING_REVIEW lots can be reviewed", lotID, l.Status)
		}
		if err := s.Waste.UpdateStatus(tx, lotID, target, actorOf(actorID)); err != nil {
			return err
		}
		if err := s.Waste.AppendHistory(tx, lotID, target, actorOf(actorID), note); err != nil {
			return err
		}
		l.Status = target
		lot = l
		return nil
	})
	return lot, err
}

// CheckExpiry expires a lot past its expiry date. Idempotent: an already
// EXPIRED (or otherwise terminal) lot is left untouched and no duplicate
// history entry is appended.
func (s *WasteService) CheckExpiry(lotID string, now time.Time) (*domain.WasteLot, error) {
	var lot *domain.WasteLot
	err := repos.WithTx(s.DB, func(tx *sqlx.Tx) error {
		l, err := s.Waste.GetTx(tx, lotID)
		if err != nil {
			return err
		}
		lot = l
		if l.Status != domain.LotPendingReview && l.Status != domain.LotAvailable {
			return nil
		}
		expiry, ok := l.ExpiresAt()
		if !ok || !now.After(expiry) {
			return nil
		}
		if err := s.Waste.UpdateStatus(tx, lotID, domain.LotExpired, sql.NullString{}); err != nil {
			return err
		}
		if err := s.Waste.AppendHistory(tx, lotID, domain.LotExpired, sql.NullString{}, "expired"); err != nil {
			return err
		}
		l.Status = domain.LotExpired
		return nil
	})
	return lot, err
}

// SweepExpired expires every overdue lot and returns how many changed.
func (s *WasteService) SweepExpired(now time.Time) (int, error) {
	lots, err := s.Waste.ListExpirable(now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	swept := 0
	for i := range lots {
		if _, err := s.CheckExpiry(lots[i].ID, now); err != nil {
			return swept, err
		}
		swept++
	}
	if swept > 0 {
		applog.Info(nil, "waste.sweep", map[string]any{"expired": swept})
	}
	return swept, nil
}

// Consume decrements a lot's quantity in its own transaction.
func (s *WasteService) Consume(lotID string, qty float64, actorID string) error {
	return repos.WithTxRetry(s.DB, func(tx *sqlx.Tx) error {
		return s.ConsumeTx(tx, lotID, qty, actorID)
	})
}

// ConsumeTx decrements quantity inside a caller-owned transaction, flipping
// the lot to USED when it reaches exactly zero. Requests beyond the held
// quantity fail with InsufficientStockError; they mean the caller skipped
// its fulfillable-quantity check.
func (s *WasteService) ConsumeTx(tx *sqlx.Tx, lotID string, qty float64, actorID string) error {
	if qty <= 0 {
		return domain.Validationf("consume quantity must be positive")
	}
	lot, err := s.Waste.GetTx(tx, lotID)
	if err != nil {
		return err
	}
	if qty > lot.Quantity {
		return &domain.InsufficientStockError{LotID: lotID, Requested: qty, Available: lot.Quantity}
	}
	remaining := lot.Quantity - qty
	status := lot.Status
	if remaining == 0 {
		status = domain.LotUsed
	}
	if err := s.Waste.UpdateQuantityStatus(tx, lotID, remaining, status); err != nil {
		return err
	}
	return s.Waste.AppendHistory(tx, lotID, status, actorOf(actorID),
		fmt.Sprintf("consumed %.2f %s", qty, lot.Unit))
}

// Restore increments a lot's quantity in its own transaction.
func (s *WasteService) Restore(lotID string, qty float64, actorID string) error {
	return repos.WithTxRetry(s.DB, func(tx *sqlx.Tx) error {
		return s.RestoreTx(tx, lotID, qty, actorID)
	})
}

// RestoreTx increments quantity inside a caller-owned transaction,
// reviving a USED lot back to AVAILABLE.
func (s *WasteService) RestoreTx(tx *sqlx.Tx, lotID string, qty float64, actorID string) error {
	if qty <= 0 {
		return domain.Validationf("restore quantity must be positive")
	}
	lot, err := s.Waste.GetTx(tx, lotID)
	if err != nil {
		return err
	}
	quantity := lot.Quantity + qty
	status := lot.Status
	if lot.Status == domain.LotUsed && quantity > 0 {
		status = domain.LotAvailable
	}
	if err := s.Waste.UpdateQuantityStatus(tx, lotID, quantity, status); err != nil {
		return err
	}
	return s.Waste.AppendHistory(tx, lotID, status, actorOf(actorID),
		fmt.Sprintf("restored %.2f %s", qty, lot.Unit))
}

// Reserve splits qty off an AVAILABLE lot into a new RESERVED child lot.
// The parent is decremented (USED at zero); factory usage is unchanged
// since RESERVED still occupies storage.
func (s *WasteService) Reserve(lotID string, qty float64, actorID string) (*domain.WasteLot, error) {
	if qty <= 0 {
		return nil, domain.Validationf("reserve quantity must be positive")
	}
	now := time.Now().UTC()
	var child *domain.WasteLot
	err := repos.WithTxRetry(s.DB, func(tx *sqlx.Tx) error {
		parent, err := s.Waste.GetTx(tx, lotID)
		if err != nil {
			return err
		}
		if parent.Status != domain.LotAvailable {
			return domain.Validationf("lot %s is %s; only AVAILABLE lots can be reserved", lotID, parent.Status)
		}
		if qty > parent.Quantity {
			return &domain.InsufficientStockError{LotID: lotID, Requested: qty, Available: parent.Quantity}
		}

		c := &domain.WasteLot{
			ID:              parent.ID + "_R" + now.Format("200601021504") + randTag(4),
			FactoryID:       parent.FactoryID,
			Type:            parent.Type,
			Material:        parent.Material,
			Color:           parent.Color,
			Quantity:        qty,
			Unit:            parent.Unit,
			QualityGrade:    parent.QualityGrade,
			Status:          domain.LotReserved,
			Score:           parent.Score,
			ExpiryDate:      parent.ExpiryDate,
			StorageLocation: parent.StorageLocation,
			BatchNumber:     parent.BatchNumber,
			DateAdded:       now.Format(time.RFC3339),
		}
		if err := s.Waste.Insert(tx, c); err != nil {
			return err
		}
		if err := s.Waste.AppendHistory(tx, c.ID, c.Status, actorOf(actorID),
			fmt.Sprintf("reserved from %s", parent.ID)); err != nil {
			return err
		}

		remaining := parent.Quantity - qty
		status := parent.Status
		if remaining == 0 {
			status = domain.LotUsed
		}
		if err := s.Waste.UpdateQuantityStatus(tx, parent.ID, remaining, status); err != nil {
			return err
		}
		if err := s.Waste.AppendHistory(tx, parent.ID, status, actorOf(actorID),
			fmt.Sprintf("split %.2f %s into %s", qty, parent.Unit, c.ID)); err != nil {
			return err
		}
		child = c
		return nil
	})
	return child, err
}

// Get loads one lot.
func (s *WasteService) Get(lotID string) (*domain.WasteLot, error) {
	return s.Waste.Get(lotID)
}

// History returns the lot's audit trail, newest first.
func (s *WasteService) History(lotID string) ([]domain.WasteHistory, error) {
	if _, err := s.Waste.Get(lotID); err != nil {
		return nil, err
	}
	return s.Waste.History(lotID)
}

// ListByFactory lists a factory's lots.
func (s *WasteService) ListByFactory(factoryID string) ([]domain.WasteLot, error) {
	return s.Waste.ListByFactory(factoryID)
}

func actorOf(id string) sql.NullString {
	if id == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: id, Valid: true}
}
