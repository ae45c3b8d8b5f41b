package repos

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
)

type WasteRepo struct{ DB *sqlx.DB }

func NewWasteRepo(db *sqlx.DB) *WasteRepo { return &WasteRepo{DB: db} }

const lotColumns = `id,factory_id,type,material,color,quantity,unit,quality_grade,status,
	sustainability_score,expiry_date,storage_location,batch_number,description,
	reviewed_by,date_added,last_updated`

// Get loads a lot outside of any transaction.
func (r *WasteRepo) Get(id string) (*domain.WasteLot, error) {
	return r.GetTx(r.DB, id)
}

// GetTx loads a lot through q, which may be a transaction.
func (r *WasteRepo) GetTx(q sqlx.Queryer, id string) (*domain.WasteLot, error) {
	var l domain.WasteLot
	err := sqlx.Get(q, &l, `SELECT `+lotColumns+` FROM waste_lots WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Insert writes a new lot row.
func (r *WasteRepo) Insert(q sqlx.Ext, l *domain.WasteLot) error {
	_, err := q.Exec(`
		INSERT INTO waste_lots(id,factory_id,type,material,color,quantity,unit,quality_grade,
			status,sustainability_score,expiry_date,storage_location,batch_number,description,date_added)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, l.ID, l.FactoryID, l.Type, l.Material, l.Color, l.Quantity, l.Unit, l.QualityGrade,
		l.Status, l.Score, l.ExpiryDate, l.StorageLocation, l.BatchNumber, l.Description, l.DateAdded)
	return err
}

// UpdateStatus moves a lot to a new status, recording the reviewer when set.
func (r *WasteRepo) UpdateStatus(q sqlx.Ext, id, status string, reviewedBy sql.NullString) error {
	_, err := q.Exec(`
		UPDATE waste_lots SET status=?, reviewed_by=COALESCE(?, reviewed_by), last_updated=?
		WHERE id=?
	`, status, reviewedBy, nowStamp(), id)
	return err
}

// UpdateQuantityStatus writes both hot fields together; consume/restore
// must never update one without the other.
func (r *WasteRepo) UpdateQuantityStatus(q sqlx.Ext, id string, quantity float64, status string) error {
	_, err := q.Exec(`
		UPDATE waste_lots SET quantity=?, status=?, last_updated=? WHERE id=?
	`, quantity, status, nowStamp(), id)
	return err
}

// UpdateScore persists a recomputed sustainability score.
func (r *WasteRepo) UpdateScore(id string, score float64) error {
	_, err := r.DB.Exec(`UPDATE waste_lots SET sustainability_score=?, last_updated=? WHERE id=?`,
		score, nowStamp(), id)
	return err
}

// AppendHistory adds one audit entry. History rows are never edited.
func (r *WasteRepo) AppendHistory(q sqlx.Ext, lotID, status string, changedBy sql.NullString, notes string) error {
	_, err := q.Exec(`
		INSERT INTO waste_history(lot_id,status,timestamp,changed_by,notes)
		VALUES(?,?,?,?,?)
	`, lotID, status, nowStamp(), changedBy, notes)
	return err
}

// History returns the audit trail for a lot, newest first.
func (r *WasteRepo) History(lotID string) ([]domain.WasteHistory, error) {
	var out []domain.WasteHistory
	err := r.DB.Select(&out, `
		SELECT id,lot_id,status,timestamp,changed_by,notes
		FROM waste_history WHERE lot_id=?
		ORDER BY id DESC
	`, lotID)
	return out, err
}

// HistoryCount is used by expiry idempotence checks and tests.
func (r *WasteRepo) HistoryCount(lotID string) (int, error) {
	var n int
	err := r.DB.Get(&n, `SELECT COUNT(*) FROM waste_history WHERE lot_id=?`, lotID)
	return n, err
}

// ActiveUsage sums quantities of the factory's lots in storage-occupying
// statuses. Always derived, never cached; call it inside the same
// transaction as any write that depends on it.
func (r *WasteRepo) ActiveUsage(q sqlx.Queryer, factoryID string) (float64, error) {
	var usage float64
	err := sqlx.Get(q, &usage, `
		SELECT COALESCE(SUM(quantity),0) FROM waste_lots
		WHERE factory_id=? AND status IN ('AVAILABLE','PENDING_REVIEW','RESERVED')
	`, factoryID)
	return usage, err
}

// IntakeQuantities returns lot quantities added at or after since, for the
// capacity recommendation. Statistics are computed in Go; sqlite has no
// stddev aggregate.
func (r *WasteRepo) IntakeQuantities(factoryID, since string) ([]float64, error) {
	var out []float64
	err := r.DB.Select(&out, `
		SELECT quantity FROM waste_lots WHERE factory_id=? AND date_added>=?
	`, factoryID, since)
	return out, err
}

// ListByFactory returns all lots for a factory, newest first.
func (r *WasteRepo) ListByFactory(factoryID string) ([]domain.WasteLot, error) {
	var out []domain.WasteLot
	err := r.DB.Select(&out, `
		SELECT `+lotColumns+` FROM waste_lots WHERE factory_id=? ORDER BY date_added DESC
	`, factoryID)
	return out, err
}

// ListExpirable returns non-terminal lots whose expiry has passed.
func (r *WasteRepo) ListExpirable(now string) ([]domain.WasteLot, error) {
	var out []domain.WasteLot
	err := r.DB.Select(&out, `
		SELECT `+lotColumns+` FROM waste_lots
		WHERE expiry_date IS NOT NULL AND expiry_date < ?
		  AND status IN ('PENDING_REVIEW','AVAILABLE')
	`, now)
	return out, err
}

func nowStamp() string { return time.Now().UTC().Format(time.RFC3339) }
