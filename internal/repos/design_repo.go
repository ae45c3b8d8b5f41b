package repos

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
)

type DesignRepo struct{ DB *sqlx.DB }

func NewDesignRepo(db *sqlx.DB) *DesignRepo { return &DesignRepo{DB: db} }

const designColumns = `id,designer_id,name,description,base_price,status,estimated_delivery_days,date_created,last_modified`

func (r *DesignRepo) Get(id string) (*domain.Design, error) {
	return r.GetTx(r.DB, id)
}

func (r *DesignRepo) GetTx(q sqlx.Queryer, id string) (*domain.Design, error) {
	var d domain.Design
	err := sqlx.Get(q, &d, `SELECT `+designColumns+` FROM designs WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DesignRepo) Insert(d *domain.Design) error {
	_, err := r.DB.Exec(`
		INSERT INTO designs(id,designer_id,name,description,base_price,status,estimated_delivery_days,date_created)
		VALUES(?,?,?,?,?,?,?,?)
	`, d.ID, d.DesignerID, d.Name, d.Description, d.BasePrice, d.Status, d.EstimatedDeliveryDays, d.DateCreated)
	return err
}

func (r *DesignRepo) UpdateStatus(id, status string) error {
	res, err := r.DB.Exec(`UPDATE designs SET status=?, last_modified=? WHERE id=?`, status, nowStamp(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DesignRepo) ListPublished() ([]domain.Design, error) {
	var out []domain.Design
	err := r.DB.Select(&out, `
		SELECT `+designColumns+` FROM designs WHERE status='PUBLISHED' ORDER BY date_created DESC
	`)
	return out, err
}

func (r *DesignRepo) ListByDesigner(designerID string) ([]domain.Design, error) {
	var out []domain.Design
	err := r.DB.Select(&out, `
		SELECT `+designColumns+` FROM designs WHERE designer_id=? ORDER BY date_created DESC
	`, designerID)
	return out, err
}

// BindMaterial attaches a lot to a design's required materials.
func (r *DesignRepo) BindMaterial(designID, lotID string) error {
	_, err := r.DB.Exec(`
		INSERT INTO design_materials(design_id,lot_id) VALUES(?,?)
		ON CONFLICT(design_id,lot_id) DO NOTHING
	`, designID, lotID)
	return err
}

func (r *DesignRepo) UnbindMaterial(designID, lotID string) error {
	_, err := r.DB.Exec(`DELETE FROM design_materials WHERE design_id=? AND lot_id=?`, designID, lotID)
	return err
}

// Materials returns all lots bound to a design.
func (r *DesignRepo) Materials(q sqlx.Queryer, designID string) ([]domain.WasteLot, error) {
	var out []domain.WasteLot
	err := sqlx.Select(q, &out, `
		SELECT w.id,w.factory_id,w.type,w.material,w.color,w.quantity,w.unit,w.quality_grade,w.status,
			w.sustainability_score,w.expiry_date,w.storage_location,w.batch_number,w.description,
			w.reviewed_by,w.date_added,w.last_updated
		FROM design_materials dm
		JOIN waste_lots w ON w.id = dm.lot_id
		WHERE dm.design_id=?
		ORDER BY w.id
	`, designID)
	return out, err
}

func (r *DesignRepo) InsertOption(o *domain.CustomizationOption) error {
	choices, err := json.Marshal(o.Choices)
	if err != nil {
		return fmt.Errorf("encode choices: %w", err)
	}
	impact, err := o.Impact.Encode()
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(`
		INSERT INTO customization_options(id,design_id,name,type,choices_json,impact_json)
		VALUES(?,?,?,?,?,?)
	`, o.ID, o.DesignID, o.Name, o.Type, string(choices), impact)
	return err
}

func (r *DesignRepo) DeleteOption(designID, optionID string) error {
	res, err := r.DB.Exec(`DELETE FROM customization_options WHERE id=? AND design_id=?`, optionID, designID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Options returns a design's customization options with choices and price
// impact decoded.
func (r *DesignRepo) Options(designID string) ([]domain.CustomizationOption, error) {
	var rows []domain.CustomizationOption
	err := r.DB.Select(&rows, `
		SELECT id,design_id,name,type,choices_json,impact_json
		FROM customization_options WHERE design_id=? ORDER BY name
	`, designID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].ChoicesJSON != "" {
			if err := json.Unmarshal([]byte(rows[i].ChoicesJSON), &rows[i].Choices); err != nil {
				return nil, fmt.Errorf("decode choices for option %s: %w", rows[i].ID, err)
			}
		}
		impact, err := domain.DecodePriceImpact(rows[i].ImpactJSON)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", rows[i].ID, err)
		}
		rows[i].Impact = impact
	}
	return rows, nil
}
