package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
)

type FactoryRepo struct{ DB *sqlx.DB }

func NewFactoryRepo(db *sqlx.DB) *FactoryRepo { return &FactoryRepo{DB: db} }

func (r *FactoryRepo) Get(userID string) (*domain.FactoryProfile, error) {
	return r.GetTx(r.DB, userID)
}

func (r *FactoryRepo) GetTx(q sqlx.Queryer, userID string) (*domain.FactoryProfile, error) {
	var p domain.FactoryProfile
	err := sqlx.Get(q, &p, `
		SELECT user_id,factory_name,location,certifications_json,production_capacity,capacity_exempt
		FROM factory_profiles WHERE user_id=?
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *FactoryRepo) SetCapacity(userID string, capacity sql.NullFloat64) error {
	res, err := r.DB.Exec(`UPDATE factory_profiles SET production_capacity=? WHERE user_id=?`, capacity, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FactoryRepo) UpdateCertifications(userID, certsJSON string) error {
	res, err := r.DB.Exec(`UPDATE factory_profiles SET certifications_json=? WHERE user_id=?`, certsJSON, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
