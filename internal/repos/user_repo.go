package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT id,email,name,password_hash,role FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT id,email,name,password_hash,role FROM users WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Insert(q sqlx.Ext, u *domain.User) error {
	_, err := q.Exec(`
		INSERT INTO users(id,email,name,password_hash,role) VALUES(?,?,?,?,?)
	`, u.ID, u.Email, u.Name, u.Hash, u.Role)
	return err
}

func (r *UserRepo) InsertFactoryProfile(q sqlx.Ext, p *domain.FactoryProfile) error {
	_, err := q.Exec(`
		INSERT INTO factory_profiles(user_id,factory_name,location,certifications_json,production_capacity,capacity_exempt)
		VALUES(?,?,?,?,?,?)
	`, p.UserID, p.FactoryName, p.Location, p.CertificationsJSON, p.ProductionCapacity, p.CapacityExempt)
	return err
}

func (r *UserRepo) InsertDesignerProfile(q sqlx.Ext, p *domain.DesignerProfile) error {
	_, err := q.Exec(`
		INSERT INTO designer_profiles(user_id,is_approved,approval_date) VALUES(?,?,?)
	`, p.UserID, p.IsApproved, p.ApprovalDate)
	return err
}

func (r *UserRepo) InsertBuyerProfile(q sqlx.Ext, p *domain.BuyerProfile) error {
	_, err := q.Exec(`
		INSERT INTO buyer_profiles(user_id,preferences_json) VALUES(?,?)
	`, p.UserID, p.PreferencesJSON)
	return err
}

func (r *UserRepo) DesignerProfile(userID string) (*domain.DesignerProfile, error) {
	var p domain.DesignerProfile
	err := r.DB.Get(&p, `SELECT user_id,is_approved,approval_date FROM designer_profiles WHERE user_id=?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ApproveDesigner flips the approval flag; a no-op when already approved.
func (r *UserRepo) ApproveDesigner(userID, when string) error {
	res, err := r.DB.Exec(`
		UPDATE designer_profiles SET is_approved=1, approval_date=? WHERE user_id=?
	`, when, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.id,u.email,u.name,u.password_hash,u.role
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}
