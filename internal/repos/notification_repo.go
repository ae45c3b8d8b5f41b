package repos

import (
	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
)

type NotificationRepo struct{ DB *sqlx.DB }

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

func (r *NotificationRepo) Insert(n *domain.Notification) error {
	_, err := r.DB.Exec(`
		INSERT INTO notifications(id,recipient_id,kind,message,is_read,created_at)
		VALUES(?,?,?,?,0,?)
	`, n.ID, n.Recipient, n.Kind, n.Message, n.CreatedAt)
	return err
}

func (r *NotificationRepo) ListByRecipient(userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Notification
	err := r.DB.Select(&out, `
		SELECT id,recipient_id,kind,message,is_read,created_at
		FROM notifications WHERE recipient_id=?
		ORDER BY created_at DESC LIMIT ?
	`, userID, limit)
	return out, err
}

func (r *NotificationRepo) MarkRead(id, userID string) error {
	res, err := r.DB.Exec(`UPDATE notifications SET is_read=1 WHERE id=? AND recipient_id=?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
