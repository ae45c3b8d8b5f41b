package repos

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
)

type OrderRepo struct{ DB *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{DB: db} }

const orderColumns = `id,buyer_id,design_id,quantity,customizations_json,status,total_price,payment_id,delivery_id,date_ordered`

func (r *OrderRepo) Get(id string) (*domain.Order, error) {
	return r.GetTx(r.DB, id)
}

func (r *OrderRepo) GetTx(q sqlx.Queryer, id string) (*domain.Order, error) {
	var o domain.Order
	err := sqlx.Get(q, &o, `SELECT `+orderColumns+` FROM orders WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.CustomizationsJSON != "" {
		if err := json.Unmarshal([]byte(o.CustomizationsJSON), &o.Customizations); err != nil {
			return nil, fmt.Errorf("decode customizations for order %s: %w", o.ID, err)
		}
	}
	return &o, nil
}

// InsertOrder writes the order header; sub-records must already exist in
// the same transaction.
func (r *OrderRepo) InsertOrder(q sqlx.Ext, o *domain.Order) error {
	customizations, err := json.Marshal(o.Customizations)
	if err != nil {
		return fmt.Errorf("encode customizations: %w", err)
	}
	_, err = q.Exec(`
		INSERT INTO orders(id,buyer_id,design_id,quantity,customizations_json,status,total_price,payment_id,delivery_id,date_ordered)
		VALUES(?,?,?,?,?,?,?,?,?,?)
	`, o.ID, o.BuyerID, o.DesignID, o.Quantity, string(customizations), o.Status, o.TotalPrice,
		o.PaymentID, o.DeliveryID, o.DateOrdered)
	return err
}

func (r *OrderRepo) InsertPayment(q sqlx.Ext, p *domain.PaymentInfo) error {
	_, err := q.Exec(`
		INSERT INTO payments(id,method,amount,status,transaction_date)
		VALUES(?,?,?,?,?)
	`, p.ID, p.Method, p.Amount, p.Status, p.TransactionDate)
	return err
}

func (r *OrderRepo) InsertDelivery(q sqlx.Ext, d *domain.DeliveryInfo) error {
	_, err := q.Exec(`
		INSERT INTO deliveries(id,tracking_number,carrier,address,estimated_delivery_date,status)
		VALUES(?,?,?,?,?,?)
	`, d.ID, d.TrackingNumber, d.Carrier, d.Address, d.EstimatedDeliveryDate, d.Status)
	return err
}

func (r *OrderRepo) InsertTransaction(q sqlx.Ext, t *domain.Transaction) error {
	_, err := q.Exec(`
		INSERT INTO transactions(id,order_id,amount,type,status,created_at)
		VALUES(?,?,?,?,?,?)
	`, t.ID, t.OrderID, t.Amount, t.Type, t.Status, t.CreatedAt)
	return err
}

func (r *OrderRepo) UpdateStatus(q sqlx.Ext, id, status string) error {
	res, err := q.Exec(`UPDATE orders SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) GetPayment(q sqlx.Queryer, id string) (*domain.PaymentInfo, error) {
	var p domain.PaymentInfo
	err := sqlx.Get(q, &p, `SELECT id,method,amount,status,transaction_date FROM payments WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *OrderRepo) ListByBuyer(buyerID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.DB.Select(&out, `
		SELECT `+orderColumns+` FROM orders WHERE buyer_id=? ORDER BY date_ordered DESC
	`, buyerID)
	return out, err
}

func (r *OrderRepo) ListLatest(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Order
	err := r.DB.Select(&out, `
		SELECT `+orderColumns+` FROM orders ORDER BY date_ordered DESC LIMIT ?
	`, limit)
	return out, err
}
