package repos

import (
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	// DSN pragmas apply to every pooled connection, not just the one
	// that happens to run the schema statements.
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Ensure demo principals exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	// Seed baseline marketplace data if DB is empty (lots/designs/options)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
-- Principals. Role is an explicit enum; role payloads live in the
-- per-role profile tables below.
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('FACTORY','DESIGNER','BUYER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS factory_profiles(
  user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  factory_name TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  certifications_json TEXT NOT NULL DEFAULT '[]',
  production_capacity REAL NULL,     -- kg/month; NULL means "not set"
  capacity_exempt INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS designer_profiles(
  user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  is_approved INTEGER NOT NULL DEFAULT 0,
  approval_date TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS buyer_profiles(
  user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  preferences_json TEXT NOT NULL DEFAULT '{}'
);

-- Waste lots
CREATE TABLE IF NOT EXISTS waste_lots(
  id TEXT PRIMARY KEY,
  factory_id TEXT NOT NULL REFERENCES factory_profiles(user_id) ON DELETE CASCADE,
  type TEXT NOT NULL DEFAULT '',
  material TEXT NOT NULL,
  color TEXT NOT NULL DEFAULT '',
  quantity REAL NOT NULL CHECK (quantity >= 0),
  unit TEXT NOT NULL DEFAULT 'kg',
  quality_grade TEXT NOT NULL DEFAULT 'GOOD'
    CHECK (quality_grade IN ('EXCELLENT','GOOD','FAIR','POOR')),
  status TEXT NOT NULL DEFAULT 'PENDING_REVIEW'
    CHECK (status IN ('PENDING_REVIEW','AVAILABLE','RESERVED','USED','EXPIRED','REJECTED')),
  sustainability_score REAL NOT NULL DEFAULT 0,
  expiry_date TEXT NULL,
  storage_location TEXT NOT NULL DEFAULT '',
  batch_number TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  reviewed_by TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  date_added TEXT NOT NULL,
  last_updated TEXT
);
CREATE INDEX IF NOT EXISTS idx_lots_factory ON waste_lots(factory_id);
CREATE INDEX IF NOT EXISTS idx_lots_status  ON waste_lots(status);
CREATE INDEX IF NOT EXISTS idx_lots_added   ON waste_lots(date_added);

-- Append-only audit trail; rows are never edited or deleted.
CREATE TABLE IF NOT EXISTS waste_history(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  lot_id TEXT NOT NULL REFERENCES waste_lots(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  timestamp TEXT NOT NULL,
  changed_by TEXT NULL,
  notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_history_lot ON waste_history(lot_id);

-- Designs
CREATE TABLE IF NOT EXISTS designs(
  id TEXT PRIMARY KEY,
  designer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  base_price NUMERIC NOT NULL CHECK (base_price >= 0),
  status TEXT NOT NULL DEFAULT 'DRAFT'
    CHECK (status IN ('DRAFT','PENDING_REVIEW','PUBLISHED','ARCHIVED','DELETED')),
  estimated_delivery_days INTEGER NOT NULL DEFAULT 7,
  date_created TEXT NOT NULL,
  last_modified TEXT
);
CREATE INDEX IF NOT EXISTS idx_designs_designer ON designs(designer_id);
CREATE INDEX IF NOT EXISTS idx_designs_status   ON designs(status);

CREATE TABLE IF NOT EXISTS design_materials(
  design_id TEXT NOT NULL REFERENCES designs(id) ON DELETE CASCADE,
  lot_id    TEXT NOT NULL REFERENCES waste_lots(id) ON DELETE RESTRICT,
  PRIMARY KEY (design_id, lot_id)
);

CREATE TABLE IF NOT EXISTS customization_options(
  id TEXT PRIMARY KEY,
  design_id TEXT NOT NULL REFERENCES designs(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  type TEXT NOT NULL CHECK (type IN ('COLOR','SIZE','MATERIAL','STYLE','FEATURE')),
  choices_json TEXT NOT NULL DEFAULT '[]',
  impact_json TEXT NOT NULL DEFAULT '{}',
  UNIQUE (design_id, name)
);

-- Orders and sub-records
CREATE TABLE IF NOT EXISTS payments(
  id TEXT PRIMARY KEY,
  method TEXT NOT NULL CHECK (method IN ('CREDIT_CARD','BANK_TRANSFER','DIGITAL_WALLET','INVOICE')),
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING'
    CHECK (status IN ('PENDING','AUTHORIZED','COMPLETED','FAILED','REFUNDED')),
  transaction_date TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS deliveries(
  id TEXT PRIMARY KEY,
  tracking_number TEXT NOT NULL UNIQUE,
  carrier TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL,
  estimated_delivery_date TEXT NOT NULL,
  actual_delivery_date TEXT NULL,
  status TEXT NOT NULL DEFAULT 'PROCESSING'
    CHECK (status IN ('PROCESSING','READY_FOR_PICKUP','IN_TRANSIT','DELIVERED','FAILED','RETURNED'))
);

CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  design_id TEXT NOT NULL REFERENCES designs(id),
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  customizations_json TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL DEFAULT 'PENDING'
    CHECK (status IN ('PENDING','CONFIRMED','IN_PRODUCTION','READY_FOR_DELIVERY','SHIPPED','DELIVERED','CANCELED')),
  total_price NUMERIC NOT NULL,
  payment_id TEXT NOT NULL REFERENCES payments(id),
  delivery_id TEXT NOT NULL REFERENCES deliveries(id),
  date_ordered TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_buyer  ON orders(buyer_id);
CREATE INDEX IF NOT EXISTS idx_orders_design ON orders(design_id);

CREATE TABLE IF NOT EXISTS transactions(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  amount NUMERIC NOT NULL,
  type TEXT NOT NULL CHECK (type IN ('SALE','REFUND')),
  status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','COMPLETED')),
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications(
  id TEXT PRIMARY KEY,
  recipient_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  message TEXT NOT NULL,
  is_read INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id);
`
	_, err := db.Exec(schema)
	return err
}

// seedUsers ensures one principal per role exists (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-meridian", "intake@meridian-textiles.test", "Meridian Textiles", "FACTORY", "Passw0rd!"),
		mk("u-anara", "anara@studio.test", "Anara", "DESIGNER", "Passw0rd!"),
		mk("u-oaktree", "orders@oaktree.test", "Oaktree Goods", "BUYER", "Passw0rd!"),
		mk("u-admin", "admin@retex.test", "Admin", "ADMIN", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	// Role profiles (idempotent)
	if _, err := tx.Exec(`
		INSERT INTO factory_profiles(user_id, factory_name, location, certifications_json, production_capacity)
		VALUES('u-meridian','Meridian Textiles','Dhaka','["GOTS","OEKO-TEX"]',1000)
		ON CONFLICT(user_id) DO NOTHING
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO designer_profiles(user_id, is_approved, approval_date)
		VALUES('u-anara',1,?)
		ON CONFLICT(user_id) DO NOTHING
	`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO buyer_profiles(user_id) VALUES('u-oaktree')
		ON CONFLICT(user_id) DO NOTHING
	`); err != nil {
		return err
	}

	return tx.Commit()
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM waste_lots`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo lots/designs/options")

	now := time.Now().UTC().Format(time.RFC3339)
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	tx.MustExec(`INSERT INTO waste_lots(id,factory_id,type,material,color,quantity,unit,quality_grade,status,sustainability_score,date_added) VALUES
	  ('WST-DEMO001','u-meridian','offcut','cotton','indigo',120,'kg','EXCELLENT','AVAILABLE',12,?),
	  ('WST-DEMO002','u-meridian','selvage','denim','blue',60,'kg','GOOD','AVAILABLE',4.8,?),
	  ('WST-DEMO003','u-meridian','remnant','linen','natural',35,'kg','FAIR','PENDING_REVIEW',2.1,?)`,
		now, now, now)
	tx.MustExec(`INSERT INTO waste_history(lot_id,status,timestamp,notes) VALUES
	  ('WST-DEMO001','PENDING_REVIEW',?,'submitted'),
	  ('WST-DEMO001','AVAILABLE',?,'approved'),
	  ('WST-DEMO002','PENDING_REVIEW',?,'submitted'),
	  ('WST-DEMO002','AVAILABLE',?,'approved'),
	  ('WST-DEMO003','PENDING_REVIEW',?,'submitted')`,
		now, now, now, now, now)

	tx.MustExec(`INSERT INTO designs(id,designer_id,name,description,base_price,status,estimated_delivery_days,date_created) VALUES
	  ('DSG-DEMO001','u-anara','Patchwork Tote','Tote bag from denim selvage and cotton offcuts',150.00,'PUBLISHED',7,?)`, now)
	tx.MustExec(`INSERT INTO design_materials(design_id,lot_id) VALUES
	  ('DSG-DEMO001','WST-DEMO001'),
	  ('DSG-DEMO001','WST-DEMO002')`)
	tx.MustExec(`INSERT INTO customization_options(id,design_id,name,type,choices_json,impact_json) VALUES
	  ('OPT-DEMO001','DSG-DEMO001','color','COLOR','["Red","Blue","Black"]','{"kind":"PERCENT_OF_BASE","rate":"0.05"}'),
	  ('OPT-DEMO002','DSG-DEMO001','size','SIZE','["Small","Medium","Large"]','{"kind":"FLAT_OVERRIDE","overrides":{"Large":"12.50"}}')`)

	return tx.Commit()
}
