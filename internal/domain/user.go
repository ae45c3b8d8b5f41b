package domain

// Principal roles. Role is an explicit enum on the user row; each role has
// its own profile table keyed by user id.
const (
	RoleFactory  = "FACTORY"
	RoleDesigner = "DESIGNER"
	RoleBuyer    = "BUYER"
	RoleAdmin    = "ADMIN"
)

type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
	Role  string `db:"role"`
}

// DesignerProfile carries designer approval state; only approved designers
// may create designs.
type DesignerProfile struct {
	UserID       string `db:"user_id"`
	IsApproved   bool   `db:"is_approved"`
	ApprovalDate string `db:"approval_date"`
}

// BuyerProfile carries buyer preferences.
type BuyerProfile struct {
	UserID          string `db:"user_id"`
	PreferencesJSON string `db:"preferences_json"`
}
