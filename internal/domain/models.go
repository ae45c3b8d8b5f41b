package domain

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Lot statuses. PENDING_REVIEW is the initial state; USED, EXPIRED and
// REJECTED are terminal.
const (
	LotPendingReview = "PENDING_REVIEW"
	LotAvailable     = "AVAILABLE"
	LotReserved      = "RESERVED"
	LotUsed          = "USED"
	LotExpired       = "EXPIRED"
	LotRejected      = "REJECTED"
)

// ActiveLotStatuses are the statuses that occupy factory storage and count
// toward capacity usage.
var ActiveLotStatuses = []string{LotAvailable, LotPendingReview, LotReserved}

// Quality grades.
const (
	QualityExcellent = "EXCELLENT"
	QualityGood      = "GOOD"
	QualityFair      = "FAIR"
	QualityPoor      = "POOR"
)

// WasteLot is a discrete quantity of one recovered material at one factory.
type WasteLot struct {
	ID              string         `db:"id"`
	FactoryID       string         `db:"factory_id"`
	Type            string         `db:"type"`
	Material        string         `db:"material"`
	Color           string         `db:"color"`
	Quantity        float64        `db:"quantity"`
	Unit            string         `db:"unit"`
	QualityGrade    string         `db:"quality_grade"`
	Status          string         `db:"status"`
	Score           float64        `db:"sustainability_score"`
	ExpiryDate      sql.NullString `db:"expiry_date"`
	StorageLocation string         `db:"storage_location"`
	BatchNumber     string         `db:"batch_number"`
	Description     string         `db:"description"`
	ReviewedBy      sql.NullString `db:"reviewed_by"`
	DateAdded       string         `db:"date_added"`
	LastUpdated     sql.NullString `db:"last_updated"`
}

// ExpiresAt parses the stored expiry timestamp. ok is false when the lot
// has no expiry.
func (l *WasteLot) ExpiresAt() (time.Time, bool) {
	if !l.ExpiryDate.Valid || l.ExpiryDate.String == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, l.ExpiryDate.String)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// WasteHistory is one append-only audit entry for a lot transition.
type WasteHistory struct {
	ID        int64          `db:"id"`
	LotID     string         `db:"lot_id"`
	Status    string         `db:"status"`
	Timestamp string         `db:"timestamp"`
	ChangedBy sql.NullString `db:"changed_by"`
	Notes     string         `db:"notes"`
}

// CertificationTypes a factory may declare.
var CertificationTypes = []string{"ISO9001", "ISO14001", "SA8000", "GOTS", "OEKO-TEX", "WRAP", "GRS"}

// FactoryProfile holds a factory's declared storage capacity. Current usage
// is always derived from lots, never stored here.
type FactoryProfile struct {
	UserID             string          `db:"user_id"`
	FactoryName        string          `db:"factory_name"`
	Location           string          `db:"location"`
	CertificationsJSON string          `db:"certifications_json"`
	ProductionCapacity sql.NullFloat64 `db:"production_capacity"` // kg/month
	CapacityExempt     bool            `db:"capacity_exempt"`
}

// CapacityCheck is the result of validating a prospective intake against a
// factory's declared capacity.
type CapacityCheck struct {
	Valid        bool    `json:"valid"`
	CurrentUsage float64 `json:"current_usage"`
	Requested    float64 `json:"requested"`
	Available    float64 `json:"available"`
	Message      string  `json:"message"`
}

// Design statuses.
const (
	DesignDraft         = "DRAFT"
	DesignPendingReview = "PENDING_REVIEW"
	DesignPublished     = "PUBLISHED"
	DesignArchived      = "ARCHIVED"
	DesignDeleted       = "DELETED"
)

// Design is a sellable item built from bound waste lots.
type Design struct {
	ID                    string          `db:"id"`
	DesignerID            string          `db:"designer_id"`
	Name                  string          `db:"name"`
	Description           string          `db:"description"`
	BasePrice             decimal.Decimal `db:"base_price"`
	Status                string          `db:"status"`
	EstimatedDeliveryDays int             `db:"estimated_delivery_days"`
	DateCreated           string          `db:"date_created"`
	LastModified          sql.NullString  `db:"last_modified"`
}

// Customization option types.
const (
	OptionColor    = "COLOR"
	OptionSize     = "SIZE"
	OptionMaterial = "MATERIAL"
	OptionStyle    = "STYLE"
	OptionFeature  = "FEATURE"
)

// CustomizationOption belongs to exactly one design. ChoicesJSON and
// ImpactJSON are raw columns; Choices and Impact are decoded by the repo.
type CustomizationOption struct {
	ID          string `db:"id"`
	DesignID    string `db:"design_id"`
	Name        string `db:"name"`
	Type        string `db:"type"`
	ChoicesJSON string `db:"choices_json"`
	ImpactJSON  string `db:"impact_json"`

	Choices []string    `db:"-"`
	Impact  PriceImpact `db:"-"`
}

// EffectiveChoices returns the configured choices, falling back to
// type-based defaults when none are configured.
func (o *CustomizationOption) EffectiveChoices() []string {
	if len(o.Choices) > 0 {
		return o.Choices
	}
	switch o.Type {
	case OptionColor:
		return []string{"Red", "Blue", "Green", "Black", "White"}
	case OptionSize:
		return []string{"Small", "Medium", "Large", "X-Large"}
	}
	return nil
}

// Order statuses.
const (
	OrderPending          = "PENDING"
	OrderConfirmed        = "CONFIRMED"
	OrderInProduction     = "IN_PRODUCTION"
	OrderReadyForDelivery = "READY_FOR_DELIVERY"
	OrderShipped          = "SHIPPED"
	OrderDelivered        = "DELIVERED"
	OrderCanceled         = "CANCELED"
)

// Order is one purchase of N units of one design.
type Order struct {
	ID                 string          `db:"id"`
	BuyerID            string          `db:"buyer_id"`
	DesignID           string          `db:"design_id"`
	Quantity           int             `db:"quantity"`
	CustomizationsJSON string          `db:"customizations_json"`
	Status             string          `db:"status"`
	TotalPrice         decimal.Decimal `db:"total_price"`
	PaymentID          string          `db:"payment_id"`
	DeliveryID         string          `db:"delivery_id"`
	DateOrdered        string          `db:"date_ordered"`

	Customizations map[string]string `db:"-"`
}

// OrderedAt parses the order timestamp for the cancellation window check.
func (o *Order) OrderedAt() (time.Time, error) {
	return time.Parse(time.RFC3339, o.DateOrdered)
}

// Payment methods and statuses.
const (
	PayCreditCard    = "CREDIT_CARD"
	PayBankTransfer  = "BANK_TRANSFER"
	PayDigitalWallet = "DIGITAL_WALLET"
	PayInvoice       = "INVOICE"

	PaymentPending    = "PENDING"
	PaymentAuthorized = "AUTHORIZED"
	PaymentCompleted  = "COMPLETED"
	PaymentFailed     = "FAILED"
	PaymentRefunded   = "REFUNDED"
)

// PaymentInfo is the payment sub-record of an order.
type PaymentInfo struct {
	ID              string          `db:"id"`
	Method          string          `db:"method"`
	Amount          decimal.Decimal `db:"amount"`
	Status          string          `db:"status"`
	TransactionDate string          `db:"transaction_date"`
}

// Delivery statuses.
const (
	DeliveryProcessing     = "PROCESSING"
	DeliveryReadyForPickup = "READY_FOR_PICKUP"
	DeliveryInTransit      = "IN_TRANSIT"
	DeliveryDelivered      = "DELIVERED"
	DeliveryFailed         = "FAILED"
	DeliveryReturned       = "RETURNED"
)

// DeliveryInfo is the delivery sub-record of an order.
type DeliveryInfo struct {
	ID                    string         `db:"id"`
	TrackingNumber        string         `db:"tracking_number"`
	Carrier               string         `db:"carrier"`
	Address               string         `db:"address"`
	EstimatedDeliveryDate string         `db:"estimated_delivery_date"`
	ActualDeliveryDate    sql.NullString `db:"actual_delivery_date"`
	Status                string         `db:"status"`
}

// Financial transaction types and statuses.
const (
	TxnSale   = "SALE"
	TxnRefund = "REFUND"

	TxnPending   = "PENDING"
	TxnCompleted = "COMPLETED"
)

// Transaction records a SALE at order creation and a REFUND when a paid
// order is canceled.
type Transaction struct {
	ID        string          `db:"id"`
	OrderID   string          `db:"order_id"`
	Amount    decimal.Decimal `db:"amount"`
	Type      string          `db:"type"`
	Status    string          `db:"status"`
	CreatedAt string          `db:"created_at"`
}

// Notification kinds.
const (
	NotifyOrderUpdate = "ORDER_UPDATE"
	NotifyWasteReview = "WASTE_REVIEW"
	NotifyAccount     = "ACCOUNT"
)

// Notification is a persisted message for a user.
type Notification struct {
	ID        string `db:"id"`
	Recipient string `db:"recipient_id"`
	Kind      string `db:"kind"`
	Message   string `db:"message"`
	Read      bool   `db:"is_read"`
	CreatedAt string `db:"created_at"`
}
