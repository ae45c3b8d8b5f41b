package services

import (
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/repos"
)

// DefaultFulfillable is the producible-unit cap for designs with no bound
// materials yet.
const DefaultFulfillable = 12

// DesignService manages designs, their material bindings and customization
// options.
type DesignService struct {
	DB      *sqlx.DB
	Designs *repos.DesignRepo
	Users   *repos.UserRepo
	Waste   *repos.WasteRepo
}

func NewDesignService(db *sqlx.DB, designs *repos.DesignRepo, users *repos.UserRepo, waste *repos.WasteRepo) *DesignService {
	return &DesignService{DB: db, Designs: designs, Users: users, Waste: waste}
}

type CreateDesignInput struct {
	Name                  string
	Description           string
	BasePrice             decimal.Decimal
	EstimatedDeliveryDays int
}

// Create registers a DRAFT design for an approved designer.
func (s *DesignService) Create(designerID string, in CreateDesignInput) (*domain.Design, error) {
	if in.Name == "" {
		return nil, domain.Validationf("name is required")
	}
	if in.BasePrice.IsNegative() {
		return nil, domain.Validationf("base price cannot be negative")
	}
	profile, err := s.Users.DesignerProfile(designerID)
	if err != nil {
		return nil, err
	}
	if !profile.IsApproved {
		return nil, domain.Validationf("designer %s is not approved", designerID)
	}

	days := in.EstimatedDeliveryDays
	if days <= 0 {
		days = 7
	}
	d := &domain.Design{
		ID:                    newID("DSG"),
		DesignerID:            designerID,
		Name:                  in.Name,
		Description:           in.Description,
		BasePrice:             in.BasePrice,
		Status:                domain.DesignDraft,
		EstimatedDeliveryDays: days,
		DateCreated:           time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Designs.Insert(d); err != nil {
		return nil, err
	}
	return d, nil
}

// SetStatus moves a design between lifecycle states. DELETED is terminal.
func (s *DesignService) SetStatus(designID, designerID, status string) (*domain.Design, error) {
	switch status {
	case domain.DesignDraft, domain.DesignPendingReview, domain.DesignPublished,
		domain.DesignArchived, domain.DesignDeleted:
	default:
		return nil, domain.Validationf("unknown design status %q", status)
	}
	d, err := s.owned(designID, designerID)
	if err != nil {
		return nil, err
	}
	if d.Status == domain.DesignDeleted {
		return nil, domain.Validationf("design %s is deleted", designID)
	}
	if err := s.Designs.UpdateStatus(designID, status); err != nil {
		return nil, err
	}
	d.Status = status
	return d, nil
}

// BindMaterial links a waste lot to a design. Binding is idempotent.
func (s *DesignService) BindMaterial(designID, designerID, lotID string) error {
	d, err := s.owned(designID, designerID)
	if err != nil {
		return err
	}
	if d.Status == domain.DesignDeleted {
		return domain.Validationf("design %s is deleted", designID)
	}
	if _, err := s.Waste.Get(lotID); err != nil {
		return err
	}
	return s.Designs.BindMaterial(designID, lotID)
}

// UnbindMaterial removes a material link.
func (s *DesignService) UnbindMaterial(designID, designerID, lotID string) error {
	d, err := s.owned(designID, designerID)
	if err != nil {
		return err
	}
	if d.Status == domain.DesignDeleted {
		return domain.Validationf("design %s is deleted", designID)
	}
	return s.Designs.UnbindMaterial(designID, lotID)
}

// FulfillableQuantity derives how many units the bound materials can
// produce right now.
func (s *DesignService) FulfillableQuantity(designID string) (int, error) {
	if _, err := s.Designs.Get(designID); err != nil {
		return 0, err
	}
	lots, err := s.Designs.Materials(s.DB, designID)
	if err != nil {
		return 0, err
	}
	return FulfillableFromLots(lots), nil
}

// FulfillableFromLots is the bottleneck rule: the scarcest active bound lot
// caps production, one unit per quantity unit. Lots that are not active or
// hold zero quantity do not count. With nothing bound the answer is the
// default cap.
func FulfillableFromLots(lots []domain.WasteLot) int {
	min := -1
	for i := range lots {
		l := &lots[i]
		if !activeStatus(l.Status) || l.Quantity <= 0 {
			continue
		}
		units := int(math.Floor(l.Quantity))
		if min == -1 || units < min {
			min = units
		}
	}
	if min == -1 {
		return DefaultFulfillable
	}
	return min
}

func activeStatus(status string) bool {
	for _, s := range domain.ActiveLotStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type AddOptionInput struct {
	Type    string
	Name    string
	Choices []string
	Impact  domain.PriceImpact
}

// AddOption attaches a customization option to a design.
func (s *DesignService) AddOption(designID, designerID string, in AddOptionInput) (*domain.CustomizationOption, error) {
	d, err := s.owned(designID, designerID)
	if err != nil {
		return nil, err
	}
	if d.Status == domain.DesignDeleted {
		return nil, domain.Validationf("design %s is deleted", designID)
	}
	if in.Type == "" {
		return nil, domain.Validationf("option type is required")
	}
	switch in.Impact.Kind {
	case "":
		in.Impact = domain.NoImpact()
	case domain.ImpactNone, domain.ImpactOverride, domain.ImpactPercent:
	default:
		return nil, domain.Validationf("unknown price impact kind %q", in.Impact.Kind)
	}
	opt := &domain.CustomizationOption{
		ID:       newID("OPT"),
		DesignID: designID,
		Type:     in.Type,
		Name:     in.Name,
		Choices:  in.Choices,
		Impact:   in.Impact,
	}
	if err := s.Designs.InsertOption(opt); err != nil {
		return nil, err
	}
	return opt, nil
}

// RemoveOption detaches a customization option from a design.
func (s *DesignService) RemoveOption(designID, designerID, optionID string) error {
	d, err := s.owned(designID, designerID)
	if err != nil {
		return err
	}
	if d.Status == domain.DesignDeleted {
		return domain.Validationf("design %s is deleted", designID)
	}
	return s.Designs.DeleteOption(designID, optionID)
}

func (s *DesignService) Get(designID string) (*domain.Design, error) {
	return s.Designs.Get(designID)
}

func (s *DesignService) Options(designID string) ([]domain.CustomizationOption, error) {
	return s.Designs.Options(designID)
}

func (s *DesignService) Materials(designID string) ([]domain.WasteLot, error) {
	return s.Designs.Materials(s.DB, designID)
}

func (s *DesignService) ListPublished() ([]domain.Design, error) {
	return s.Designs.ListPublished()
}

func (s *DesignService) ListByDesigner(designerID string) ([]domain.Design, error) {
	return s.Designs.ListByDesigner(designerID)
}

func (s *DesignService) owned(designID, designerID string) (*domain.Design, error) {
	d, err := s.Designs.Get(designID)
	if err != nil {
		return nil, err
	}
	if designerID != "" && d.DesignerID != designerID {
		return nil, domain.Validationf("design %s does not belong to designer %s", designID, designerID)
	}
	return d, nil
}
