package services

import (
	"github.com/shopspring/decimal"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/repos"
)

// Type-based fallback rates applied when an option affects price but the
// chosen value has no explicit override.
var typeFallbackRates = map[string]decimal.Decimal{
	domain.OptionColor: decimal.NewFromFloat(0.05),
	domain.OptionSize:  decimal.NewFromFloat(0.10),
}

// OptionImpact resolves the price effect of one (option, choice) pair.
// Precedence: explicit override, then percentage, then nothing. Every step
// rounds to 2 places; monetary drift compounds silently otherwise.
func OptionImpact(basePrice decimal.Decimal, opt *domain.CustomizationOption, choice string) decimal.Decimal {
	switch opt.Impact.Kind {
	case domain.ImpactOverride:
		if v, ok := opt.Impact.Overrides[choice]; ok {
			return v.Round(2)
		}
		return typeFallback(basePrice, opt.Type)
	case domain.ImpactPercent:
		return basePrice.Mul(opt.Impact.Rate).Round(2)
	}
	return decimal.Zero
}

func typeFallback(basePrice decimal.Decimal, optionType string) decimal.Decimal {
	rate, ok := typeFallbackRates[optionType]
	if !ok {
		return decimal.Zero
	}
	return basePrice.Mul(rate).Round(2)
}

// UnitPrice is base price plus the impact of every selected customization.
// Selections naming an option the design does not have are ignored; a
// stale session must not crash pricing.
func UnitPrice(basePrice decimal.Decimal, opts []domain.CustomizationOption, customizations map[string]string) decimal.Decimal {
	price := basePrice.Round(2)
	for i := range opts {
		choice, ok := customizations[opts[i].Name]
		if !ok {
			continue
		}
		price = price.Add(OptionImpact(basePrice, &opts[i], choice)).Round(2)
	}
	return price
}

// OrderTotal is the unit price times quantity.
func OrderTotal(basePrice decimal.Decimal, opts []domain.CustomizationOption, customizations map[string]string, quantity int) decimal.Decimal {
	return UnitPrice(basePrice, opts, customizations).Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// PricingService quotes designs for the HTTP surface.
type PricingService struct {
	Designs *repos.DesignRepo
}

func NewPricingService(designs *repos.DesignRepo) *PricingService {
	return &PricingService{Designs: designs}
}

// Quote prices quantity units of a design with the given customizations.
func (s *PricingService) Quote(designID string, customizations map[string]string, quantity int) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, domain.Validationf("quantity must be at least 1")
	}
	design, err := s.Designs.Get(designID)
	if err != nil {
		return decimal.Zero, err
	}
	if design.Status == domain.DesignDeleted {
		return decimal.Zero, domain.ErrNotFound
	}
	opts, err := s.Designs.Options(designID)
	if err != nil {
		return decimal.Zero, err
	}
	return OrderTotal(design.BasePrice, opts, customizations, quantity), nil
}
