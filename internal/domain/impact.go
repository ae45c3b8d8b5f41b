package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceImpact kinds.
const (
	ImpactNone     = "NONE"
	ImpactOverride = "FLAT_OVERRIDE"
	ImpactPercent  = "PERCENT_OF_BASE"
)

// PriceImpact is the tagged variant describing how a customization option
// affects price. Exactly one of Overrides/Rate is meaningful per kind:
//
//	NONE            the option never affects price
//	FLAT_OVERRIDE   Overrides maps a choice to a fixed amount; choices
//	                without an entry fall back to the type default rate
//	PERCENT_OF_BASE Rate is a fraction of the design's base price
type PriceImpact struct {
	Kind      string                     `json:"kind"`
	Overrides map[string]decimal.Decimal `json:"overrides,omitempty"`
	Rate      decimal.Decimal            `json:"rate,omitempty"`
}

// NoImpact is the zero-effect variant.
func NoImpact() PriceImpact { return PriceImpact{Kind: ImpactNone} }

// FlatOverride builds an override variant from choice->amount pairs.
func FlatOverride(overrides map[string]decimal.Decimal) PriceImpact {
	return PriceImpact{Kind: ImpactOverride, Overrides: overrides}
}

// PercentageOfBase builds a rate variant; rate is a fraction (0.05 = 5%).
func PercentageOfBase(rate decimal.Decimal) PriceImpact {
	return PriceImpact{Kind: ImpactPercent, Rate: rate}
}

// DecodePriceImpact parses a stored impact column. An empty column decodes
// to NoImpact; an unknown kind is an error rather than a silent no-op.
func DecodePriceImpact(raw string) (PriceImpact, error) {
	if raw == "" || raw == "{}" || raw == "null" {
		return NoImpact(), nil
	}
	var p PriceImpact
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return PriceImpact{}, fmt.Errorf("decode price impact: %w", err)
	}
	switch p.Kind {
	case ImpactNone, ImpactOverride, ImpactPercent:
		return p, nil
	case "":
		return NoImpact(), nil
	}
	return PriceImpact{}, fmt.Errorf("decode price impact: unknown kind %q", p.Kind)
}

// Encode serializes the variant for storage.
func (p PriceImpact) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode price impact: %w", err)
	}
	return string(b), nil
}
