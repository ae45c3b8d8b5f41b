package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/services"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOptionImpact(t *testing.T) {
	base := d("150.00")

	color := domain.CustomizationOption{
		Name: "color", Type: domain.OptionColor,
		Impact: domain.PercentageOfBase(d("0.05")),
	}
	require.True(t, services.OptionImpact(base, &color, "Blue").Equal(d("7.50")))

	size := domain.CustomizationOption{
		Name: "size", Type: domain.OptionSize,
		Impact: domain.FlatOverride(map[string]decimal.Decimal{"Large": d("12.50")}),
	}
	require.True(t, services.OptionImpact(base, &size, "Large").Equal(d("12.50")))

	// A choice without an override falls back to the type rate (SIZE 10%).
	require.True(t, services.OptionImpact(base, &size, "Medium").Equal(d("15.00")))

	// NONE options never move the price.
	plain := domain.CustomizationOption{Name: "style", Type: domain.OptionStyle, Impact: domain.NoImpact()}
	require.True(t, services.OptionImpact(base, &plain, "Boxy").IsZero())
}

func TestUnitPriceAndOrderTotal(t *testing.T) {
	base := d("150.00")
	opts := []domain.CustomizationOption{
		{Name: "color", Type: domain.OptionColor, Impact: domain.PercentageOfBase(d("0.05"))},
		{Name: "size", Type: domain.OptionSize, Impact: domain.FlatOverride(map[string]decimal.Decimal{"Large": d("12.50")})},
	}

	unit := services.UnitPrice(base, opts, map[string]string{"color": "Blue", "size": "Large"})
	require.True(t, unit.Equal(d("170.00")), "unit = %s", unit)

	total := services.OrderTotal(base, opts, map[string]string{"color": "Blue", "size": "Large"}, 3)
	require.True(t, total.Equal(d("510.00")), "total = %s", total)

	// Selections for options the design does not have are ignored.
	unit = services.UnitPrice(base, opts, map[string]string{"fabric": "Hemp"})
	require.True(t, unit.Equal(base), "unit = %s", unit)

	// No customizations means base price.
	require.True(t, services.OrderTotal(base, opts, nil, 2).Equal(d("300.00")))

	// Two flat impacts of 10 and 5.
	flat := []domain.CustomizationOption{
		{Name: "size", Type: domain.OptionSize, Impact: domain.FlatOverride(map[string]decimal.Decimal{"Large": d("10.00")})},
		{Name: "style", Type: domain.OptionStyle, Impact: domain.FlatOverride(map[string]decimal.Decimal{"Boxy": d("5.00")})},
	}
	picks := map[string]string{"size": "Large", "style": "Boxy"}
	require.True(t, services.UnitPrice(base, flat, picks).Equal(d("165.00")))
	require.True(t, services.OrderTotal(base, flat, picks, 3).Equal(d("495.00")))
}

func TestQuoteAgainstStoredDesign(t *testing.T) {
	e := newEnv(t)

	// DSG-DEMO001: base 150.00, 5% color option, size override Large=12.50.
	total, err := e.pricing.Quote("DSG-DEMO001", map[string]string{"color": "Blue", "size": "Large"}, 2)
	require.NoError(t, err)
	require.True(t, total.Equal(d("340.00")), "total = %s", total)
}
