package services

import (
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	applog "github.com/parvezdia/textile-waste-management/internal/log"
	"github.com/parvezdia/textile-waste-management/internal/repos"
)

// CapacityService validates factory storage intake against declared
// capacity. It is a pure read; usage is derived, never cached, so write
// paths must call ValidateTx inside their own transaction.
type CapacityService struct {
	DB        *sqlx.DB
	Factories *repos.FactoryRepo
	Waste     *repos.WasteRepo
}

func NewCapacityService(db *sqlx.DB, factories *repos.FactoryRepo, waste *repos.WasteRepo) *CapacityService {
	return &CapacityService{DB: db, Factories: factories, Waste: waste}
}

// Validate checks a prospective intake outside of any transaction. The
// result is advisory; the submit path re-validates before its write.
func (s *CapacityService) Validate(factoryID string, additional float64) (domain.CapacityCheck, error) {
	return s.ValidateTx(s.DB, factoryID, additional)
}

// ValidateTx re-derives current usage through q and checks the request
// against the declared capacity. Unset capacity fails closed unless the
// profile is explicitly exempted.
func (s *CapacityService) ValidateTx(q sqlx.Queryer, factoryID string, additional float64) (domain.CapacityCheck, error) {
	profile, err := s.Factories.GetTx(q, factoryID)
	if err != nil {
		return domain.CapacityCheck{}, err
	}
	usage, err := s.Waste.ActiveUsage(q, factoryID)
	if err != nil {
		return domain.CapacityCheck{}, err
	}

	if profile.CapacityExempt {
		return domain.CapacityCheck{
			Valid: true, CurrentUsage: usage, Requested: additional,
			Message: "Capacity checks waived for this factory.",
		}, nil
	}
	if !profile.ProductionCapacity.Valid {
		return domain.CapacityCheck{
			Valid: false, CurrentUsage: usage, Requested: additional,
			Message: "Factory capacity not set.",
		}, nil
	}

	capacity := profile.ProductionCapacity.Float64
	available := capacity - usage
	wouldUse := usage + additional

	if wouldUse > capacity {
		s.logThreshold(profile, wouldUse, capacity, "request_denied")
		return domain.CapacityCheck{
			Valid: false, CurrentUsage: usage, Requested: additional, Available: available,
			Message: fmt.Sprintf("Would exceed capacity by %.1fkg", wouldUse-capacity),
		}, nil
	}

	s.logThreshold(profile, wouldUse, capacity, "check")
	return domain.CapacityCheck{
		Valid: true, CurrentUsage: usage, Requested: additional, Available: available,
		Message: "Capacity available",
	}, nil
}

func (s *CapacityService) logThreshold(profile *domain.FactoryProfile, usage, capacity float64, action string) {
	if capacity <= 0 {
		return
	}
	pct := usage / capacity * 100
	fields := map[string]any{
		"factory": profile.FactoryName, "usage_pct": math.Round(pct*10) / 10,
		"usage_kg": usage, "capacity_kg": capacity, "action": action,
	}
	switch {
	case pct >= 90:
		applog.Warn("capacity.critical", fields)
	case pct >= 75:
		applog.Info(nil, "capacity.warning", fields)
	}
}

// Recommended computes an advisory capacity from the trailing intake
// window: mean intake plus a two-standard-deviation buffer, or half the
// mean again when the deviation is undefined. Returns nil without history.
// Never enforced.
func (s *CapacityService) Recommended(factoryID string, windowDays int) (*float64, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays).Format(time.RFC3339)
	quantities, err := s.Waste.IntakeQuantities(factoryID, since)
	if err != nil {
		return nil, err
	}
	if len(quantities) == 0 {
		return nil, nil
	}

	var sum float64
	for _, q := range quantities {
		sum += q
	}
	mean := sum / float64(len(quantities))
	if mean == 0 {
		return nil, nil
	}

	std := stdDev(quantities, mean)
	buffer := 2 * std
	if std == 0 {
		buffer = 0.5 * mean
	}

	rec := (mean + buffer) * float64(windowDays)
	return &rec, nil
}

func stdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
