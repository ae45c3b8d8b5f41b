package services

import (
	"math"
	"time"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/repos"
)

// qualityWeights map grades to recycle-potential weight; unknown grades
// score midway.
var qualityWeights = map[string]float64{
	domain.QualityExcellent: 1.0,
	domain.QualityGood:      0.8,
	domain.QualityFair:      0.6,
	domain.QualityPoor:      0.4,
}

// RecyclePotential scores a lot 0-100 from quality grade and quantity,
// normalized at 1000 units.
func RecyclePotential(lot *domain.WasteLot) float64 {
	w, ok := qualityWeights[lot.QualityGrade]
	if !ok {
		w = 0.5
	}
	quantityFactor := math.Min(1, lot.Quantity/1000)
	return w * quantityFactor * 100
}

// SustainabilityScore decays the recycle potential toward expiry. The decay
// factor is daysUntilExpiry/365 clamped to [0.1, 1.0]; lots without an
// expiry do not decay.
func SustainabilityScore(lot *domain.WasteLot, now time.Time) float64 {
	score := RecyclePotential(lot)
	if expiry, ok := lot.ExpiresAt(); ok {
		days := expiry.Sub(now).Hours() / 24
		factor := math.Min(1.0, math.Max(0.1, days/365))
		score *= factor
	}
	return score
}

// ScoreService persists recomputed sustainability scores.
type ScoreService struct {
	Waste *repos.WasteRepo
}

func NewScoreService(waste *repos.WasteRepo) *ScoreService { return &ScoreService{Waste: waste} }

// UpdateScore recomputes and stores a lot's score as of now.
func (s *ScoreService) UpdateScore(lotID string, now time.Time) (float64, error) {
	lot, err := s.Waste.Get(lotID)
	if err != nil {
		return 0, err
	}
	score := SustainabilityScore(lot, now)
	if err := s.Waste.UpdateScore(lotID, score); err != nil {
		return 0, err
	}
	return score, nil
}
