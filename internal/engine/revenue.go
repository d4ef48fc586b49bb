package engine

import (
	"math"

	"reviewpulse/internal/taxonomy"
)

// Fallback price when an app has no configured price.
const defaultAvgPrice = 9.99

// Default per-churn-review revenue multipliers by niche. B2B users churn
// fewer seats at higher value; games churn many users at low value per
// head but high volume.
var defaultNicheMultipliers = map[string]float64{
	"b2b":      50,
	"consumer": 100,
	"games":    200,
}

// RevenueEstimate is the Fermi-style monthly leakage projection. It is an
// order-of-magnitude figure built from coarse multipliers, not accounting.
type RevenueEstimate struct {
	ChurnReviewCount float64 // whale-weighted
	Multiplier       float64
	AvgPrice         float64
	MonthlyUSD       float64
}

// RevenueEstimator projects monthly revenue leakage from churn-relevant
// pain reviews. Pure and total: always returns a finite, non-negative
// figure, zero when there is no churn signal.
type RevenueEstimator struct {
	multipliers map[string]float64
}

// NewRevenueEstimator merges configured niche multipliers over the
// defaults. A nil map keeps the defaults.
func NewRevenueEstimator(multipliers map[string]float64) *RevenueEstimator {
	merged := make(map[string]float64, len(defaultNicheMultipliers))
	for k, v := range defaultNicheMultipliers {
		merged[k] = v
	}
	for k, v := range multipliers {
		if v > 0 {
			merged[k] = v
		}
	}
	return &RevenueEstimator{multipliers: merged}
}

// Estimate computes the leakage for one app. Churn-relevant reviews are
// those whose dominant matched pillar is Economic or Functional, weighted
// by the whale predicate. Unknown niches fall back to "consumer"; a
// non-positive price falls back to the default.
func (e *RevenueEstimator) Estimate(matches []Match, niche string, avgPrice float64) RevenueEstimate {
	var churn float64
	for _, m := range matches {
		pillar, ok := m.DominantPillar()
		if !ok {
			continue
		}
		if pillar == taxonomy.Economic || pillar == taxonomy.Functional {
			churn += PainWeight(m.Review)
		}
	}

	multiplier, ok := e.multipliers[niche]
	if !ok {
		multiplier = e.multipliers["consumer"]
	}
	if avgPrice <= 0 {
		avgPrice = defaultAvgPrice
	}

	monthly := churn * multiplier * avgPrice
	if math.IsNaN(monthly) || math.IsInf(monthly, 0) || monthly < 0 {
		monthly = 0
	}
	return RevenueEstimate{
		ChurnReviewCount: churn,
		Multiplier:       multiplier,
		AvgPrice:         avgPrice,
		MonthlyUSD:       monthly,
	}
}
