package engine

import "reviewpulse/internal/taxonomy"

// RiskPolicy holds the empirically chosen scoring constants. They are
// policy, not law: keep them configurable for calibration.
type RiskPolicy struct {
	FunctionalBase float64 // per-density points for the Functional pillar
	EconomicBase   float64
	ExperienceBase float64

	EconomicFloorDensity   float64 // economic density above this forces EconomicFloor
	EconomicFloor          float64
	FunctionalFloorDensity float64
	FunctionalFloor        float64
}

// DefaultRiskPolicy mirrors the calibrated production constants.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		FunctionalBase:         200,
		EconomicBase:           250,
		ExperienceBase:         150,
		EconomicFloorDensity:   0.10,
		EconomicFloor:          60,
		FunctionalFloorDensity: 0.15,
		FunctionalFloor:        50,
	}
}

// Score combines pillar densities and the volatility slope into a final
// risk score in [0,100]. The slope multiplier dampens or amplifies the
// base, but the severity floor is applied afterwards with max(): an
// apparently improving trend can never erase an active scam or crash
// signal.
func (p RiskPolicy) Score(densities map[taxonomy.Pillar]float64, slope float64) float64 {
	functional := densities[taxonomy.Functional]
	economic := densities[taxonomy.Economic]
	experience := densities[taxonomy.Experience]

	base := functional*p.FunctionalBase + economic*p.EconomicBase + experience*p.ExperienceBase

	var multiplier float64
	if slope > 0 {
		multiplier = min(2.0, 1+slope)
	} else {
		multiplier = max(0.5, 1+slope*0.1)
	}

	var floor float64
	switch {
	case economic > p.EconomicFloorDensity:
		floor = p.EconomicFloor
	case functional > p.FunctionalFloorDensity:
		floor = p.FunctionalFloor
	}

	final := max(base*multiplier, floor)
	return min(100, max(0, final))
}

// PrimaryPillar returns the pillar with the highest density. Ties resolve
// in the fixed order Functional, Economic, Experience so output is stable.
func PrimaryPillar(densities map[taxonomy.Pillar]float64) taxonomy.Pillar {
	order := []taxonomy.Pillar{taxonomy.Functional, taxonomy.Economic, taxonomy.Experience}
	best := order[0]
	for _, p := range order[1:] {
		if densities[p] > densities[best] {
			best = p
		}
	}
	return best
}
