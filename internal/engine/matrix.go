package engine

import (
	"sort"

	"reviewpulse/internal/taxonomy"
)

// Safe-harbor thresholds on normalized pillar scores and final risk.
const (
	safeHarborPillarMax = 30.0
	safeHarborRiskMax   = 50.0
)

// PillarScores are one app's normalized 0-100 pillar scores.
type PillarScores struct {
	Functional float64
	Economic   float64
	Experience float64
}

// MatrixRow is one app's entry in the niche comparison matrix.
type MatrixRow struct {
	App        string
	Scores     PillarScores
	RiskScore  float64
	SafeHarbor bool
}

// NicheMatrix compares all apps of one niche across pillars.
type NicheMatrix struct {
	Niche string
	Rows  []MatrixRow
}

// normalizePillar converts a raw density into a 0-100 score using the
// same base weights the risk score uses, capped at 100.
func normalizePillar(density, baseWeight float64) float64 {
	return min(100, max(0, density*baseWeight))
}

// BuildMatrixRow normalizes an app's densities and applies the safe
// harbor rule: low Functional and Economic scores alone do not qualify an
// app, the overall risk score can still disqualify it.
func BuildMatrixRow(policy RiskPolicy, app string, densities map[taxonomy.Pillar]float64, riskScore float64) MatrixRow {
	scores := PillarScores{
		Functional: normalizePillar(densities[taxonomy.Functional], policy.FunctionalBase),
		Economic:   normalizePillar(densities[taxonomy.Economic], policy.EconomicBase),
		Experience: normalizePillar(densities[taxonomy.Experience], policy.ExperienceBase),
	}
	return MatrixRow{
		App:       app,
		Scores:    scores,
		RiskScore: riskScore,
		SafeHarbor: scores.Functional < safeHarborPillarMax &&
			scores.Economic < safeHarborPillarMax &&
			riskScore < safeHarborRiskMax,
	}
}

// BuildNicheMatrix assembles rows for one niche, sorted by app name so
// the artifact is stable across runs.
func BuildNicheMatrix(niche string, rows []MatrixRow) NicheMatrix {
	sorted := make([]MatrixRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].App < sorted[j].App })
	return NicheMatrix{Niche: niche, Rows: sorted}
}
