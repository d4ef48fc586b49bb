package engine

import (
	"fmt"
	"sort"

	"reviewpulse/internal/review"
	"reviewpulse/internal/taxonomy"
)

// CategorySignal is one pain category's footprint in an analysis.
type CategorySignal struct {
	Name   string
	Pillar taxonomy.Pillar
	Count  int
	Weight float64
}

// Evidence is one high-signal review quoted in reports, ranked by its
// whale weight and category severity.
type Evidence struct {
	Review     review.Review
	Weight     float64
	Categories []string
}

// Result is the complete analysis output for one app. Plain data, no
// behavior beyond flattening; everything a report or narrative needs.
type Result struct {
	App           string
	Niche         string
	TotalReviews  int
	WhaleCount    int
	PainReviews   int
	Densities     map[taxonomy.Pillar]float64
	PrimaryPillar taxonomy.Pillar
	RiskScore     float64
	Volatility    Volatility
	TopCategories []CategorySignal
	Timeline      []WeeklyBucket
	NGrams        []NGramCluster
	Migrations    []MigrationEvent
	Revenue       RevenueEstimate
	TopEvidence   []Evidence
	BrokenUpdate  *BrokenUpdate
	InputStats    review.Stats
}

// Flatten serializes the scalar core of a result into a flat key/value
// document, suitable for a key-ordered store or a narrative prompt.
// Nested sequences (timeline, evidence) are summarized, not expanded.
func (r *Result) Flatten() map[string]string {
	out := map[string]string{
		"app":                r.App,
		"niche":              r.Niche,
		"total_reviews":      fmt.Sprintf("%d", r.TotalReviews),
		"whale_count":        fmt.Sprintf("%d", r.WhaleCount),
		"pain_reviews":       fmt.Sprintf("%d", r.PainReviews),
		"density_functional": fmt.Sprintf("%.4f", r.Densities[taxonomy.Functional]),
		"density_economic":   fmt.Sprintf("%.4f", r.Densities[taxonomy.Economic]),
		"density_experience": fmt.Sprintf("%.4f", r.Densities[taxonomy.Experience]),
		"primary_pillar":     string(r.PrimaryPillar),
		"risk_score":         fmt.Sprintf("%.2f", r.RiskScore),
		"slope":              fmt.Sprintf("%.4f", r.Volatility.Slope),
		"slope_delta":        fmt.Sprintf("%.4f", r.Volatility.SlopeDelta),
		"momentum":           r.Volatility.Momentum,
		"churn_reviews":      fmt.Sprintf("%.1f", r.Revenue.ChurnReviewCount),
		"monthly_leakage":    fmt.Sprintf("%.2f", r.Revenue.MonthlyUSD),
		"anomaly_weeks":      fmt.Sprintf("%d", r.anomalyCount()),
	}
	if r.BrokenUpdate != nil {
		out["broken_update_version"] = r.BrokenUpdate.Version
		out["broken_update_share"] = fmt.Sprintf("%.2f", r.BrokenUpdate.Share)
	}
	if len(r.TopCategories) > 0 {
		out["top_category"] = r.TopCategories[0].Name
	}
	if len(r.NGrams) > 0 {
		out["top_phrase"] = r.NGrams[0].Phrase
	}
	return out
}

func (r *Result) anomalyCount() int {
	n := 0
	for _, b := range r.Timeline {
		if b.Anomalous {
			n++
		}
	}
	return n
}

// AnomalousWeeks returns the flagged buckets in timeline order.
func (r *Result) AnomalousWeeks() []WeeklyBucket {
	var out []WeeklyBucket
	for _, b := range r.Timeline {
		if b.Anomalous {
			out = append(out, b)
		}
	}
	return out
}

// topCategorySignals ranks categories by impact (count × weight), so a
// few heavy complaints outrank many trivial ones. Ties break by name for
// a stable order.
func topCategorySignals(tax *taxonomy.Taxonomy, matches []Match, n int) []CategorySignal {
	counts := CategoryCounts(matches)
	var signals []CategorySignal
	for _, cat := range tax.Categories() {
		if counts[cat.Name] == 0 {
			continue
		}
		signals = append(signals, CategorySignal{
			Name:   cat.Name,
			Pillar: cat.Pillar,
			Count:  counts[cat.Name],
			Weight: cat.Weight,
		})
	}
	sort.Slice(signals, func(i, j int) bool {
		ii := float64(signals[i].Count) * signals[i].Weight
		ij := float64(signals[j].Count) * signals[j].Weight
		if ii != ij {
			return ii > ij
		}
		return signals[i].Name < signals[j].Name
	})
	if len(signals) > n {
		signals = signals[:n]
	}
	return signals
}

// topEvidence picks the n highest-signal matching reviews: whales first,
// then by the heaviest matched category, longer texts first, oldest first
// for stability.
func topEvidence(matches []Match, n int) []Evidence {
	var candidates []Evidence
	for _, m := range matches {
		if !m.HasPain() {
			continue
		}
		weight := PainWeight(m.Review)
		var names []string
		var maxCat float64
		for _, c := range m.Categories {
			names = append(names, c.Name)
			if c.Weight > maxCat {
				maxCat = c.Weight
			}
		}
		candidates = append(candidates, Evidence{
			Review:     m.Review,
			Weight:     weight * maxCat,
			Categories: names,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Weight != candidates[j].Weight {
			return candidates[i].Weight > candidates[j].Weight
		}
		li, lj := len(candidates[i].Review.Body), len(candidates[j].Review.Body)
		if li != lj {
			return li > lj
		}
		if !candidates[i].Review.Date.Equal(candidates[j].Review.Date) {
			return candidates[i].Review.Date.Before(candidates[j].Review.Date)
		}
		return candidates[i].Review.ID < candidates[j].Review.ID
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
