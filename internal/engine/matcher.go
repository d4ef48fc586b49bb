package engine

import (
	"strings"

	"reviewpulse/internal/review"
	"reviewpulse/internal/taxonomy"
)

// Match is one review's keyword hits, resolved against the taxonomy.
type Match struct {
	Review     review.Review
	Categories []taxonomy.Category
}

// HasPain reports whether the review matched at least one category.
func (m Match) HasPain() bool {
	return len(m.Categories) > 0
}

// DominantPillar returns the pillar of the matched category with the
// highest weight. Earlier taxonomy order wins ties so the result is
// stable. Returns false when nothing matched.
func (m Match) DominantPillar() (taxonomy.Pillar, bool) {
	if len(m.Categories) == 0 {
		return "", false
	}
	best := m.Categories[0]
	for _, c := range m.Categories[1:] {
		if c.Weight > best.Weight {
			best = c
		}
	}
	return best.Pillar, true
}

// Matcher resolves reviews against a fixed taxonomy.
type Matcher struct {
	tax *taxonomy.Taxonomy
}

func NewMatcher(tax *taxonomy.Taxonomy) *Matcher {
	return &Matcher{tax: tax}
}

// Match returns the categories whose keywords appear in the review's
// lowered title+body text, in taxonomy order.
func (m *Matcher) Match(r review.Review) Match {
	text := r.Text()
	var hits []taxonomy.Category
	for _, cat := range m.tax.Categories() {
		for _, kw := range cat.Keywords {
			if strings.Contains(text, kw) {
				hits = append(hits, cat)
				break
			}
		}
	}
	return Match{Review: r, Categories: hits}
}

// MatchAll matches every review, preserving input order.
func (m *Matcher) MatchAll(reviews []review.Review) []Match {
	out := make([]Match, len(reviews))
	for i, r := range reviews {
		out[i] = m.Match(r)
	}
	return out
}

// CategoryCounts returns, per category name, how many reviews matched it.
func CategoryCounts(matches []Match) map[string]int {
	counts := make(map[string]int)
	for _, m := range matches {
		for _, c := range m.Categories {
			counts[c.Name]++
		}
	}
	return counts
}

// PillarDensities computes, per pillar, the sum over its categories of
// category weight times matching review count, divided by the total
// review count. Empty input yields all zeros.
func PillarDensities(tax *taxonomy.Taxonomy, matches []Match) map[taxonomy.Pillar]float64 {
	densities := map[taxonomy.Pillar]float64{
		taxonomy.Functional: 0,
		taxonomy.Economic:   0,
		taxonomy.Experience: 0,
	}
	if len(matches) == 0 {
		return densities
	}
	counts := CategoryCounts(matches)
	for _, cat := range tax.Categories() {
		n := counts[cat.Name]
		if n == 0 {
			continue
		}
		densities[cat.Pillar] += cat.Weight * float64(n)
	}
	total := float64(len(matches))
	for p := range densities {
		densities[p] /= total
	}
	return densities
}
