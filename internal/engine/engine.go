package engine

import (
	"fmt"

	"reviewpulse/internal/review"
	"reviewpulse/internal/taxonomy"
)

const (
	topCategoryLimit = 5
	topEvidenceLimit = 5
	topNGramLimit    = 10
)

// App describes one target of an analysis run.
type App struct {
	Name        string
	Niche       string
	AvgPrice    float64
	Competitors []string
}

// Engine runs the full volatility analysis for one app at a time. All
// components are pure; the engine only sequences them, so a single
// Engine may be shared across goroutines analyzing independent apps.
type Engine struct {
	tax     *taxonomy.Taxonomy
	matcher *Matcher
	risk    RiskPolicy
	revenue *RevenueEstimator

	// MinWeekSample is the smallest weekly review count trusted for
	// anomaly statistics.
	MinWeekSample int
}

// New builds an engine around a loaded taxonomy. Zero-value policy
// fields fall back to defaults.
func New(tax *taxonomy.Taxonomy, risk RiskPolicy, nicheMultipliers map[string]float64) *Engine {
	if risk == (RiskPolicy{}) {
		risk = DefaultRiskPolicy()
	}
	return &Engine{
		tax:     tax,
		matcher: NewMatcher(tax),
		risk:    risk,
		revenue: NewRevenueEstimator(nicheMultipliers),
	}
}

// Analyze produces the full Result for one app from an immutable,
// already-normalized review batch. Insufficient data never fails the
// analysis; it degrades to neutral zero signals.
func (e *Engine) Analyze(app App, reviews []review.Review, stats review.Stats) (*Result, error) {
	if app.Name == "" {
		return nil, fmt.Errorf("analyze: app name is required")
	}
	review.SortStable(reviews)
	matches := e.matcher.MatchAll(reviews)

	densities := PillarDensities(e.tax, matches)
	vol := AnalyzeVolatility(matches)
	riskScore := e.risk.Score(densities, vol.Slope)

	ngrams := NewNGramExtractor(app.Name)
	timeline := BuildTimeline(matches, e.MinWeekSample)
	NameSpikes(timeline, matches, ngrams)

	mapper, err := NewMigrationMapper(app.Competitors)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", app.Name, err)
	}

	result := &Result{
		App:           app.Name,
		Niche:         app.Niche,
		TotalReviews:  len(reviews),
		PainReviews:   countPain(matches),
		WhaleCount:    countWhales(reviews),
		Densities:     densities,
		PrimaryPillar: PrimaryPillar(densities),
		RiskScore:     riskScore,
		Volatility:    vol,
		TopCategories: topCategorySignals(e.tax, matches, topCategoryLimit),
		Timeline:      timeline,
		NGrams:        ngrams.TopClusters(reviews, topNGramLimit),
		Migrations:    mapper.Map(reviews),
		Revenue:       e.revenue.Estimate(matches, app.Niche, app.AvgPrice),
		TopEvidence:   topEvidence(matches, topEvidenceLimit),
		InputStats:    stats,
	}
	if bu, ok := DetectBrokenUpdate(matches); ok {
		result.BrokenUpdate = &bu
	}
	return result, nil
}

// MatrixRow builds this app's niche-matrix entry from its result.
func (e *Engine) MatrixRow(r *Result) MatrixRow {
	return BuildMatrixRow(e.risk, r.App, r.Densities, r.RiskScore)
}

func countPain(matches []Match) int {
	n := 0
	for _, m := range matches {
		if m.HasPain() {
			n++
		}
	}
	return n
}

func countWhales(reviews []review.Review) int {
	n := 0
	for _, r := range reviews {
		if IsWhale(r) {
			n++
		}
	}
	return n
}
