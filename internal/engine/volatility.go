package engine

import (
	"sort"
	"time"
)

// Momentum labels derived from slope and slope delta.
const (
	MomentumAccelerating = "Accelerating"
	MomentumDecelerating = "Decelerating"
	MomentumStabilizing  = "Stabilizing"
	MomentumImproving    = "Improving"
)

// Number of weeks in each slope-delta window.
const deltaWindowWeeks = 4

// Volatility is the trend output for one app.
type Volatility struct {
	Slope      float64
	SlopeDelta float64
	Momentum   string
}

// weeklyPainCounts groups matching reviews into ISO weeks and returns the
// per-week pain counts in chronological order, including zero-count weeks
// between the first and last observed week.
func weeklyPainCounts(matches []Match) []float64 {
	byWeek := make(map[time.Time]float64)
	var keys []time.Time
	qualifying := 0
	for _, m := range matches {
		if !m.HasPain() {
			continue
		}
		qualifying++
		start := weekStart(m.Review.Date)
		if _, ok := byWeek[start]; !ok {
			keys = append(keys, start)
		}
		byWeek[start]++
	}
	if qualifying < 2 || len(keys) == 0 {
		return nil
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	var counts []float64
	for cur := keys[0]; !cur.After(keys[len(keys)-1]); cur = cur.AddDate(0, 0, 7) {
		counts = append(counts, byWeek[cur])
	}
	return counts
}

// leastSquaresSlope fits count = a + b*weekIndex and returns b.
func leastSquaresSlope(counts []float64) float64 {
	n := float64(len(counts))
	if n < 2 {
		return 0.0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range counts {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0.0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// CalculateSlope returns the linear-regression slope of weekly pain
// counts. Fewer than 2 weeks of data or fewer than 2 qualifying reviews
// yield 0.0.
func CalculateSlope(matches []Match) float64 {
	return leastSquaresSlope(weeklyPainCounts(matches))
}

// CalculateSlopeDelta compares the slope of the most recent 4 weeks with
// the slope of the 4 weeks before them. Positive delta means the decline
// is accelerating. Windows too sparse to fit fall back to 0.0.
func CalculateSlopeDelta(matches []Match) float64 {
	counts := weeklyPainCounts(matches)
	if len(counts) < deltaWindowWeeks+1 {
		return 0.0
	}
	recent := counts[len(counts)-deltaWindowWeeks:]
	prior := counts[:len(counts)-deltaWindowWeeks]
	if len(prior) > deltaWindowWeeks {
		prior = prior[len(prior)-deltaWindowWeeks:]
	}
	return leastSquaresSlope(recent) - leastSquaresSlope(prior)
}

// MomentumLabel derives the trend label from slope and delta.
func MomentumLabel(slope, delta float64) string {
	switch {
	case slope > 0.1 && delta > 0:
		return MomentumAccelerating
	case slope > 0.1:
		return MomentumDecelerating
	case slope < -0.05:
		return MomentumImproving
	default:
		return MomentumStabilizing
	}
}

// AnalyzeVolatility bundles slope, delta and the momentum label.
func AnalyzeVolatility(matches []Match) Volatility {
	slope := CalculateSlope(matches)
	delta := CalculateSlopeDelta(matches)
	return Volatility{
		Slope:      slope,
		SlopeDelta: delta,
		Momentum:   MomentumLabel(slope, delta),
	}
}
