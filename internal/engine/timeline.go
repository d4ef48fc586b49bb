package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"reviewpulse/internal/review"
)

// Minimum reviews a week needs before its density is trusted for
// anomaly statistics.
const defaultMinWeekSample = 5

// Sigma multiplier on the rolling stddev when flagging anomalous weeks.
const anomalySigma = 2.0

// WeeklyBucket aggregates one ISO week of reviews. Pain here means a
// keyword match, not a low star rating: a 5-star review describing a
// crash still counts.
type WeeklyBucket struct {
	Label         string    // e.g. "2025-W23"
	Start         time.Time // Monday of the ISO week, UTC
	TotalReviews  int
	PainReviews   int
	WeightedPain  float64 // 1.0 per matching review, 3.0 per matching whale
	Density       float64 // WeightedPain / TotalReviews
	LowConfidence bool    // TotalReviews below the sample floor
	Anomalous     bool    // density above rolling mean + anomalySigma*stddev
	SpikeName     string  // set only on anomalous weeks
}

// weekStart returns the Monday of t's ISO week in UTC.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(wd - 1))
}

func weekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// BuildTimeline buckets matches into ISO weeks, computes whale-weighted
// densities, and flags anomalous weeks against the rolling statistics of
// the confident weeks before them. Empty weeks between the first and last
// observed week are filled in so gaps stay visible in reports.
func BuildTimeline(matches []Match, minWeekSample int) []WeeklyBucket {
	if minWeekSample <= 0 {
		minWeekSample = defaultMinWeekSample
	}
	if len(matches) == 0 {
		return nil
	}

	byWeek := make(map[time.Time]*WeeklyBucket)
	var keys []time.Time
	for _, m := range matches {
		start := weekStart(m.Review.Date)
		b, ok := byWeek[start]
		if !ok {
			b = &WeeklyBucket{Label: weekLabel(start), Start: start}
			byWeek[start] = b
			keys = append(keys, start)
		}
		b.TotalReviews++
		if m.HasPain() {
			b.PainReviews++
			b.WeightedPain += PainWeight(m.Review)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	var buckets []WeeklyBucket
	for cur := keys[0]; !cur.After(keys[len(keys)-1]); cur = cur.AddDate(0, 0, 7) {
		if b, ok := byWeek[cur]; ok {
			buckets = append(buckets, *b)
		} else {
			buckets = append(buckets, WeeklyBucket{Label: weekLabel(cur), Start: cur})
		}
	}

	for i := range buckets {
		b := &buckets[i]
		if b.TotalReviews > 0 {
			b.Density = b.WeightedPain / float64(b.TotalReviews)
		}
		b.LowConfidence = b.TotalReviews < minWeekSample
	}

	// Each week is compared against the mean and stddev of the
	// confident weeks before it; low-confidence weeks neither get
	// flagged nor feed the statistics.
	var history []float64
	for i := range buckets {
		b := &buckets[i]
		if len(history) >= 2 && !b.LowConfidence {
			mean, stddev := meanStddev(history)
			if b.Density > mean+anomalySigma*stddev {
				b.Anomalous = true
			}
		}
		if !b.LowConfidence {
			history = append(history, b.Density)
		}
	}
	return buckets
}

func meanStddev(xs []float64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	stddev = math.Sqrt(ss / float64(len(xs)))
	return mean, stddev
}

// NameSpikes labels every anomalous bucket. A version owning the
// plurality of the week's matching reviews names it
// "The Version {v} Spike"; otherwise the week's dominant pain phrase
// does; otherwise the generic fallback applies.
func NameSpikes(buckets []WeeklyBucket, matches []Match, ngrams *NGramExtractor) {
	for i := range buckets {
		b := &buckets[i]
		if !b.Anomalous {
			continue
		}
		end := b.Start.AddDate(0, 0, 7)
		var weekPain []Match
		versions := make(map[string]int)
		for _, m := range matches {
			if m.Review.Date.Before(b.Start) || !m.Review.Date.Before(end) {
				continue
			}
			if !m.HasPain() {
				continue
			}
			weekPain = append(weekPain, m)
			if m.Review.Version != "" {
				versions[m.Review.Version]++
			}
		}
		if v, ok := pluralityVersion(versions); ok {
			b.SpikeName = fmt.Sprintf("The Version %s Spike", v)
			continue
		}
		if ngrams != nil {
			reviews := make([]review.Review, 0, len(weekPain))
			for _, m := range weekPain {
				reviews = append(reviews, m.Review)
			}
			if phrases := ngrams.Extract(reviews); len(phrases) > 0 {
				b.SpikeName = fmt.Sprintf("The %q Spike", phrases[0].Phrase)
				continue
			}
		}
		b.SpikeName = "Critical Spike"
	}
}

// pluralityVersion returns the version with the strictly highest count.
// Ties mean no plurality.
func pluralityVersion(versions map[string]int) (string, bool) {
	if len(versions) == 0 {
		return "", false
	}
	var names []string
	for v := range versions {
		names = append(names, v)
	}
	sort.Strings(names)
	best, bestCount := "", 0
	tied := false
	for _, v := range names {
		switch {
		case versions[v] > bestCount:
			best, bestCount, tied = v, versions[v], false
		case versions[v] == bestCount:
			tied = true
		}
	}
	if tied {
		return "", false
	}
	return best, true
}

// BrokenUpdate identifies a release owning more than the threshold share
// of all matching pain reviews, if any.
type BrokenUpdate struct {
	Version   string
	PainCount int
	Share     float64
}

const brokenUpdateShare = 0.30

// DetectBrokenUpdate scans matching reviews for a version that owns more
// than 30% of them. Reviews without a version still count in the
// denominator.
func DetectBrokenUpdate(matches []Match) (BrokenUpdate, bool) {
	versions := make(map[string]int)
	total := 0
	for _, m := range matches {
		if !m.HasPain() {
			continue
		}
		total++
		if m.Review.Version != "" {
			versions[m.Review.Version]++
		}
	}
	if total == 0 {
		return BrokenUpdate{}, false
	}
	var names []string
	for v := range versions {
		names = append(names, v)
	}
	sort.Strings(names)
	for _, v := range names {
		share := float64(versions[v]) / float64(total)
		if share > brokenUpdateShare {
			return BrokenUpdate{Version: v, PainCount: versions[v], Share: share}, true
		}
	}
	return BrokenUpdate{}, false
}
