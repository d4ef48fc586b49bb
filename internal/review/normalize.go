package review

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"
)

// Raw is one review as it arrives from a store feed or a saved dump,
// before any field coercion. Keys vary by source.
type Raw map[string]any

// Stats counts what the normalizer had to coerce or drop across a batch.
type Stats struct {
	Total          int
	Kept           int
	DroppedNoText  int
	DroppedShort   int
	DroppedNoDate  int
	DefaultedDate  int
	CoercedRatings int
	OutOfWindow    int
}

func (s Stats) String() string {
	return fmt.Sprintf("kept %d/%d (no-text %d, too-short %d, bad-date %d, defaulted-date %d, coerced-rating %d, out-of-window %d)",
		s.Kept, s.Total, s.DroppedNoText, s.DroppedShort, s.DroppedNoDate, s.DefaultedDate, s.CoercedRatings, s.OutOfWindow)
}

// Normalizer turns raw payload maps into Reviews. Now is injectable so a
// run is reproducible against a fixed dump.
type Normalizer struct {
	Now func() time.Time
	// DaysBack limits the analysis window; reviews older than
	// Now-DaysBack days are dropped. Zero disables the window.
	DaysBack int
	// MinWords drops reviews whose text carries fewer words than this.
	// Zero disables the filter.
	MinWords int
}

var ratingKeys = []string{"rating", "score", "stars", "starRating"}
var dateKeys = []string{"date", "reviewDate", "createdAt", "updatedAt"}
var textKeys = []string{"text", "reviewText", "content", "body", "comment"}
var titleKeys = []string{"title", "reviewTitle", "heading"}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Normalize coerces a batch into Reviews, dropping only reviews with no
// usable text. Everything else is defaulted and counted rather than
// rejected. Output order follows input order.
func (n *Normalizer) Normalize(raws []Raw) ([]Review, Stats) {
	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}
	var cutoff time.Time
	if n.DaysBack > 0 {
		cutoff = now.AddDate(0, 0, -n.DaysBack)
	}

	stats := Stats{Total: len(raws)}
	out := make([]Review, 0, len(raws))
	for i, raw := range raws {
		r := Review{
			ID:      stringField(raw, "id", "reviewId"),
			Title:   stringFieldKeys(raw, titleKeys),
			Body:    stringFieldKeys(raw, textKeys),
			Version: stringField(raw, "version", "appVersion"),
			Author:  stringField(raw, "author", "userName"),
		}
		if r.Body == "" && r.Title == "" {
			stats.DroppedNoText++
			continue
		}
		if n.MinWords > 0 && r.WordCount() < n.MinWords {
			stats.DroppedShort++
			continue
		}
		if r.ID == "" {
			r.ID = fmt.Sprintf("review-%d", i)
		}

		rating, coerced := parseRating(raw)
		r.Rating = rating
		if coerced {
			stats.CoercedRatings++
		}

		date, ok, hadField := parseDate(raw)
		switch {
		case ok:
			r.Date = date
		case hadField:
			// A date field existed but never parsed; the review
			// cannot be bucketed into a week.
			stats.DroppedNoDate++
			continue
		default:
			r.Date = now
			stats.DefaultedDate++
		}

		if !cutoff.IsZero() && r.Date.Before(cutoff) {
			stats.OutOfWindow++
			continue
		}

		out = append(out, r)
	}
	stats.Kept = len(out)
	if stats.Kept < stats.Total {
		log.Printf("normalize: %s", stats)
	}
	return out, stats
}

func parseRating(raw Raw) (int, bool) {
	for _, key := range ratingKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch x := v.(type) {
		case float64:
			return clipRating(int(x)), false
		case int:
			return clipRating(x), false
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return clipRating(int(f)), false
			}
		}
	}
	return 3, true
}

func clipRating(r int) int {
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}

func parseDate(raw Raw) (t time.Time, ok bool, hadField bool) {
	for _, key := range dateKeys {
		v, present := raw[key]
		if !present {
			continue
		}
		hadField = true
		s, isStr := v.(string)
		if !isStr || s == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true, true
			}
		}
	}
	return time.Time{}, false, hadField
}

func stringField(raw Raw, keys ...string) string {
	return stringFieldKeys(raw, keys)
}

func stringFieldKeys(raw Raw, keys []string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s, isStr := v.(string); isStr && s != "" {
				return s
			}
		}
	}
	return ""
}

// SortStable orders reviews by date then ID so a batch analyzes
// identically regardless of fetch order.
func SortStable(reviews []Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		if !reviews[i].Date.Equal(reviews[j].Date) {
			return reviews[i].Date.Before(reviews[j].Date)
		}
		return reviews[i].ID < reviews[j].ID
	})
}
