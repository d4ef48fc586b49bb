// Package engine implements the review volatility analysis: keyword
// matching, pillar risk, weekly timelines, anomaly detection, competitor
// migration and the revenue leakage estimate.
package engine

import (
	"strings"

	"reviewpulse/internal/review"
)

// Weight multipliers applied to pain reviews when aggregating evidence.
const (
	whaleWeight  = 3.0
	normalWeight = 1.0
)

// Long reviews count as whales regardless of vocabulary.
const whaleWordThreshold = 40

// whaleVocabulary marks reviewers who talk like paying power users.
// Matched as lowercase substrings against title+body.
var whaleVocabulary = []string{
	"latency",
	"vector",
	"workflow",
	"pipeline",
	"integration",
	"api",
	"batch",
	"export",
	"sync",
	"credits",
	"quota",
	"render",
	"4k",
	"resolution",
	"frame rate",
}

// IsWhale reports whether a review comes from a likely high-value user:
// either long-form (> whaleWordThreshold words) or using power-user
// vocabulary. This is the only place the whale predicate lives.
func IsWhale(r review.Review) bool {
	if r.WordCount() > whaleWordThreshold {
		return true
	}
	text := r.Text()
	for _, term := range whaleVocabulary {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// PainWeight returns the evidence weight of a review: whaleWeight for
// whales, normalWeight otherwise.
func PainWeight(r review.Review) float64 {
	if IsWhale(r) {
		return whaleWeight
	}
	return normalWeight
}
