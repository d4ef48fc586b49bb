package engine

import (
	"testing"

	"reviewpulse/internal/review"
)

func lowRated(bodies ...string) []review.Review {
	out := make([]review.Review, len(bodies))
	for i, b := range bodies {
		out[i] = review.Review{ID: string(rune('a' + i)), Body: b, Rating: 1}
	}
	return out
}

func TestExtractCountsPhrases(t *testing.T) {
	e := NewNGramExtractor("FocusTimer")
	clusters := e.Extract(lowRated(
		"keeps crashing daily",
		"keeps crashing on startup",
		"battery drain issue",
	))
	if len(clusters) == 0 {
		t.Fatal("no clusters")
	}
	if clusters[0].Phrase != "keeps crashing" || clusters[0].Count != 2 {
		t.Errorf("top cluster = %+v, want {keeps crashing 2}", clusters[0])
	}
}

func TestExtractIgnoresHighRatings(t *testing.T) {
	e := NewNGramExtractor("FocusTimer")
	reviews := lowRated("keeps crashing daily")
	reviews = append(reviews, review.Review{ID: "z", Body: "keeps crashing daily", Rating: 4})
	clusters := e.Extract(reviews)
	for _, c := range clusters {
		if c.Count > 1 {
			t.Errorf("phrase %q counted %d times, 4-star review must be excluded", c.Phrase, c.Count)
		}
	}
}

func TestExtractFiltersAppName(t *testing.T) {
	e := NewNGramExtractor("Focus Timer")
	clusters := e.Extract(lowRated("focus timer keeps crashing"))
	for _, c := range clusters {
		if c.Phrase == "focus timer" {
			t.Errorf("app name survived as phrase: %+v", c)
		}
	}
}

func TestExtractFiltersGenericPraise(t *testing.T) {
	e := NewNGramExtractor("FocusTimer")
	clusters := e.Extract(lowRated("good app but keeps crashing"))
	for _, c := range clusters {
		if c.Phrase == "good app" {
			t.Errorf("generic praise survived: %+v", c)
		}
	}
}

func TestExtractEmptyCorpus(t *testing.T) {
	e := NewNGramExtractor("FocusTimer")
	if got := e.Extract(nil); len(got) != 0 {
		t.Errorf("empty corpus produced %v", got)
	}
	if got := e.Extract(lowRated("ok")); len(got) != 0 {
		t.Errorf("single-word corpus produced %v", got)
	}
}

func TestExtractTiesKeepFirstSeenOrder(t *testing.T) {
	e := NewNGramExtractor("FocusTimer")
	clusters := e.Extract(lowRated("battery drain", "screen flicker"))
	if len(clusters) < 2 {
		t.Fatalf("clusters = %v", clusters)
	}
	if clusters[0].Phrase != "battery drain" || clusters[1].Phrase != "screen flicker" {
		t.Errorf("tie order = %q, %q", clusters[0].Phrase, clusters[1].Phrase)
	}
}

func TestTopClustersDropsSingletons(t *testing.T) {
	e := NewNGramExtractor("FocusTimer")
	reviews := lowRated("keeps crashing daily", "keeps crashing nightly", "weird oneoff phrase")
	top := e.TopClusters(reviews, 10)
	for _, c := range top {
		if c.Count < 2 {
			t.Errorf("singleton %+v leaked into top clusters", c)
		}
	}
}
