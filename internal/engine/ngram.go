package engine

import (
	"sort"
	"strings"

	"reviewpulse/internal/review"
)

// NGramCluster is one discovered complaint phrase with its frequency.
type NGramCluster struct {
	Phrase string
	Count  int
}

// stopWords are function words excluded from discovered phrases.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "if": true, "so": true, "of": true, "to": true,
	"in": true, "on": true, "at": true, "by": true, "for": true,
	"with": true, "from": true, "as": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "am": true,
	"it": true, "its": true, "this": true, "that": true, "these": true,
	"i": true, "im": true, "ive": true, "my": true, "me": true,
	"you": true, "your": true, "we": true, "they": true, "them": true,
	"he": true, "she": true, "his": true, "her": true,
	"not": true, "no": true, "do": true, "does": true, "did": true,
	"dont": true, "doesnt": true, "didnt": true, "cant": true,
	"will": true, "would": true, "can": true, "could": true,
	"have": true, "has": true, "had": true, "just": true,
	"very": true, "too": true, "also": true, "there": true,
	"when": true, "what": true, "why": true, "how": true,
	"all": true, "any": true, "some": true, "more": true,
	"get": true, "got": true, "even": true, "now": true,
	"app": true, "apps": true,
}

// genericPraise phrases add no diagnostic signal and are dropped.
var genericPraise = map[string]bool{
	"good app":         true,
	"great app":        true,
	"nice app":         true,
	"love it":          true,
	"love this":        true,
	"best app":         true,
	"good game":        true,
	"great game":       true,
	"works great":      true,
	"highly recommend": true,
}

// NGramExtractor discovers 2-3 word complaint phrases from low-rated
// reviews. AppName tokens are filtered so an app's own name never shows
// up as its top complaint.
type NGramExtractor struct {
	appTokens map[string]bool
}

func NewNGramExtractor(appName string) *NGramExtractor {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(appName)) {
		tokens[strings.Trim(tok, ".,!?:;\"'()")] = true
	}
	return &NGramExtractor{appTokens: tokens}
}

// Extract returns phrase clusters from reviews rated 2 or lower, sorted
// by count descending with ties kept in first-seen order. Small or empty
// corpora yield an empty list, never an error.
func (e *NGramExtractor) Extract(reviews []review.Review) []NGramCluster {
	counts := make(map[string]int)
	var order []string

	record := func(phrase string) {
		if genericPraise[phrase] {
			return
		}
		if counts[phrase] == 0 {
			order = append(order, phrase)
		}
		counts[phrase]++
	}

	for _, r := range reviews {
		if r.Rating > 2 {
			continue
		}
		words := e.tokenize(r.Text())
		for i := 0; i < len(words); i++ {
			if i+1 < len(words) {
				record(words[i] + " " + words[i+1])
			}
			if i+2 < len(words) {
				record(words[i] + " " + words[i+1] + " " + words[i+2])
			}
		}
	}

	clusters := make([]NGramCluster, 0, len(order))
	for _, phrase := range order {
		clusters = append(clusters, NGramCluster{Phrase: phrase, Count: counts[phrase]})
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})
	return clusters
}

// TopClusters returns at most n clusters appearing at least twice; singleton
// phrases are noise at report granularity.
func (e *NGramExtractor) TopClusters(reviews []review.Review, n int) []NGramCluster {
	clusters := e.Extract(reviews)
	var out []NGramCluster
	for _, c := range clusters {
		if c.Count < 2 {
			break
		}
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}

// tokenize lowercases, strips punctuation, and drops stop words and the
// app's own name tokens. Phrases are formed over the surviving words, so
// "the app keeps crashing badly" yields "keeps crashing" and
// "crashing badly".
func (e *NGramExtractor) tokenize(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Trim(strings.ToLower(f), ".,!?:;\"'()[]")
		w = strings.ReplaceAll(w, "'", "")
		if w == "" || stopWords[w] || e.appTokens[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}
