package engine

import (
	"fmt"
	"regexp"
	"sort"

	"reviewpulse/internal/review"
)

// MigrationType distinguishes an explicit switch from a mere comparison.
type MigrationType string

const (
	MigrationChurn      MigrationType = "churn"
	MigrationComparison MigrationType = "comparison"
)

// MigrationEvent counts mentions of one competitor in one frame. Only
// churn events feed the competitive-loss signal; comparisons are recorded
// but never counted as churn.
type MigrationEvent struct {
	Competitor string
	Type       MigrationType
	Count      int
}

// MigrationMapper scans review text for explicit churn language and
// comparative framing around configured competitor names. Mentions with
// neither frame are ignored: precision over recall, because churn counts
// feed a financial estimate.
type MigrationMapper struct {
	competitors []string
	churn       map[string]*regexp.Regexp
	comparison  map[string]*regexp.Regexp
}

// NewMigrationMapper compiles patterns for each competitor name.
func NewMigrationMapper(competitors []string) (*MigrationMapper, error) {
	m := &MigrationMapper{
		churn:      make(map[string]*regexp.Regexp),
		comparison: make(map[string]*regexp.Regexp),
	}
	seen := make(map[string]bool)
	for _, name := range competitors {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		quoted := regexp.QuoteMeta(name)
		churn, err := regexp.Compile(`(?i)(switched|moved|migrated|changed)\s+to\s+` + quoted + `\b`)
		if err != nil {
			return nil, fmt.Errorf("churn pattern for %q: %w", name, err)
		}
		cmp, err := regexp.Compile(`(?i)(better|worse)\s+than\s+` + quoted + `\b`)
		if err != nil {
			return nil, fmt.Errorf("comparison pattern for %q: %w", name, err)
		}
		m.competitors = append(m.competitors, name)
		m.churn[name] = churn
		m.comparison[name] = cmp
	}
	sort.Strings(m.competitors)
	return m, nil
}

// Map scans all reviews and returns one event per competitor/type pair
// that occurred, competitors in sorted order with churn before comparison.
func (m *MigrationMapper) Map(reviews []review.Review) []MigrationEvent {
	var events []MigrationEvent
	for _, name := range m.competitors {
		churnCount, cmpCount := 0, 0
		for _, r := range reviews {
			text := r.Text()
			switch {
			case m.churn[name].MatchString(text):
				churnCount++
			case m.comparison[name].MatchString(text):
				cmpCount++
			}
		}
		if churnCount > 0 {
			events = append(events, MigrationEvent{Competitor: name, Type: MigrationChurn, Count: churnCount})
		}
		if cmpCount > 0 {
			events = append(events, MigrationEvent{Competitor: name, Type: MigrationComparison, Count: cmpCount})
		}
	}
	return events
}

// ChurnTotal sums churn-typed event counts.
func ChurnTotal(events []MigrationEvent) int {
	total := 0
	for _, e := range events {
		if e.Type == MigrationChurn {
			total += e.Count
		}
	}
	return total
}
