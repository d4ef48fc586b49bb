// Package report renders analysis results as markdown documents: one
// report per app, a cross-app leaderboard, and the niche battlefield view.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"reviewpulse/internal/engine"
	"reviewpulse/internal/narrative"
	"reviewpulse/internal/review"
)

// RenderApp renders one app's full report. Output is a pure function of
// its inputs so re-running against the same dump reproduces the bytes.
func RenderApp(res *engine.Result, n narrative.Narrative, runDate string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s — Review Volatility Report\n\n", res.App)
	fmt.Fprintf(&b, "*Niche: %s · Run date: %s · Reviews analyzed: %d*\n\n", res.Niche, runDate, res.TotalReviews)

	fmt.Fprintf(&b, "## Verdict\n\n%s\n\n", n.Verdict)

	b.WriteString("## Scorecard\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Risk score | %.1f / 100 |\n", res.RiskScore)
	fmt.Fprintf(&b, "| Primary pillar | %s |\n", res.PrimaryPillar)
	fmt.Fprintf(&b, "| Momentum | %s (slope %.2f, delta %.2f) |\n",
		res.Volatility.Momentum, res.Volatility.Slope, res.Volatility.SlopeDelta)
	fmt.Fprintf(&b, "| Pain reviews | %d of %d |\n", res.PainReviews, res.TotalReviews)
	fmt.Fprintf(&b, "| High-value reviewers | %d |\n", res.WhaleCount)
	fmt.Fprintf(&b, "| Est. monthly leakage | $%.0f |\n", res.Revenue.MonthlyUSD)
	b.WriteString("\n")

	if res.BrokenUpdate != nil {
		fmt.Fprintf(&b, "> **Broken update suspected:** version %s owns %.0f%% of pain reviews (%d reviews).\n\n",
			res.BrokenUpdate.Version, res.BrokenUpdate.Share*100, res.BrokenUpdate.PainCount)
	}

	if len(res.TopCategories) > 0 {
		b.WriteString("## Top Pain Categories\n\n")
		b.WriteString("| Category | Pillar | Reviews | Weight |\n|---|---|---|---|\n")
		for _, c := range res.TopCategories {
			fmt.Fprintf(&b, "| %s | %s | %d | %.1f |\n", c.Name, c.Pillar, c.Count, c.Weight)
		}
		b.WriteString("\n")
	}

	if len(res.Timeline) > 0 {
		b.WriteString("## Weekly Timeline\n\n")
		b.WriteString("| Week | Reviews | Weighted pain | Density | Flags |\n|---|---|---|---|---|\n")
		for _, w := range res.Timeline {
			fmt.Fprintf(&b, "| %s | %d | %.1f | %.3f | %s |\n",
				w.Label, w.TotalReviews, w.WeightedPain, w.Density, bucketFlags(w))
		}
		b.WriteString("\n")
	}

	if len(res.NGrams) > 0 {
		b.WriteString("## Complaint Phrases\n\n")
		for _, c := range res.NGrams {
			fmt.Fprintf(&b, "- %q × %d\n", c.Phrase, c.Count)
		}
		b.WriteString("\n")
	}

	if len(res.Migrations) > 0 {
		b.WriteString("## Competitor Signals\n\n")
		b.WriteString("| Competitor | Type | Count |\n|---|---|---|\n")
		for _, e := range res.Migrations {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", e.Competitor, e.Type, e.Count)
		}
		b.WriteString("\n")
	}

	if len(res.TopEvidence) > 0 {
		b.WriteString("## Evidence\n\n")
		for _, ev := range res.TopEvidence {
			fmt.Fprintf(&b, "> %s\n>\n> — %d★, %s, categories: %s\n\n",
				quoteText(ev.Review), ev.Review.Rating,
				ev.Review.Date.Format("2006-01-02"), strings.Join(ev.Categories, ", "))
		}
	}

	fmt.Fprintf(&b, "## Assessment\n\n%s\n", n.Assessment)
	if len(n.Moves) > 0 {
		b.WriteString("\n### Strategic Moves\n\n")
		for _, m := range n.Moves {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	if res.InputStats.Total > res.InputStats.Kept {
		fmt.Fprintf(&b, "\n---\n\n*Input quality: %s*\n", res.InputStats)
	}

	return b.String()
}

func bucketFlags(w engine.WeeklyBucket) string {
	var flags []string
	if w.Anomalous {
		flags = append(flags, "**"+w.SpikeName+"**")
	}
	if w.LowConfidence {
		flags = append(flags, "low confidence")
	}
	if len(flags) == 0 {
		return "—"
	}
	return strings.Join(flags, ", ")
}

// quoteText trims a review to a single quotable line, truncating on a
// rune boundary so multi-byte text is never cut mid-character.
func quoteText(r review.Review) string {
	text := strings.TrimSpace(r.Text())
	if len(text) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "…"
	}
	return strings.ReplaceAll(text, "\n", " ")
}

// RenderLeaderboard ranks results by risk score descending.
func RenderLeaderboard(results []*engine.Result, runDate string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Volatility Leaderboard\n\n*Run date: %s*\n\n", runDate)
	b.WriteString("| Rank | App | Niche | Risk | Slope | Momentum | Pain ratio | Reviews | Primary pillar | Monthly leakage |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for i, r := range results {
		ratio := 0.0
		if r.TotalReviews > 0 {
			ratio = float64(r.PainReviews) / float64(r.TotalReviews)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %.1f | %.2f | %s | %.0f%% | %d | %s | $%.0f |\n",
			i+1, r.App, r.Niche, r.RiskScore, r.Volatility.Slope,
			r.Volatility.Momentum, ratio*100, r.TotalReviews,
			r.PrimaryPillar, r.Revenue.MonthlyUSD)
	}
	return b.String()
}

// RenderNicheMatrix renders the per-niche pillar comparison with the
// safe-harbor verdicts.
func RenderNicheMatrix(m engine.NicheMatrix) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Niche: %s\n\n", m.Niche)
	b.WriteString("| App | Functional | Economic | Experience | Risk | Safe harbor |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, row := range m.Rows {
		verdict := "no"
		if row.SafeHarbor {
			verdict = "**yes**"
		}
		fmt.Fprintf(&b, "| %s | %.0f | %.0f | %.0f | %.1f | %s |\n",
			row.App, row.Scores.Functional, row.Scores.Economic,
			row.Scores.Experience, row.RiskScore, verdict)
	}
	return b.String()
}

// Write saves a rendered report under <dataDir>/reports/ and returns
// the path.
func Write(dataDir, name, content string) (string, error) {
	dir := filepath.Join(dataDir, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// FileName builds a stable report file name for an app.
func FileName(appName, runDate string) string {
	slug := strings.ToLower(strings.ReplaceAll(appName, " ", "-"))
	return fmt.Sprintf("%s-%s.md", slug, runDate)
}
