// Package narrative turns an analysis result into a strategist's readout.
// With an LLM provider it generates a persona-voiced assessment; without
// one it composes a deterministic summary from the same numbers, so the
// run never depends on a model being reachable.
package narrative

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"reviewpulse/internal/engine"
	"reviewpulse/internal/llm"
)

const analystPrompt = `You are a blunt venture analyst assessing an app's competitive exposure from its review data.

App metrics (computed, do not recalculate):
%s

Top complaint phrases: %s
Named spikes: %s

Respond with ONLY this JSON:
{
    "verdict": "One-sentence verdict on whether this app is attackable",
    "assessment": "2-3 paragraph assessment. Reference the momentum label, the risk score, and the revenue leakage figure. Use markdown for emphasis.",
    "moves": ["3-5 concrete strategic moves a competitor could make"]
}`

// Narrative is the readout attached to a report.
type Narrative struct {
	Verdict    string
	Assessment string
	Moves      []string
	Generated  bool // true when an LLM produced it
}

// Generator produces narratives, preferring the provider when set.
type Generator struct {
	provider  llm.Provider
	maxTokens int
}

func NewGenerator(provider llm.Provider, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{provider: provider, maxTokens: maxTokens}
}

// Generate builds the narrative for one result. LLM failures degrade to
// the deterministic fallback rather than failing the app.
func (g *Generator) Generate(ctx context.Context, res *engine.Result) Narrative {
	if g.provider == nil {
		return Fallback(res)
	}

	prompt := fmt.Sprintf(analystPrompt, flattenForPrompt(res), topPhrases(res), spikeNames(res))
	response, err := g.provider.Generate(ctx, prompt, g.maxTokens)
	if err != nil {
		log.Printf("Narrative generation for %s failed, using fallback: %v", res.App, err)
		return Fallback(res)
	}

	parsed := llm.ParseJSONResponse(response)
	verdict := llm.GetString(parsed, "verdict")
	assessment := llm.GetString(parsed, "assessment")
	if verdict == "" || assessment == "" {
		log.Printf("Narrative response for %s missing fields, using fallback", res.App)
		return Fallback(res)
	}
	return Narrative{
		Verdict:    verdict,
		Assessment: assessment,
		Moves:      llm.GetStrings(parsed, "moves"),
		Generated:  true,
	}
}

// Fallback composes the deterministic narrative from the result alone.
func Fallback(res *engine.Result) Narrative {
	var verdict string
	switch {
	case res.RiskScore >= 70:
		verdict = fmt.Sprintf("%s is highly exposed: risk %.0f/100 with %s complaint momentum.",
			res.App, res.RiskScore, strings.ToLower(res.Volatility.Momentum))
	case res.RiskScore >= 40:
		verdict = fmt.Sprintf("%s shows meaningful weakness (risk %.0f/100), concentrated on the %s pillar.",
			res.App, res.RiskScore, res.PrimaryPillar)
	default:
		verdict = fmt.Sprintf("%s looks defensible at risk %.0f/100.", res.App, res.RiskScore)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Across %d reviews, %d carried pain signals (%d from likely high-value users). ",
		res.TotalReviews, res.PainReviews, res.WhaleCount)
	fmt.Fprintf(&b, "The dominant pressure sits on the **%s** pillar; complaint volume is %s (slope %.2f, delta %.2f). ",
		res.PrimaryPillar, strings.ToLower(res.Volatility.Momentum), res.Volatility.Slope, res.Volatility.SlopeDelta)
	if res.Revenue.MonthlyUSD > 0 {
		fmt.Fprintf(&b, "Churn-relevant complaints project roughly $%.0f/month of revenue at risk. ", res.Revenue.MonthlyUSD)
	}
	if res.BrokenUpdate != nil {
		fmt.Fprintf(&b, "Version %s owns %.0f%% of pain reviews and reads like a broken update. ",
			res.BrokenUpdate.Version, res.BrokenUpdate.Share*100)
	}
	if spikes := res.AnomalousWeeks(); len(spikes) > 0 {
		fmt.Fprintf(&b, "Anomalous weeks: %s.", spikeNames(res))
	}

	return Narrative{
		Verdict:    verdict,
		Assessment: strings.TrimSpace(b.String()),
		Moves:      fallbackMoves(res),
		Generated:  false,
	}
}

func fallbackMoves(res *engine.Result) []string {
	var moves []string
	for _, cat := range res.TopCategories {
		moves = append(moves, fmt.Sprintf("Out-execute on %s (%d matching reviews)", cat.Name, cat.Count))
		if len(moves) == 3 {
			break
		}
	}
	if engine.ChurnTotal(res.Migrations) > 0 {
		moves = append(moves, "Intercept users already naming competitors in churn language")
	}
	return moves
}

func flattenForPrompt(res *engine.Result) string {
	flat := res.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var lines []string
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, flat[k]))
	}
	return strings.Join(lines, "\n")
}

func topPhrases(res *engine.Result) string {
	if len(res.NGrams) == 0 {
		return "none"
	}
	var parts []string
	for i, c := range res.NGrams {
		if i == 5 {
			break
		}
		parts = append(parts, fmt.Sprintf("%q (%d)", c.Phrase, c.Count))
	}
	return strings.Join(parts, ", ")
}

func spikeNames(res *engine.Result) string {
	var parts []string
	for _, b := range res.AnomalousWeeks() {
		parts = append(parts, fmt.Sprintf("%s (%s)", b.Label, b.SpikeName))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
