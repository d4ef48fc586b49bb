package engine

import (
	"testing"

	"reviewpulse/internal/taxonomy"
)

func densities(f, ec, ex float64) map[taxonomy.Pillar]float64 {
	return map[taxonomy.Pillar]float64{
		taxonomy.Functional: f,
		taxonomy.Economic:   ec,
		taxonomy.Experience: ex,
	}
}

func TestScoreBounded(t *testing.T) {
	p := DefaultRiskPolicy()
	cases := []struct {
		f, ec, ex, slope float64
	}{
		{0, 0, 0, 0},
		{5, 5, 5, 3},
		{0.01, 0.01, 0.01, -10},
		{1, 1, 1, 0.5},
	}
	for _, c := range cases {
		got := p.Score(densities(c.f, c.ec, c.ex), c.slope)
		if got < 0 || got > 100 {
			t.Errorf("Score(%v,%v,%v slope %v) = %v, out of [0,100]", c.f, c.ec, c.ex, c.slope, got)
		}
	}
}

func TestScoreEconomicFloor(t *testing.T) {
	p := DefaultRiskPolicy()
	// Tiny base, strongly negative slope: floor must still hold.
	for _, slope := range []float64{-5, -1, 0, 0.5} {
		got := p.Score(densities(0, 0.11, 0), slope)
		if got < 60 {
			t.Errorf("economic floor violated at slope %v: score %v < 60", slope, got)
		}
	}
}

func TestScoreFunctionalFloor(t *testing.T) {
	p := DefaultRiskPolicy()
	got := p.Score(densities(0.16, 0, 0), -5)
	if got < 50 {
		t.Errorf("functional floor violated: %v < 50", got)
	}
}

func TestScoreEconomicFloorWinsOverFunctional(t *testing.T) {
	p := DefaultRiskPolicy()
	got := p.Score(densities(0.20, 0.11, 0), -5)
	if got < 60 {
		t.Errorf("score = %v, want economic floor 60", got)
	}
}

func TestScoreFloorNeverLowers(t *testing.T) {
	p := DefaultRiskPolicy()
	// base 0.2*250=50, slope 1 doubles it to 100: floor 60 must not
	// drag it back down.
	got := p.Score(densities(0, 0.2, 0), 1.0)
	if got != 100 {
		t.Errorf("score = %v, want 100", got)
	}
}

func TestScoreSlopeMultiplierClamps(t *testing.T) {
	p := DefaultRiskPolicy()
	// experience only: no floor involvement. base = 0.1*150 = 15.
	if got := p.Score(densities(0, 0, 0.1), 5.0); got != 30 {
		t.Errorf("upward clamp: %v, want 30", got)
	}
	if got := p.Score(densities(0, 0, 0.1), -100); got != 7.5 {
		t.Errorf("downward clamp: %v, want 7.5", got)
	}
}

func TestPrimaryPillarTieOrder(t *testing.T) {
	if got := PrimaryPillar(densities(0.5, 0.5, 0.5)); got != taxonomy.Functional {
		t.Errorf("tie = %q, want Functional", got)
	}
	if got := PrimaryPillar(densities(0.1, 0.5, 0.2)); got != taxonomy.Economic {
		t.Errorf("got %q, want Economic", got)
	}
}
