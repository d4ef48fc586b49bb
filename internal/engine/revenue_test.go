package engine

import (
	"testing"

	"reviewpulse/internal/review"
)

func churnMatches(t *testing.T) []Match {
	t.Helper()
	m := NewMatcher(testTaxonomy(t))
	return m.MatchAll([]review.Review{
		// whale, dominant pillar Economic (scam weight 3.0)
		{ID: "1", Body: "charged twice for my credits quota, total scam, cancelling the api integration", Rating: 1},
		// normal, dominant Functional
		{ID: "2", Body: "crash on open", Rating: 1},
		// Experience only: not churn-relevant
		{ID: "3", Body: "confusing layout", Rating: 2},
		// no match at all
		{ID: "4", Body: "fine", Rating: 4},
	})
}

func TestEstimateWeightsAndPillars(t *testing.T) {
	e := NewRevenueEstimator(nil)
	est := e.Estimate(churnMatches(t), "consumer", 4.99)
	if est.ChurnReviewCount != 4.0 {
		t.Errorf("churn count = %v, want 4.0 (whale 3.0 + normal 1.0)", est.ChurnReviewCount)
	}
	want := 4.0 * 100 * 4.99
	if est.MonthlyUSD != want {
		t.Errorf("monthly = %v, want %v", est.MonthlyUSD, want)
	}
}

func TestEstimateScalesLinearly(t *testing.T) {
	matches := churnMatches(t)
	base := NewRevenueEstimator(nil).Estimate(matches, "consumer", 5)
	doubledPrice := NewRevenueEstimator(nil).Estimate(matches, "consumer", 10)
	if doubledPrice.MonthlyUSD != 2*base.MonthlyUSD {
		t.Errorf("doubling price: %v vs %v", doubledPrice.MonthlyUSD, base.MonthlyUSD)
	}
	doubledMult := NewRevenueEstimator(map[string]float64{"consumer": 200}).Estimate(matches, "consumer", 5)
	if doubledMult.MonthlyUSD != 2*base.MonthlyUSD {
		t.Errorf("doubling multiplier: %v vs %v", doubledMult.MonthlyUSD, base.MonthlyUSD)
	}
}

func TestEstimateZeroChurn(t *testing.T) {
	e := NewRevenueEstimator(nil)
	est := e.Estimate(nil, "consumer", 5)
	if est.MonthlyUSD != 0 || est.ChurnReviewCount != 0 {
		t.Errorf("estimate = %+v, want zeros", est)
	}
}

func TestEstimateNicheFallbacks(t *testing.T) {
	e := NewRevenueEstimator(nil)
	unknown := e.Estimate(churnMatches(t), "flight simulators", 5)
	consumer := e.Estimate(churnMatches(t), "consumer", 5)
	if unknown.MonthlyUSD != consumer.MonthlyUSD {
		t.Errorf("unknown niche %v, want consumer fallback %v", unknown.MonthlyUSD, consumer.MonthlyUSD)
	}
	if unknown.Multiplier != 100 {
		t.Errorf("multiplier = %v, want 100", unknown.Multiplier)
	}
}

func TestEstimatePriceFallback(t *testing.T) {
	e := NewRevenueEstimator(nil)
	est := e.Estimate(churnMatches(t), "consumer", 0)
	if est.AvgPrice != defaultAvgPrice {
		t.Errorf("avg price = %v, want default", est.AvgPrice)
	}
	if est.MonthlyUSD <= 0 {
		t.Errorf("monthly = %v, want positive with churn present", est.MonthlyUSD)
	}
}

func TestEstimateGamesNiche(t *testing.T) {
	e := NewRevenueEstimator(nil)
	if est := e.Estimate(churnMatches(t), "games", 1); est.Multiplier != 200 {
		t.Errorf("games multiplier = %v, want 200", est.Multiplier)
	}
}
