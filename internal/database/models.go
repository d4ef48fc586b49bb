package database

// Run represents one batch analysis run.
type Run struct {
	ID         int64
	StartedAt  string
	FinishedAt *string
	AppsTotal  int
	AppsFailed int
}

// Analysis is the persisted scalar summary of one app's analysis.
type Analysis struct {
	ID             int64
	RunID          int64
	App            string
	Niche          string
	TotalReviews   int
	PainReviews    int
	WhaleCount     int
	RiskScore      float64
	PrimaryPillar  string
	Slope          float64
	SlopeDelta     float64
	Momentum       string
	MonthlyLeakage float64
	SafeHarbor     bool
	ReportPath     *string
	CreatedAt      *string
}
