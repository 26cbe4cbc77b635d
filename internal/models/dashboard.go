package models

import "time"

// DistributionCount is one labeled bucket in a type or status distribution.
type DistributionCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MonthlyPoint is one point in a monthly time series.
type MonthlyPoint struct {
	Month string  `json:"month"` // "2026-07"
	Value float64 `json:"value"`
}

// DashboardSnapshot is a precomputed aggregate for a (scope, user) pair,
// served read-through and recomputed on a cache miss or after expiry. No
// scheduled job refreshes it.
type DashboardSnapshot struct {
	ID    string `json:"id" badgerhold:"key"` // Scope + ":" + User
	Scope string `json:"scope" badgerhold:"index"`
	User  string `json:"user" badgerhold:"index"`

	TotalAnalyses int `json:"total_analyses"`
	ValidLeads    int `json:"valid_leads"`

	TypeDistribution   []DistributionCount `json:"type_distribution"`
	StatusDistribution []DistributionCount `json:"status_distribution"`
	MonthlySeries      []MonthlyPoint      `json:"monthly_series"`

	RecordCount       int           `json:"record_count"`
	CalculationTime   time.Duration `json:"calculation_time"`
	ComputedAt        time.Time     `json:"computed_at"`
	ExpiresAt         time.Time     `json:"expires_at"`
}

// NewDashboardSnapshotID builds the composite key a DashboardSnapshot is
// stored and looked up under.
func NewDashboardSnapshotID(scope, user string) string {
	return scope + ":" + user
}

// Fresh reports whether the snapshot is still valid to serve without a
// recompute.
func (d *DashboardSnapshot) Fresh(now time.Time) bool {
	return now.Before(d.ExpiresAt)
}
