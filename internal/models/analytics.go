package models

import "time"

// AdminMetrics represents user and application counts for the admin dashboard
type AdminMetrics struct {
	Customers int64                `json:"customers"`
	Analysts  int64                `json:"analysts"`
	Admins    int64                `json:"admins"`
	Loans     int64                `json:"loans"`
	ByStatus  map[LoanStatus]int64 `json:"byStatus"`
}

// PortfolioSummary is the body of the daily summary report
type PortfolioSummary struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Metrics     AdminMetrics `json:"metrics"`
	KeyRate     float64      `json:"key_rate"` // Zero when the central bank was unreachable
}
