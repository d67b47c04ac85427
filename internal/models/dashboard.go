package models

// DashboardSummary aggregates the admin landing-page counters.
type DashboardSummary struct {
	Students          int                        `json:"students"`
	Teachers          int                        `json:"teachers"`
	Courses           int                        `json:"courses"`
	ActiveCycles      int                        `json:"active_cycles"`
	EnrollmentsByStat map[EnrollmentStatus]int   `json:"enrollments_by_status"`
	InstallmentsByStat map[InstallmentStatus]int `json:"installments_by_status"`
	CollectedRevenue  float64                    `json:"collected_revenue"`
	PendingRevenue    float64                    `json:"pending_revenue"`
}

// StatusCount is a generic status/count aggregation row.
type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}
