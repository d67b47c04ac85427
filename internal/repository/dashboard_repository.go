package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// DashboardRepository aggregates the admin landing-page counters.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Summary runs the aggregation queries for the dashboard.
func (r *DashboardRepository) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	summary := &models.DashboardSummary{
		EnrollmentsByStat:  make(map[models.EnrollmentStatus]int),
		InstallmentsByStat: make(map[models.InstallmentStatus]int),
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM students`, &summary.Students},
		{`SELECT COUNT(*) FROM teachers`, &summary.Teachers},
		{`SELECT COUNT(*) FROM courses`, &summary.Courses},
		{`SELECT COUNT(*) FROM cycles WHERE status <> 'closed'`, &summary.ActiveCycles},
	}
	for _, c := range counts {
		if err := r.db.GetContext(ctx, c.dest, c.query); err != nil {
			return nil, fmt.Errorf("dashboard count: %w", err)
		}
	}

	var enrollmentCounts []models.StatusCount
	if err := r.db.SelectContext(ctx, &enrollmentCounts,
		`SELECT status, COUNT(*) AS count FROM enrollments GROUP BY status`); err != nil {
		return nil, fmt.Errorf("dashboard enrollment counts: %w", err)
	}
	for _, c := range enrollmentCounts {
		summary.EnrollmentsByStat[models.EnrollmentStatus(c.Status)] = c.Count
	}

	var installmentCounts []models.StatusCount
	if err := r.db.SelectContext(ctx, &installmentCounts,
		`SELECT status, COUNT(*) AS count FROM installments GROUP BY status`); err != nil {
		return nil, fmt.Errorf("dashboard installment counts: %w", err)
	}
	for _, c := range installmentCounts {
		summary.InstallmentsByStat[models.InstallmentStatus(c.Status)] = c.Count
	}

	if err := r.db.GetContext(ctx, &summary.CollectedRevenue,
		`SELECT COALESCE(SUM(amount), 0) FROM installments WHERE status = $1`, models.InstallmentStatusPaid); err != nil {
		return nil, fmt.Errorf("dashboard collected revenue: %w", err)
	}
	if err := r.db.GetContext(ctx, &summary.PendingRevenue,
		`SELECT COALESCE(SUM(amount), 0) FROM installments WHERE status <> $1`, models.InstallmentStatusPaid); err != nil {
		return nil, fmt.Errorf("dashboard pending revenue: %w", err)
	}
	return summary, nil
}
