package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// PaymentRepository handles installments and payment plans.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindInstallment returns an installment with its owning enrollment and
// student context.
func (r *PaymentRepository) FindInstallment(ctx context.Context, id string) (*models.InstallmentDetail, error) {
	const query = `SELECT i.id, i.payment_plan_id, i.installment_number, i.amount, i.due_date, i.status,
  i.voucher_url, i.rejection_reason, i.paid_at,
  pp.enrollment_id, e.student_id
FROM installments i
JOIN payment_plans pp ON i.payment_plan_id = pp.id
JOIN enrollments e ON pp.enrollment_id = e.id
WHERE i.id = $1`
	var detail models.InstallmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// AttachVoucher stores the voucher URL, resets the installment to pending
// and clears any previous rejection.
func (r *PaymentRepository) AttachVoucher(ctx context.Context, id, voucherURL string) error {
	const query = `UPDATE installments SET voucher_url = $2, status = $3, rejection_reason = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, voucherURL, models.InstallmentStatusPending); err != nil {
		return fmt.Errorf("attach voucher: %w", err)
	}
	return nil
}

// MarkPaid transitions an installment to paid.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	const query = `UPDATE installments SET status = $2, paid_at = $3, rejection_reason = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.InstallmentStatusPaid, paidAt); err != nil {
		return fmt.Errorf("mark installment paid: %w", err)
	}
	return nil
}

// Reject resets an installment after a voucher rejection. Past-due
// installments go back to overdue, the rest to pending. The voucher is
// cleared so the student can upload a new one.
func (r *PaymentRepository) Reject(ctx context.Context, id string, status models.InstallmentStatus, reason *string) error {
	const query = `UPDATE installments SET status = $2, rejection_reason = $3, voucher_url = NULL, paid_at = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reason); err != nil {
		return fmt.Errorf("reject installment: %w", err)
	}
	return nil
}

// CountUnpaid returns how many installments of a plan are not yet paid.
func (r *PaymentRepository) CountUnpaid(ctx context.Context, planID string) (int, error) {
	const query = `SELECT COUNT(*) FROM installments WHERE payment_plan_id = $1 AND status <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, planID, models.InstallmentStatusPaid); err != nil {
		return 0, fmt.Errorf("count unpaid installments: %w", err)
	}
	return count, nil
}

// SweepOverdue flips pending installments whose due date has passed to
// overdue. Paid rows are never touched.
func (r *PaymentRepository) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE installments SET status = $1
WHERE status = $2 AND due_date < $3`
	result, err := r.db.ExecContext(ctx, query, models.InstallmentStatusOverdue, models.InstallmentStatusPending, now)
	if err != nil {
		return 0, fmt.Errorf("sweep overdue installments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep overdue installments: %w", err)
	}
	return affected, nil
}

// ListAdmin returns all installments with student and item context,
// optionally filtered by stored status.
func (r *PaymentRepository) ListAdmin(ctx context.Context, status string) ([]models.InstallmentAdminRow, error) {
	query := `SELECT i.id, i.payment_plan_id, i.installment_number, i.amount, i.due_date, i.status,
  i.voucher_url, i.rejection_reason, i.paid_at,
  pp.enrollment_id, e.student_id, e.enrollment_type, e.status AS enrollment_status,
  s.first_name, s.last_name, s.dni,
  COALESCE(c.name, p.name) AS item_name
FROM installments i
JOIN payment_plans pp ON i.payment_plan_id = pp.id
JOIN enrollments e ON pp.enrollment_id = e.id
JOIN students s ON e.student_id = s.id
LEFT JOIN course_offerings co ON e.course_offering_id = co.id
LEFT JOIN courses c ON co.course_id = c.id
LEFT JOIN package_offerings po ON e.package_offering_id = po.id
LEFT JOIN packages p ON po.package_id = p.id`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE i.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY i.due_date, s.last_name`
	var rows []models.InstallmentAdminRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list admin installments: %w", err)
	}
	return rows, nil
}

// CycleDates returns the start and end dates of the cycle behind an
// enrollment, whichever offering type it points at.
func (r *PaymentRepository) CycleDates(ctx context.Context, enrollmentID string) (*models.CycleDates, error) {
	const query = `SELECT COALESCE(cyc.start_date, cyc2.start_date) AS start_date,
  COALESCE(cyc.end_date, cyc2.end_date) AS end_date
FROM enrollments e
LEFT JOIN course_offerings co ON e.course_offering_id = co.id
LEFT JOIN cycles cyc ON co.cycle_id = cyc.id
LEFT JOIN package_offerings po ON e.package_offering_id = po.id
LEFT JOIN cycles cyc2 ON po.cycle_id = cyc2.id
WHERE e.id = $1`
	var dates models.CycleDates
	if err := r.db.GetContext(ctx, &dates, query, enrollmentID); err != nil {
		return nil, err
	}
	return &dates, nil
}
