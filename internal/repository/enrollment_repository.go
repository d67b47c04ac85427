package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments and their
// payment plans.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ExistsNonCancelled checks for a live enrollment on the exact offering.
func (r *EnrollmentRepository) ExistsNonCancelled(ctx context.Context, studentID, offeringID string, typ models.EnrollmentType) (bool, error) {
	column := "course_offering_id"
	if typ == models.EnrollmentTypePackage {
		column = "package_offering_id"
	}
	query := fmt.Sprintf(`SELECT 1 FROM enrollments WHERE student_id = $1 AND %s = $2 AND enrollment_type = $3 AND status <> $4 LIMIT 1`, column)
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, offeringID, typ, models.EnrollmentStatusCancelled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate enrollment: %w", err)
	}
	return true, nil
}

// PackageCoversCourse checks whether a live package enrollment bundles the
// given course offering through the exact offering mapping.
func (r *EnrollmentRepository) PackageCoversCourse(ctx context.Context, studentID, courseOfferingID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments e
JOIN package_offering_courses poc ON poc.package_offering_id = e.package_offering_id
WHERE e.student_id = $1 AND e.enrollment_type = $2 AND e.status <> $3 AND poc.course_offering_id = $4
LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, models.EnrollmentTypePackage, models.EnrollmentStatusCancelled, courseOfferingID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check package coverage: %w", err)
	}
	return true, nil
}

// PackageCoversCourseFallback applies the cycle/course join used when the
// offering mapping table has no rows for the package.
func (r *EnrollmentRepository) PackageCoversCourseFallback(ctx context.Context, studentID, courseOfferingID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments e
JOIN package_offerings po ON e.package_offering_id = po.id
JOIN packages pk ON po.package_id = pk.id
JOIN package_courses pc ON pc.package_id = pk.id
JOIN course_offerings co ON co.id = $1
WHERE e.student_id = $2 AND e.enrollment_type = $3 AND e.status <> $4
  AND po.cycle_id = co.cycle_id AND pc.course_id = co.course_id
LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseOfferingID, studentID, models.EnrollmentTypePackage, models.EnrollmentStatusCancelled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check package coverage fallback: %w", err)
	}
	return true, nil
}

// CourseConflictsWithPackage checks whether a live individual course
// enrollment maps into the given package offering.
func (r *EnrollmentRepository) CourseConflictsWithPackage(ctx context.Context, studentID, packageOfferingID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments e
JOIN package_offering_courses poc ON poc.course_offering_id = e.course_offering_id
WHERE e.student_id = $1 AND e.enrollment_type = $2 AND e.status <> $3 AND poc.package_offering_id = $4
LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, models.EnrollmentTypeCourse, models.EnrollmentStatusCancelled, packageOfferingID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course conflict: %w", err)
	}
	return true, nil
}

// CourseConflictsWithPackageFallback applies the package/cycle join used
// when the offering mapping is absent.
func (r *EnrollmentRepository) CourseConflictsWithPackageFallback(ctx context.Context, studentID, cycleID, packageID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments e
JOIN course_offerings co ON e.course_offering_id = co.id
JOIN package_courses pc ON pc.course_id = co.course_id
WHERE e.student_id = $1 AND e.enrollment_type = $2 AND e.status <> $3
  AND co.cycle_id = $4 AND pc.package_id = $5
LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, models.EnrollmentTypeCourse, models.EnrollmentStatusCancelled, cycleID, packageID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course conflict fallback: %w", err)
	}
	return true, nil
}

// CreateWithPlan inserts the enrollment together with its payment plan and
// single installment in one transaction, so no enrollment can exist without
// its plan.
func (r *EnrollmentRepository) CreateWithPlan(ctx context.Context, enrollment *models.Enrollment, amount float64, dueDate time.Time) (string, string, error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.RegisteredAt.IsZero() {
		enrollment.RegisteredAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	planID := uuid.NewString()
	installmentID := uuid.NewString()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertEnrollment = `INSERT INTO enrollments (id, student_id, course_offering_id, package_offering_id, enrollment_type, status, registered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insertEnrollment,
		enrollment.ID, enrollment.StudentID, enrollment.CourseOfferingID, enrollment.PackageOfferingID,
		enrollment.EnrollmentType, enrollment.Status, enrollment.RegisteredAt); err != nil {
		return "", "", fmt.Errorf("insert enrollment: %w", err)
	}

	const insertPlan = `INSERT INTO payment_plans (id, enrollment_id, total_amount, installments) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insertPlan, planID, enrollment.ID, amount, 1); err != nil {
		return "", "", fmt.Errorf("insert payment plan: %w", err)
	}

	const insertInstallment = `INSERT INTO installments (id, payment_plan_id, installment_number, amount, due_date, status)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, insertInstallment, installmentID, planID, 1, amount, dueDate, models.InstallmentStatusPending); err != nil {
		return "", "", fmt.Errorf("insert installment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("commit enrollment tx: %w", err)
	}
	return planID, installmentID, nil
}

// CreateExpansion inserts a course-typed enrollment expanded from a package
// purchase. Expansion rows carry the owning package offering and no payment
// plan of their own.
func (r *EnrollmentRepository) CreateExpansion(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.RegisteredAt.IsZero() {
		enrollment.RegisteredAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	const query = `INSERT INTO enrollments (id, student_id, course_offering_id, package_offering_id, enrollment_type, status, registered_at)
VALUES (:id, :student_id, :course_offering_id, :package_offering_id, :enrollment_type, :status, :registered_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("insert expansion enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_offering_id, package_offering_id, enrollment_type, status, accepted_by_admin_id, accepted_at, registered_at
FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByStudent returns the student's enrollments with catalog names,
// resolved prices, cycle dates and payment plan context.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_offering_id, e.package_offering_id, e.enrollment_type, e.status,
  e.accepted_by_admin_id, e.accepted_at, e.registered_at,
  COALESCE(c.name, p.name) AS item_name,
  COALESCE(COALESCE(co.price_override, c.base_price), COALESCE(po.price_override, p.base_price)) AS item_price,
  pp.id AS payment_plan_id, pp.total_amount, pp.installments AS total_installments,
  COALESCE(cyc.name, cyc2.name) AS cycle_name,
  COALESCE(cyc.start_date, cyc2.start_date) AS cycle_start_date,
  COALESCE(cyc.end_date, cyc2.end_date) AS cycle_end_date
FROM enrollments e
LEFT JOIN course_offerings co ON e.course_offering_id = co.id
LEFT JOIN courses c ON co.course_id = c.id
LEFT JOIN cycles cyc ON co.cycle_id = cyc.id
LEFT JOIN package_offerings po ON e.package_offering_id = po.id
LEFT JOIN packages p ON po.package_id = p.id
LEFT JOIN cycles cyc2 ON po.cycle_id = cyc2.id
LEFT JOIN payment_plans pp ON pp.enrollment_id = e.id
WHERE e.student_id = $1
ORDER BY e.registered_at DESC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}

	const installmentsQuery = `SELECT id, payment_plan_id, installment_number, amount, due_date, status, voucher_url, rejection_reason, paid_at
FROM installments WHERE payment_plan_id = $1 ORDER BY installment_number`
	for i := range details {
		if details[i].PaymentPlanID == nil {
			details[i].Installments = []models.Installment{}
			continue
		}
		var installments []models.Installment
		if err := r.db.SelectContext(ctx, &installments, installmentsQuery, *details[i].PaymentPlanID); err != nil {
			return nil, fmt.Errorf("list enrollment installments: %w", err)
		}
		details[i].Installments = installments
	}
	return details, nil
}

// ListAdmin returns all enrollments with student and first installment info.
func (r *EnrollmentRepository) ListAdmin(ctx context.Context) ([]models.EnrollmentAdminRow, error) {
	const query = `SELECT e.id, e.student_id, e.course_offering_id, e.package_offering_id, e.enrollment_type, e.status,
  e.accepted_by_admin_id, e.accepted_at, e.registered_at,
  s.first_name, s.last_name, s.dni,
  COALESCE(c.name, p.name) AS item_name,
  pp.id AS payment_plan_id, i.id AS installment_id, i.amount AS installment_amount, i.status AS installment_status, i.voucher_url
FROM enrollments e
LEFT JOIN students s ON e.student_id = s.id
LEFT JOIN course_offerings co ON e.course_offering_id = co.id
LEFT JOIN courses c ON co.course_id = c.id
LEFT JOIN package_offerings po ON e.package_offering_id = po.id
LEFT JOIN packages p ON po.package_id = p.id
LEFT JOIN payment_plans pp ON pp.enrollment_id = e.id
LEFT JOIN installments i ON i.payment_plan_id = pp.id AND i.installment_number = 1
ORDER BY e.registered_at DESC`
	var rows []models.EnrollmentAdminRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list admin enrollments: %w", err)
	}
	return rows, nil
}

// ListByOffering returns the roster of an offering grouped per student.
func (r *EnrollmentRepository) ListByOffering(ctx context.Context, typ models.EnrollmentType, offeringID string, status models.EnrollmentStatus) ([]models.RosterRow, error) {
	column := "e.course_offering_id"
	if typ == models.EnrollmentTypePackage {
		column = "e.package_offering_id"
	}
	query := fmt.Sprintf(`SELECT MIN(e.id) AS enrollment_id, e.enrollment_type, MIN(e.status) AS status,
  s.id AS student_id, s.first_name, s.last_name, s.dni,
  COALESCE(c.name, p.name) AS item_name
FROM enrollments e
JOIN students s ON s.id = e.student_id
LEFT JOIN course_offerings co ON e.course_offering_id = co.id
LEFT JOIN courses c ON co.course_id = c.id
LEFT JOIN package_offerings po ON e.package_offering_id = po.id
LEFT JOIN packages p ON po.package_id = p.id
WHERE e.enrollment_type = $1 AND e.status = $2 AND %s = $3
GROUP BY e.enrollment_type, s.id, s.first_name, s.last_name, s.dni, COALESCE(c.name, p.name)
ORDER BY s.last_name, s.first_name`, column)
	var rows []models.RosterRow
	if err := r.db.SelectContext(ctx, &rows, query, typ, status, offeringID); err != nil {
		return nil, fmt.Errorf("list offering roster: %w", err)
	}
	return rows, nil
}

// UpdateStatus transitions an enrollment, optionally recording the
// accepting admin and timestamp.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, adminID *string, acceptedAt *time.Time) error {
	const query = `UPDATE enrollments SET status = $2, accepted_by_admin_id = $3, accepted_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, adminID, acceptedAt); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// CascadeAcceptPackageCourses accepts every course-typed enrollment the
// student holds under the given package offering.
func (r *EnrollmentRepository) CascadeAcceptPackageCourses(ctx context.Context, studentID, packageOfferingID string, acceptedAt time.Time) error {
	const query = `UPDATE enrollments SET status = $3, accepted_at = $4
WHERE student_id = $1 AND enrollment_type = $5 AND package_offering_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, packageOfferingID, models.EnrollmentStatusAccepted, acceptedAt, models.EnrollmentTypeCourse); err != nil {
		return fmt.Errorf("cascade accept package courses: %w", err)
	}
	return nil
}

// UnpaidInstallments counts installments under the enrollment's plan that
// are not yet paid. hasPlan is false when the enrollment carries no plan.
func (r *EnrollmentRepository) UnpaidInstallments(ctx context.Context, enrollmentID string) (bool, int, error) {
	const query = `SELECT COUNT(pp.id) AS plans,
  COUNT(i.id) FILTER (WHERE i.status <> $2) AS unpaid
FROM payment_plans pp
LEFT JOIN installments i ON i.payment_plan_id = pp.id
WHERE pp.enrollment_id = $1`
	var row struct {
		Plans  int `db:"plans"`
		Unpaid int `db:"unpaid"`
	}
	if err := r.db.GetContext(ctx, &row, query, enrollmentID, models.InstallmentStatusPaid); err != nil {
		return false, 0, fmt.Errorf("count unpaid installments: %w", err)
	}
	return row.Plans > 0, row.Unpaid, nil
}

// HasPaidOrVoucherInstallments reports whether any installment under the
// enrollment is paid or carries a voucher, which blocks cancellation.
func (r *EnrollmentRepository) HasPaidOrVoucherInstallments(ctx context.Context, enrollmentID string) (bool, error) {
	const query = `SELECT 1 FROM installments i
JOIN payment_plans pp ON i.payment_plan_id = pp.id
WHERE pp.enrollment_id = $1 AND (i.status = $2 OR i.voucher_url IS NOT NULL)
LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, enrollmentID, models.InstallmentStatusPaid); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check paid installments: %w", err)
	}
	return true, nil
}
