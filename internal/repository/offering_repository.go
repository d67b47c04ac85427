package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// OfferingRepository handles course and package offerings per cycle,
// including the package-to-course offering mapping.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// CreateCourseOffering inserts a course offering.
func (r *OfferingRepository) CreateCourseOffering(ctx context.Context, offering *models.CourseOffering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	const query = `INSERT INTO course_offerings (id, course_id, cycle_id, teacher_id, group_label, capacity, price_override)
VALUES (:id, :course_id, :cycle_id, :teacher_id, :group_label, :capacity, :price_override)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("insert course offering: %w", err)
	}
	return nil
}

// ListCourseOfferings returns course offerings with catalog context,
// optionally filtered by cycle.
func (r *OfferingRepository) ListCourseOfferings(ctx context.Context, cycleID string) ([]models.CourseOfferingDetail, error) {
	query := `SELECT co.id, co.course_id, co.cycle_id, co.teacher_id, co.group_label, co.capacity, co.price_override,
  c.name AS course_name, c.base_price, cyc.name AS cycle_name
FROM course_offerings co
JOIN courses c ON co.course_id = c.id
JOIN cycles cyc ON co.cycle_id = cyc.id`
	args := []interface{}{}
	if cycleID != "" {
		query += ` WHERE co.cycle_id = $1`
		args = append(args, cycleID)
	}
	query += ` ORDER BY c.name`
	var offerings []models.CourseOfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, fmt.Errorf("list course offerings: %w", err)
	}
	return offerings, nil
}

// FindCourseOffering returns a single course offering with context.
func (r *OfferingRepository) FindCourseOffering(ctx context.Context, id string) (*models.CourseOfferingDetail, error) {
	const query = `SELECT co.id, co.course_id, co.cycle_id, co.teacher_id, co.group_label, co.capacity, co.price_override,
  c.name AS course_name, c.base_price, cyc.name AS cycle_name
FROM course_offerings co
JOIN courses c ON co.course_id = c.id
JOIN cycles cyc ON co.cycle_id = cyc.id
WHERE co.id = $1`
	var offering models.CourseOfferingDetail
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}

// UpdateCourseOffering updates the mutable fields of a course offering.
func (r *OfferingRepository) UpdateCourseOffering(ctx context.Context, offering *models.CourseOffering) error {
	const query = `UPDATE course_offerings SET teacher_id = :teacher_id, group_label = :group_label, capacity = :capacity, price_override = :price_override WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, offering)
	if err != nil {
		return fmt.Errorf("update course offering: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course offering: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCourseOffering removes a course offering.
func (r *OfferingRepository) DeleteCourseOffering(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM course_offerings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course offering: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course offering: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreatePackageOffering inserts a package offering.
func (r *OfferingRepository) CreatePackageOffering(ctx context.Context, offering *models.PackageOffering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	const query = `INSERT INTO package_offerings (id, package_id, cycle_id, price_override)
VALUES (:id, :package_id, :cycle_id, :price_override)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("insert package offering: %w", err)
	}
	return nil
}

// ListPackageOfferings returns package offerings with catalog context,
// optionally filtered by cycle.
func (r *OfferingRepository) ListPackageOfferings(ctx context.Context, cycleID string) ([]models.PackageOfferingDetail, error) {
	query := `SELECT po.id, po.package_id, po.cycle_id, po.price_override,
  p.name AS package_name, p.base_price, cyc.name AS cycle_name
FROM package_offerings po
JOIN packages p ON po.package_id = p.id
JOIN cycles cyc ON po.cycle_id = cyc.id`
	args := []interface{}{}
	if cycleID != "" {
		query += ` WHERE po.cycle_id = $1`
		args = append(args, cycleID)
	}
	query += ` ORDER BY p.name`
	var offerings []models.PackageOfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, fmt.Errorf("list package offerings: %w", err)
	}
	return offerings, nil
}

// FindPackageOffering returns a single package offering with context.
func (r *OfferingRepository) FindPackageOffering(ctx context.Context, id string) (*models.PackageOfferingDetail, error) {
	const query = `SELECT po.id, po.package_id, po.cycle_id, po.price_override,
  p.name AS package_name, p.base_price, cyc.name AS cycle_name
FROM package_offerings po
JOIN packages p ON po.package_id = p.id
JOIN cycles cyc ON po.cycle_id = cyc.id
WHERE po.id = $1`
	var offering models.PackageOfferingDetail
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}

// UpdatePackageOffering updates the mutable fields of a package offering.
func (r *OfferingRepository) UpdatePackageOffering(ctx context.Context, offering *models.PackageOffering) error {
	const query = `UPDATE package_offerings SET price_override = :price_override WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, offering)
	if err != nil {
		return fmt.Errorf("update package offering: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update package offering: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeletePackageOffering removes a package offering.
func (r *OfferingRepository) DeletePackageOffering(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM package_offerings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete package offering: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete package offering: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddPackageOfferingCourse maps a course offering into a package offering.
// Returns false when the mapping already existed.
func (r *OfferingRepository) AddPackageOfferingCourse(ctx context.Context, packageOfferingID, courseOfferingID string) (bool, error) {
	const query = `INSERT INTO package_offering_courses (package_offering_id, course_offering_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, packageOfferingID, courseOfferingID)
	if err != nil {
		return false, fmt.Errorf("map package offering course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("map package offering course: %w", err)
	}
	return affected > 0, nil
}

// RemovePackageOfferingCourse removes a mapping.
func (r *OfferingRepository) RemovePackageOfferingCourse(ctx context.Context, packageOfferingID, courseOfferingID string) error {
	const query = `DELETE FROM package_offering_courses WHERE package_offering_id = $1 AND course_offering_id = $2`
	if _, err := r.db.ExecContext(ctx, query, packageOfferingID, courseOfferingID); err != nil {
		return fmt.Errorf("unmap package offering course: %w", err)
	}
	return nil
}

// BundledCourseOfferings returns the course offering IDs mapped into a
// package offering.
func (r *OfferingRepository) BundledCourseOfferings(ctx context.Context, packageOfferingID string) ([]string, error) {
	const query = `SELECT course_offering_id FROM package_offering_courses WHERE package_offering_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, packageOfferingID); err != nil {
		return nil, fmt.Errorf("list bundled course offerings: %w", err)
	}
	return ids, nil
}

// FallbackCourseOfferings derives bundled course offerings from the
// catalog definition of the package, taking one offering per course in
// the package offering's cycle. Used when the exact mapping is empty.
func (r *OfferingRepository) FallbackCourseOfferings(ctx context.Context, packageOfferingID string) ([]string, error) {
	const query = `SELECT DISTINCT ON (co.course_id) co.id
FROM package_offerings po
JOIN package_courses pc ON pc.package_id = po.package_id
JOIN course_offerings co ON co.course_id = pc.course_id AND co.cycle_id = po.cycle_id
WHERE po.id = $1
ORDER BY co.course_id, co.id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, packageOfferingID); err != nil {
		return nil, fmt.Errorf("fallback bundled course offerings: %w", err)
	}
	return ids, nil
}

// CourseOfferingContext returns the course and cycle behind an offering.
func (r *OfferingRepository) CourseOfferingContext(ctx context.Context, id string) (*models.OfferingContext, error) {
	const query = `SELECT course_id AS item_id, cycle_id FROM course_offerings WHERE id = $1`
	var oc models.OfferingContext
	if err := r.db.GetContext(ctx, &oc, query, id); err != nil {
		return nil, err
	}
	return &oc, nil
}

// PackageOfferingContext returns the package and cycle behind an offering.
func (r *OfferingRepository) PackageOfferingContext(ctx context.Context, id string) (*models.OfferingContext, error) {
	const query = `SELECT package_id AS item_id, cycle_id FROM package_offerings WHERE id = $1`
	var oc models.OfferingContext
	if err := r.db.GetContext(ctx, &oc, query, id); err != nil {
		return nil, err
	}
	return &oc, nil
}

// CourseOfferingPrice resolves the effective price of a course offering.
func (r *OfferingRepository) CourseOfferingPrice(ctx context.Context, id string) (float64, error) {
	const query = `SELECT COALESCE(co.price_override, c.base_price)
FROM course_offerings co JOIN courses c ON co.course_id = c.id
WHERE co.id = $1`
	var price float64
	if err := r.db.GetContext(ctx, &price, query, id); err != nil {
		return 0, err
	}
	return price, nil
}

// PackageOfferingPrice resolves the effective price of a package offering.
func (r *OfferingRepository) PackageOfferingPrice(ctx context.Context, id string) (float64, error) {
	const query = `SELECT COALESCE(po.price_override, p.base_price)
FROM package_offerings po JOIN packages p ON po.package_id = p.id
WHERE po.id = $1`
	var price float64
	if err := r.db.GetContext(ctx, &price, query, id); err != nil {
		return 0, err
	}
	return price, nil
}
