package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// PackageRepository handles catalog packages and their course membership.
type PackageRepository struct {
	db *sqlx.DB
}

// NewPackageRepository constructs the repository.
func NewPackageRepository(db *sqlx.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// Create inserts a package together with its course membership.
func (r *PackageRepository) Create(ctx context.Context, pkg *models.Package, courseIDs []string) error {
	if pkg.ID == "" {
		pkg.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin package tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertPkg = `INSERT INTO packages (id, name, description, base_price) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insertPkg, pkg.ID, pkg.Name, pkg.Description, pkg.BasePrice); err != nil {
		return fmt.Errorf("insert package: %w", err)
	}
	const insertCourse = `INSERT INTO package_courses (package_id, course_id) VALUES ($1, $2)`
	for _, courseID := range courseIDs {
		if _, err := tx.ExecContext(ctx, insertCourse, pkg.ID, courseID); err != nil {
			return fmt.Errorf("insert package course: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit package tx: %w", err)
	}
	return nil
}

// List returns all packages with their aggregated course names.
func (r *PackageRepository) List(ctx context.Context) ([]models.PackageDetail, error) {
	const query = `SELECT p.id, p.name, p.description, p.base_price,
  STRING_AGG(c.name, ', ' ORDER BY c.name) AS courses
FROM packages p
LEFT JOIN package_courses pc ON pc.package_id = p.id
LEFT JOIN courses c ON pc.course_id = c.id
GROUP BY p.id, p.name, p.description, p.base_price
ORDER BY p.name`
	var packages []models.PackageDetail
	if err := r.db.SelectContext(ctx, &packages, query); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return packages, nil
}

// FindByID returns a package with aggregated course names.
func (r *PackageRepository) FindByID(ctx context.Context, id string) (*models.PackageDetail, error) {
	const query = `SELECT p.id, p.name, p.description, p.base_price,
  STRING_AGG(c.name, ', ' ORDER BY c.name) AS courses
FROM packages p
LEFT JOIN package_courses pc ON pc.package_id = p.id
LEFT JOIN courses c ON pc.course_id = c.id
WHERE p.id = $1
GROUP BY p.id, p.name, p.description, p.base_price`
	var pkg models.PackageDetail
	if err := r.db.GetContext(ctx, &pkg, query, id); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// CourseIDs returns the course IDs bundled in a package.
func (r *PackageRepository) CourseIDs(ctx context.Context, packageID string) ([]string, error) {
	const query = `SELECT course_id FROM package_courses WHERE package_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, packageID); err != nil {
		return nil, fmt.Errorf("list package courses: %w", err)
	}
	return ids, nil
}

// AddCourse links a course to the package. Returns false when the link
// already exists.
func (r *PackageRepository) AddCourse(ctx context.Context, packageID, courseID string) (bool, error) {
	const query = `INSERT INTO package_courses (package_id, course_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, packageID, courseID)
	if err != nil {
		return false, fmt.Errorf("add package course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add package course: %w", err)
	}
	return affected > 0, nil
}

// RemoveCourse unlinks a course from the package.
func (r *PackageRepository) RemoveCourse(ctx context.Context, packageID, courseID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM package_courses WHERE package_id = $1 AND course_id = $2`, packageID, courseID)
	if err != nil {
		return fmt.Errorf("remove package course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove package course: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Update replaces the package fields and, when courseIDs is non-nil, its
// course membership.
func (r *PackageRepository) Update(ctx context.Context, pkg *models.Package, courseIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin package tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const updatePkg = `UPDATE packages SET name = $2, description = $3, base_price = $4 WHERE id = $1`
	result, err := tx.ExecContext(ctx, updatePkg, pkg.ID, pkg.Name, pkg.Description, pkg.BasePrice)
	if err != nil {
		return fmt.Errorf("update package: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update package: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if courseIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM package_courses WHERE package_id = $1`, pkg.ID); err != nil {
			return fmt.Errorf("clear package courses: %w", err)
		}
		const insertCourse = `INSERT INTO package_courses (package_id, course_id) VALUES ($1, $2)`
		for _, courseID := range courseIDs {
			if _, err := tx.ExecContext(ctx, insertCourse, pkg.ID, courseID); err != nil {
				return fmt.Errorf("insert package course: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit package tx: %w", err)
	}
	return nil
}

// Delete removes a package and its course membership.
func (r *PackageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete package: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete package: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
