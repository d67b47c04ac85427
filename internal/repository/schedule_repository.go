package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// ScheduleRepository handles weekly schedule slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a schedule slot.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	const query = `INSERT INTO schedules (id, course_offering_id, day_of_week, start_time, end_time, classroom)
VALUES (:id, :course_offering_id, :day_of_week, :start_time, :end_time, :classroom)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// ListByOffering returns the slots of a course offering.
func (r *ScheduleRepository) ListByOffering(ctx context.Context, courseOfferingID string) ([]models.Schedule, error) {
	const query = `SELECT id, course_offering_id, day_of_week, start_time, end_time, classroom
FROM schedules WHERE course_offering_id = $1 ORDER BY day_of_week, start_time`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, courseOfferingID); err != nil {
		return nil, fmt.Errorf("list offering schedules: %w", err)
	}
	return schedules, nil
}

// ListByPackageOffering returns the slots of every course offering bundled
// in a package offering. The explicit mapping wins; when it is empty the
// cycle and course membership fallback join applies.
func (r *ScheduleRepository) ListByPackageOffering(ctx context.Context, packageOfferingID string) ([]models.Schedule, error) {
	const exact = `SELECT s.id, s.course_offering_id, s.day_of_week, s.start_time, s.end_time, s.classroom
FROM schedules s
JOIN package_offering_courses poc ON s.course_offering_id = poc.course_offering_id
WHERE poc.package_offering_id = $1
ORDER BY s.day_of_week, s.start_time`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, exact, packageOfferingID); err != nil {
		return nil, fmt.Errorf("list package offering schedules: %w", err)
	}
	if len(schedules) > 0 {
		return schedules, nil
	}

	const fallback = `SELECT s.id, s.course_offering_id, s.day_of_week, s.start_time, s.end_time, s.classroom
FROM package_offerings po
JOIN package_courses pc ON pc.package_id = po.package_id
JOIN course_offerings co ON co.course_id = pc.course_id AND co.cycle_id = po.cycle_id
JOIN schedules s ON s.course_offering_id = co.id
WHERE po.id = $1
ORDER BY s.day_of_week, s.start_time`
	if err := r.db.SelectContext(ctx, &schedules, fallback, packageOfferingID); err != nil {
		return nil, fmt.Errorf("list package offering schedules fallback: %w", err)
	}
	return schedules, nil
}

// FindByID returns a slot with course/cycle/teacher context.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	const query = `SELECT s.id, s.course_offering_id, s.day_of_week, s.start_time, s.end_time, s.classroom,
  co.course_id, c.name AS course_name, cyc.name AS cycle_name, co.group_label,
  t.first_name AS teacher_first_name, t.last_name AS teacher_last_name
FROM schedules s
JOIN course_offerings co ON s.course_offering_id = co.id
JOIN courses c ON co.course_id = c.id
JOIN cycles cyc ON co.cycle_id = cyc.id
LEFT JOIN teachers t ON co.teacher_id = t.id
WHERE s.id = $1`
	var schedule models.ScheduleDetail
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Update replaces the mutable fields of a slot.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	const query = `UPDATE schedules SET day_of_week = :day_of_week, start_time = :start_time,
  end_time = :end_time, classroom = :classroom WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, schedule)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a slot.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
