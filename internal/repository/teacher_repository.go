package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// TeacherRepository handles teacher persistence.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// Create inserts a teacher.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	const query = `INSERT INTO teachers (id, first_name, last_name, dni, phone, email, specialization)
VALUES (:id, :first_name, :last_name, :dni, :phone, :email, :specialization)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("insert teacher: %w", err)
	}
	return nil
}

// List returns all teachers ordered by name.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, first_name, last_name, dni, phone, email, specialization FROM teachers ORDER BY last_name, first_name`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByID returns a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, first_name, last_name, dni, phone, email, specialization FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Update replaces the mutable fields of a teacher.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	const query = `UPDATE teachers SET first_name = :first_name, last_name = :last_name, dni = :dni,
  phone = :phone, email = :email, specialization = :specialization WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a teacher.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Schedules returns the schedule slots assigned to a teacher.
// Students returns the distinct students holding a non-cancelled
// enrollment in any of the teacher's course offerings.
func (r *TeacherRepository) Students(ctx context.Context, teacherID string) ([]models.Student, error) {
	const query = `SELECT DISTINCT st.id, st.first_name, st.last_name, st.dni, st.phone, st.email,
  st.parent_name, st.parent_phone, st.created_at
FROM students st
JOIN enrollments e ON e.student_id = st.id
JOIN course_offerings co ON e.course_offering_id = co.id
WHERE co.teacher_id = $1 AND e.status <> $2
ORDER BY st.last_name, st.first_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, teacherID, models.EnrollmentStatusCancelled); err != nil {
		return nil, fmt.Errorf("list teacher students: %w", err)
	}
	return students, nil
}

func (r *TeacherRepository) Schedules(ctx context.Context, teacherID string) ([]models.ScheduleDetail, error) {
	const query = `SELECT s.id, s.course_offering_id, s.day_of_week, s.start_time, s.end_time, s.classroom,
  co.course_id, c.name AS course_name, cyc.name AS cycle_name, co.group_label,
  t.first_name AS teacher_first_name, t.last_name AS teacher_last_name
FROM schedules s
JOIN course_offerings co ON s.course_offering_id = co.id
JOIN courses c ON co.course_id = c.id
JOIN cycles cyc ON co.cycle_id = cyc.id
LEFT JOIN teachers t ON co.teacher_id = t.id
WHERE co.teacher_id = $1
ORDER BY s.day_of_week, s.start_time`
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher schedules: %w", err)
	}
	return schedules, nil
}
