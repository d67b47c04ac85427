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

// AttendanceRepository handles per-day attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// TeacherOwnsSchedule reports whether the schedule's offering is assigned
// to the given teacher.
func (r *AttendanceRepository) TeacherOwnsSchedule(ctx context.Context, scheduleID, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM schedules s
JOIN course_offerings co ON s.course_offering_id = co.id
WHERE s.id = $1 AND co.teacher_id = $2
LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, scheduleID, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check schedule ownership: %w", err)
	}
	return true, nil
}

// FindForDay returns the mark for a student on a schedule for one date.
func (r *AttendanceRepository) FindForDay(ctx context.Context, scheduleID, studentID string, day time.Time) (*models.Attendance, error) {
	const query = `SELECT id, schedule_id, student_id, date, status
FROM attendance WHERE schedule_id = $1 AND student_id = $2 AND date = $3`
	var attendance models.Attendance
	if err := r.db.GetContext(ctx, &attendance, query, scheduleID, studentID, day); err != nil {
		return nil, err
	}
	return &attendance, nil
}

// Create inserts a mark.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendance (id, schedule_id, student_id, date, status)
VALUES (:id, :schedule_id, :student_id, :date, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// UpdateStatus rewrites an existing mark.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) error {
	const query = `UPDATE attendance SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// CountAbsences returns the number of absences a student accumulated on a
// schedule slot.
func (r *AttendanceRepository) CountAbsences(ctx context.Context, scheduleID, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance
WHERE schedule_id = $1 AND student_id = $2 AND status = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, scheduleID, studentID, models.AttendanceStatusAbsent); err != nil {
		return 0, fmt.Errorf("count absences: %w", err)
	}
	return count, nil
}

// ListBySchedule returns the marks on a schedule slot, newest date first.
func (r *AttendanceRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.Attendance, error) {
	const query = `SELECT id, schedule_id, student_id, date, status
FROM attendance WHERE schedule_id = $1 ORDER BY date DESC, student_id`
	var marks []models.Attendance
	if err := r.db.SelectContext(ctx, &marks, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule attendance: %w", err)
	}
	return marks, nil
}
