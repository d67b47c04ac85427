package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

type attendanceRepository interface {
	TeacherOwnsSchedule(ctx context.Context, scheduleID, teacherID string) (bool, error)
	FindForDay(ctx context.Context, scheduleID, studentID string, day time.Time) (*models.Attendance, error)
	Create(ctx context.Context, attendance *models.Attendance) error
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) error
	CountAbsences(ctx context.Context, scheduleID, studentID string) (int, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.Attendance, error)
}

type attendanceStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type parentNotifier interface {
	NotifyParent(ctx context.Context, student *models.Student, kind models.NotificationKind, message string) error
}

// MarkAttendanceRequest is the payload to mark one student for today.
type MarkAttendanceRequest struct {
	ScheduleID string                  `json:"schedule_id" validate:"required"`
	StudentID  string                  `json:"student_id" validate:"required"`
	Status     models.AttendanceStatus `json:"status" validate:"required"`
}

// MarkAttendanceResult reports the stored mark and the running absence
// count on the schedule.
type MarkAttendanceResult struct {
	Attendance    models.Attendance `json:"attendance"`
	Absences      int               `json:"absences"`
	ParentAlerted bool              `json:"parent_alerted"`
}

// AttendanceService implements per-day attendance marking with the
// absence-threshold parent alert.
type AttendanceService struct {
	repo      attendanceRepository
	students  attendanceStudentReader
	notifier  parentNotifier
	validator *validator.Validate
	logger    *zap.Logger
	threshold int
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, students attendanceStudentReader, notifier parentNotifier, validate *validator.Validate, logger *zap.Logger, threshold int) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = 3
	}
	return &AttendanceService{repo: repo, students: students, notifier: notifier, validator: validate, logger: logger, threshold: threshold}
}

// Mark upserts today's mark for a student on a schedule slot owned by the
// calling teacher. Reaching the absence threshold triggers a best-effort
// parent notification.
func (s *AttendanceService) Mark(ctx context.Context, teacherID string, req MarkAttendanceRequest) (*MarkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
	}
	scheduleID := req.ScheduleID

	owns, err := s.repo.TeacherOwnsSchedule(ctx, scheduleID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule ownership")
	}
	if !owns {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule is not assigned to this teacher")
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	mark, err := s.repo.FindForDay(ctx, scheduleID, req.StudentID, today)
	switch {
	case err == nil:
		if err := s.repo.UpdateStatus(ctx, mark.ID, req.Status); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
		}
		mark.Status = req.Status
	case errors.Is(err, sql.ErrNoRows):
		mark = &models.Attendance{
			ScheduleID: scheduleID,
			StudentID:  req.StudentID,
			Date:       today,
			Status:     req.Status,
		}
		if err := s.repo.Create(ctx, mark); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
		}
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	result := &MarkAttendanceResult{Attendance: *mark}

	absences, err := s.repo.CountAbsences(ctx, scheduleID, req.StudentID)
	if err != nil {
		s.logger.Warn("failed to count absences", zap.String("student_id", req.StudentID), zap.Error(err))
		return result, nil
	}
	result.Absences = absences

	if req.Status == models.AttendanceStatusAbsent && absences >= s.threshold {
		result.ParentAlerted = s.alertParent(ctx, req.StudentID, absences)
	}
	return result, nil
}

func (s *AttendanceService) alertParent(ctx context.Context, studentID string, absences int) bool {
	if s.notifier == nil {
		return false
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to load student for absence alert", zap.String("student_id", studentID), zap.Error(err))
		return false
	}
	message := fmt.Sprintf("El estudiante %s ha acumulado %d inasistencias.", student.FullName(), absences)
	if err := s.notifier.NotifyParent(ctx, student, models.NotificationKindAbsences, message); err != nil {
		s.logger.Warn("failed to notify parent", zap.String("student_id", studentID), zap.Error(err))
		return false
	}
	return true
}

// ListBySchedule returns the marks of a schedule, restricted to the
// owning teacher.
func (s *AttendanceService) ListBySchedule(ctx context.Context, scheduleID, teacherID string) ([]models.Attendance, error) {
	owns, err := s.repo.TeacherOwnsSchedule(ctx, scheduleID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule ownership")
	}
	if !owns {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule is not assigned to this teacher")
	}
	marks, err := s.repo.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return marks, nil
}
