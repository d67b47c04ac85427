package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

type mockAttendanceRepo struct {
	ownedBy  map[string]string
	existing map[string]*models.Attendance
	absences map[string]int

	created       []*models.Attendance
	statusUpdates map[string]models.AttendanceStatus
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{
		ownedBy:       map[string]string{},
		existing:      map[string]*models.Attendance{},
		absences:      map[string]int{},
		statusUpdates: map[string]models.AttendanceStatus{},
	}
}

func attendanceKey(scheduleID, studentID string) string {
	return scheduleID + ":" + studentID
}

func (m *mockAttendanceRepo) TeacherOwnsSchedule(_ context.Context, scheduleID, teacherID string) (bool, error) {
	return m.ownedBy[scheduleID] == teacherID, nil
}

func (m *mockAttendanceRepo) FindForDay(_ context.Context, scheduleID, studentID string, _ time.Time) (*models.Attendance, error) {
	mark, ok := m.existing[attendanceKey(scheduleID, studentID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *mark
	return &copied, nil
}

func (m *mockAttendanceRepo) Create(_ context.Context, attendance *models.Attendance) error {
	attendance.ID = fmt.Sprintf("att-%d", len(m.created)+1)
	m.created = append(m.created, attendance)
	return nil
}

func (m *mockAttendanceRepo) UpdateStatus(_ context.Context, id string, status models.AttendanceStatus) error {
	m.statusUpdates[id] = status
	return nil
}

func (m *mockAttendanceRepo) CountAbsences(_ context.Context, scheduleID, studentID string) (int, error) {
	return m.absences[attendanceKey(scheduleID, studentID)], nil
}

func (m *mockAttendanceRepo) ListBySchedule(_ context.Context, scheduleID string) ([]models.Attendance, error) {
	var marks []models.Attendance
	for _, mark := range m.existing {
		if mark.ScheduleID == scheduleID {
			marks = append(marks, *mark)
		}
	}
	return marks, nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(_ context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

type mockNotifier struct {
	notified []string
	err      error
}

func (m *mockNotifier) NotifyParent(_ context.Context, student *models.Student, _ models.NotificationKind, message string) error {
	if m.err != nil {
		return m.err
	}
	m.notified = append(m.notified, message)
	return nil
}

func newAttendanceServiceForTest(repo *mockAttendanceRepo, students *mockStudentReader, notifier *mockNotifier) *AttendanceService {
	return NewAttendanceService(repo, students, notifier, nil, nil, 3)
}

func TestAttendanceMarkCreates(t *testing.T) {
	repo := newMockAttendanceRepo()
	repo.ownedBy["sched-1"] = "teach-1"
	svc := newAttendanceServiceForTest(repo, &mockStudentReader{}, &mockNotifier{})

	result, err := svc.Mark(context.Background(), "teach-1", MarkAttendanceRequest{
		ScheduleID: "sched-1",
		StudentID:  "stud-1",
		Status:     models.AttendanceStatusPresent,
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "sched-1", repo.created[0].ScheduleID)
	assert.Equal(t, models.AttendanceStatusPresent, result.Attendance.Status)
	assert.False(t, result.ParentAlerted)
}

func TestAttendanceMarkUpdatesExisting(t *testing.T) {
	repo := newMockAttendanceRepo()
	repo.ownedBy["sched-1"] = "teach-1"
	repo.existing[attendanceKey("sched-1", "stud-1")] = &models.Attendance{
		ID:         "att-9",
		ScheduleID: "sched-1",
		StudentID:  "stud-1",
		Status:     models.AttendanceStatusPresent,
	}
	svc := newAttendanceServiceForTest(repo, &mockStudentReader{}, &mockNotifier{})

	result, err := svc.Mark(context.Background(), "teach-1", MarkAttendanceRequest{
		ScheduleID: "sched-1",
		StudentID:  "stud-1",
		Status:     models.AttendanceStatusLate,
	})
	require.NoError(t, err)
	assert.Empty(t, repo.created)
	assert.Equal(t, models.AttendanceStatusLate, repo.statusUpdates["att-9"])
	assert.Equal(t, models.AttendanceStatusLate, result.Attendance.Status)
}

func TestAttendanceMarkForeignSchedule(t *testing.T) {
	repo := newMockAttendanceRepo()
	repo.ownedBy["sched-1"] = "teach-2"
	svc := newAttendanceServiceForTest(repo, &mockStudentReader{}, &mockNotifier{})

	_, err := svc.Mark(context.Background(), "teach-1", MarkAttendanceRequest{
		ScheduleID: "sched-1",
		StudentID:  "stud-1",
		Status:     models.AttendanceStatusPresent,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestAttendanceMarkInvalidStatus(t *testing.T) {
	repo := newMockAttendanceRepo()
	repo.ownedBy["sched-1"] = "teach-1"
	svc := newAttendanceServiceForTest(repo, &mockStudentReader{}, &mockNotifier{})

	_, err := svc.Mark(context.Background(), "teach-1", MarkAttendanceRequest{
		ScheduleID: "sched-1",
		StudentID:  "stud-1",
		Status:     "falto",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAttendanceThresholdAlertsParent(t *testing.T) {
	repo := newMockAttendanceRepo()
	repo.ownedBy["sched-1"] = "teach-1"
	repo.absences[attendanceKey("sched-1", "stud-1")] = 3
	students := &mockStudentReader{students: map[string]*models.Student{
		"stud-1": {ID: "stud-1", FirstName: "Ana", LastName: "Quispe"},
	}}
	notifier := &mockNotifier{}
	svc := newAttendanceServiceForTest(repo, students, notifier)

	result, err := svc.Mark(context.Background(), "teach-1", MarkAttendanceRequest{
		ScheduleID: "sched-1",
		StudentID:  "stud-1",
		Status:     models.AttendanceStatusAbsent,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Absences)
	assert.True(t, result.ParentAlerted)
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, "El estudiante Ana Quispe ha acumulado 3 inasistencias.", notifier.notified[0])
}

func TestAttendanceBelowThresholdNoAlert(t *testing.T) {
	repo := newMockAttendanceRepo()
	repo.ownedBy["sched-1"] = "teach-1"
	repo.absences[attendanceKey("sched-1", "stud-1")] = 2
	notifier := &mockNotifier{}
	svc := newAttendanceServiceForTest(repo, &mockStudentReader{}, notifier)

	result, err := svc.Mark(context.Background(), "teach-1", MarkAttendanceRequest{
		ScheduleID: "sched-1",
		StudentID:  "stud-1",
		Status:     models.AttendanceStatusAbsent,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Absences)
	assert.False(t, result.ParentAlerted)
	assert.Empty(t, notifier.notified)
}

func TestAttendanceAlertFailureIsNonFatal(t *testing.T) {
	repo := newMockAttendanceRepo()
	repo.ownedBy["sched-1"] = "teach-1"
	repo.absences[attendanceKey("sched-1", "stud-1")] = 4
	students := &mockStudentReader{students: map[string]*models.Student{
		"stud-1": {ID: "stud-1", FirstName: "Ana", LastName: "Quispe"},
	}}
	notifier := &mockNotifier{err: fmt.Errorf("smtp down")}
	svc := newAttendanceServiceForTest(repo, students, notifier)

	result, err := svc.Mark(context.Background(), "teach-1", MarkAttendanceRequest{
		ScheduleID: "sched-1",
		StudentID:  "stud-1",
		Status:     models.AttendanceStatusAbsent,
	})
	require.NoError(t, err)
	assert.False(t, result.ParentAlerted)
}

func TestAttendanceListForeignSchedule(t *testing.T) {
	repo := newMockAttendanceRepo()
	repo.ownedBy["sched-1"] = "teach-2"
	svc := newAttendanceServiceForTest(repo, &mockStudentReader{}, &mockNotifier{})

	_, err := svc.ListBySchedule(context.Background(), "sched-1", "teach-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
