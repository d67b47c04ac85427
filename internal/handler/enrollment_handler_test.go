package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/marovi-edu/tuition-api/internal/middleware"
	"github.com/marovi-edu/tuition-api/internal/models"
	"github.com/marovi-edu/tuition-api/internal/service"
)

type stubEnrollmentRepo struct {
	listedStudent string
	details       []models.EnrollmentDetail
	createdPlans  int
}

func (s *stubEnrollmentRepo) ExistsNonCancelled(context.Context, string, string, models.EnrollmentType) (bool, error) {
	return false, nil
}

func (s *stubEnrollmentRepo) PackageCoversCourse(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *stubEnrollmentRepo) PackageCoversCourseFallback(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *stubEnrollmentRepo) CourseConflictsWithPackage(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *stubEnrollmentRepo) CourseConflictsWithPackageFallback(context.Context, string, string, string) (bool, error) {
	return false, nil
}

func (s *stubEnrollmentRepo) CreateWithPlan(_ context.Context, enrollment *models.Enrollment, _ float64, _ time.Time) (string, string, error) {
	enrollment.ID = "enr-1"
	s.createdPlans++
	return "plan-1", "inst-1", nil
}

func (s *stubEnrollmentRepo) CreateExpansion(context.Context, *models.Enrollment) error {
	return nil
}

func (s *stubEnrollmentRepo) FindByID(context.Context, string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (s *stubEnrollmentRepo) ListByStudent(_ context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	s.listedStudent = studentID
	return s.details, nil
}

func (s *stubEnrollmentRepo) ListAdmin(context.Context) ([]models.EnrollmentAdminRow, error) {
	return nil, nil
}

func (s *stubEnrollmentRepo) ListByOffering(context.Context, models.EnrollmentType, string, models.EnrollmentStatus) ([]models.RosterRow, error) {
	return nil, nil
}

func (s *stubEnrollmentRepo) UpdateStatus(context.Context, string, models.EnrollmentStatus, *string, *time.Time) error {
	return nil
}

func (s *stubEnrollmentRepo) UnpaidInstallments(context.Context, string) (bool, int, error) {
	return false, 0, nil
}

func (s *stubEnrollmentRepo) HasPaidOrVoucherInstallments(context.Context, string) (bool, error) {
	return false, nil
}

type stubOfferingReader struct{}

func (stubOfferingReader) CourseOfferingContext(_ context.Context, id string) (*models.OfferingContext, error) {
	return &models.OfferingContext{ItemID: "course-1", CycleID: "cycle-1"}, nil
}

func (stubOfferingReader) PackageOfferingContext(_ context.Context, id string) (*models.OfferingContext, error) {
	return &models.OfferingContext{ItemID: "pkg-1", CycleID: "cycle-1"}, nil
}

func (stubOfferingReader) CourseOfferingPrice(context.Context, string) (float64, error) {
	return 150, nil
}

func (stubOfferingReader) PackageOfferingPrice(context.Context, string) (float64, error) {
	return 400, nil
}

func (stubOfferingReader) BundledCourseOfferings(context.Context, string) ([]string, error) {
	return nil, nil
}

func (stubOfferingReader) FallbackCourseOfferings(context.Context, string) ([]string, error) {
	return nil, nil
}

type stubSweeper struct{}

func (stubSweeper) SweepOverdue(context.Context, time.Time) (int64, error) { return 0, nil }

func newEnrollmentHandlerForTest(repo *stubEnrollmentRepo) *EnrollmentHandler {
	svc := service.NewEnrollmentService(repo, stubOfferingReader{}, stubSweeper{}, nil, nil, nil, 7)
	return NewEnrollmentHandler(svc, nil)
}

func studentClaims(studentID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, RelatedID: &studentID}
}

func TestEnrollmentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubEnrollmentRepo{}
	handler := newEnrollmentHandlerForTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"items":[{"type":"course","id":"co-1"}]}`
	req, _ := http.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, studentClaims("stud-1"))

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 1, repo.createdPlans)
	require.Contains(t, w.Body.String(), "enr-1")
}

func TestEnrollmentHandlerCreateRequiresStudentProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerForTest(&stubEnrollmentRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(`{}`))
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestEnrollmentHandlerCreateInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerForTest(&stubEnrollmentRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(`{"items":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, studentClaims("stud-1"))

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerListMineStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubEnrollmentRepo{details: []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{ID: "enr-1", StudentID: "stud-1", Status: models.EnrollmentStatusPending},
	}}}
	handler := newEnrollmentHandlerForTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/enrollments/me", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, studentClaims("stud-1"))

	handler.ListMine(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "stud-1", repo.listedStudent)
}

func TestEnrollmentHandlerListMineAdminQueriesStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubEnrollmentRepo{}
	handler := newEnrollmentHandlerForTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/enrollments/me?student_id=stud-9", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.ListMine(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "stud-9", repo.listedStudent)
}

func TestEnrollmentHandlerListMineAdminMissingStudentID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerForTest(&stubEnrollmentRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/enrollments/me", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.ListMine(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
