package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments       map[string]models.Enrollment
	existing          map[string]bool
	packageCovers     bool
	packageCoversFb   bool
	courseConflict    bool
	courseConflictFb  bool
	expansions        []models.Enrollment
	statusUpdates     map[string]models.EnrollmentStatus
	hasPlan           bool
	unpaid            int
	lockedInstallment bool
	createErr         error
}

func (m *mockEnrollmentRepo) ExistsNonCancelled(ctx context.Context, studentID, offeringID string, typ models.EnrollmentType) (bool, error) {
	return m.existing[string(typ)+":"+offeringID], nil
}

func (m *mockEnrollmentRepo) PackageCoversCourse(ctx context.Context, studentID, courseOfferingID string) (bool, error) {
	return m.packageCovers, nil
}

func (m *mockEnrollmentRepo) PackageCoversCourseFallback(ctx context.Context, studentID, courseOfferingID string) (bool, error) {
	return m.packageCoversFb, nil
}

func (m *mockEnrollmentRepo) CourseConflictsWithPackage(ctx context.Context, studentID, packageOfferingID string) (bool, error) {
	return m.courseConflict, nil
}

func (m *mockEnrollmentRepo) CourseConflictsWithPackageFallback(ctx context.Context, studentID, cycleID, packageID string) (bool, error) {
	return m.courseConflictFb, nil
}

func (m *mockEnrollmentRepo) CreateWithPlan(ctx context.Context, enrollment *models.Enrollment, amount float64, dueDate time.Time) (string, string, error) {
	if m.createErr != nil {
		return "", "", m.createErr
	}
	enrollment.ID = "enr-1"
	enrollment.Status = models.EnrollmentStatusPending
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	m.enrollments[enrollment.ID] = *enrollment
	return "plan-1", "inst-1", nil
}

func (m *mockEnrollmentRepo) CreateExpansion(ctx context.Context, enrollment *models.Enrollment) error {
	m.expansions = append(m.expansions, *enrollment)
	return nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) ListAdmin(ctx context.Context) ([]models.EnrollmentAdminRow, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) ListByOffering(ctx context.Context, typ models.EnrollmentType, offeringID string, status models.EnrollmentStatus) ([]models.RosterRow, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, adminID *string, acceptedAt *time.Time) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.EnrollmentStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockEnrollmentRepo) UnpaidInstallments(ctx context.Context, enrollmentID string) (bool, int, error) {
	return m.hasPlan, m.unpaid, nil
}

func (m *mockEnrollmentRepo) HasPaidOrVoucherInstallments(ctx context.Context, enrollmentID string) (bool, error) {
	return m.lockedInstallment, nil
}

type mockOfferingReader struct {
	courseCtx   map[string]models.OfferingContext
	packageCtx  map[string]models.OfferingContext
	coursePrice float64
	pkgPrice    float64
	bundled     []string
	fallback    []string
}

func (m *mockOfferingReader) CourseOfferingContext(ctx context.Context, id string) (*models.OfferingContext, error) {
	if c, ok := m.courseCtx[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOfferingReader) PackageOfferingContext(ctx context.Context, id string) (*models.OfferingContext, error) {
	if c, ok := m.packageCtx[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOfferingReader) CourseOfferingPrice(ctx context.Context, id string) (float64, error) {
	return m.coursePrice, nil
}

func (m *mockOfferingReader) PackageOfferingPrice(ctx context.Context, id string) (float64, error) {
	return m.pkgPrice, nil
}

func (m *mockOfferingReader) BundledCourseOfferings(ctx context.Context, packageOfferingID string) ([]string, error) {
	return m.bundled, nil
}

func (m *mockOfferingReader) FallbackCourseOfferings(ctx context.Context, packageOfferingID string) ([]string, error) {
	return m.fallback, nil
}

type mockSweeper struct {
	swept int64
	err   error
}

func (m *mockSweeper) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	return m.swept, m.err
}

func newEnrollmentServiceForTest(repo *mockEnrollmentRepo, offerings *mockOfferingReader) *EnrollmentService {
	return NewEnrollmentService(repo, offerings, &mockSweeper{}, nil, nil, nil, 7)
}

func TestEnrollmentCreateCourse(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	offerings := &mockOfferingReader{
		courseCtx:   map[string]models.OfferingContext{"co-1": {ItemID: "course-1", CycleID: "cycle-1"}},
		coursePrice: 150,
	}
	svc := newEnrollmentServiceForTest(repo, offerings)

	created, err := svc.Create(context.Background(), "stu-1", CreateEnrollmentRequest{
		Items: []EnrollmentItem{{Type: models.EnrollmentTypeCourse, ID: "co-1"}},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "enr-1", created[0].EnrollmentID)
	assert.Equal(t, 150.0, created[0].Amount)
	assert.Equal(t, "plan-1", created[0].PaymentPlanID)
	assert.Equal(t, "inst-1", created[0].InstallmentID)
}

func TestEnrollmentCreateCourseUnknownOffering(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, &mockOfferingReader{})

	_, err := svc.Create(context.Background(), "stu-1", CreateEnrollmentRequest{
		Items: []EnrollmentItem{{Type: models.EnrollmentTypeCourse, ID: "ghost"}},
	})
	require.Equal(t, appErrors.ErrCourseOfferingNotFound, err)
}

func TestEnrollmentCreateCourseDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{existing: map[string]bool{"course:co-1": true}}
	offerings := &mockOfferingReader{
		courseCtx: map[string]models.OfferingContext{"co-1": {ItemID: "course-1", CycleID: "cycle-1"}},
	}
	svc := newEnrollmentServiceForTest(repo, offerings)

	_, err := svc.Create(context.Background(), "stu-1", CreateEnrollmentRequest{
		Items: []EnrollmentItem{{Type: models.EnrollmentTypeCourse, ID: "co-1"}},
	})
	require.Equal(t, appErrors.ErrDuplicateCourseEnrollment, err)
}

func TestEnrollmentCreateCourseCoveredByPackage(t *testing.T) {
	repo := &mockEnrollmentRepo{packageCoversFb: true}
	offerings := &mockOfferingReader{
		courseCtx: map[string]models.OfferingContext{"co-1": {ItemID: "course-1", CycleID: "cycle-1"}},
	}
	svc := newEnrollmentServiceForTest(repo, offerings)

	_, err := svc.Create(context.Background(), "stu-1", CreateEnrollmentRequest{
		Items: []EnrollmentItem{{Type: models.EnrollmentTypeCourse, ID: "co-1"}},
	})
	require.Equal(t, appErrors.ErrPackageCoversCourse, err)
}

func TestEnrollmentCreatePackageExpands(t *testing.T) {
	repo := &mockEnrollmentRepo{existing: map[string]bool{"course:co-2": true}}
	offerings := &mockOfferingReader{
		packageCtx: map[string]models.OfferingContext{"po-1": {ItemID: "pkg-1", CycleID: "cycle-1"}},
		pkgPrice:   300,
		bundled:    []string{"co-1", "co-2", "co-3"},
	}
	svc := newEnrollmentServiceForTest(repo, offerings)

	created, err := svc.Create(context.Background(), "stu-1", CreateEnrollmentRequest{
		Items: []EnrollmentItem{{Type: models.EnrollmentTypePackage, ID: "po-1"}},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 300.0, created[0].Amount)

	// co-2 already exists, so only two expansion rows are written.
	require.Len(t, repo.expansions, 2)
	for _, exp := range repo.expansions {
		assert.Equal(t, models.EnrollmentTypeCourse, exp.EnrollmentType)
		require.NotNil(t, exp.PackageOfferingID)
		assert.Equal(t, "po-1", *exp.PackageOfferingID)
	}
}

func TestEnrollmentCreatePackageCourseConflict(t *testing.T) {
	repo := &mockEnrollmentRepo{courseConflictFb: true}
	offerings := &mockOfferingReader{
		packageCtx: map[string]models.OfferingContext{"po-1": {ItemID: "pkg-1", CycleID: "cycle-1"}},
	}
	svc := newEnrollmentServiceForTest(repo, offerings)

	_, err := svc.Create(context.Background(), "stu-1", CreateEnrollmentRequest{
		Items: []EnrollmentItem{{Type: models.EnrollmentTypePackage, ID: "po-1"}},
	})
	require.Equal(t, appErrors.ErrCourseInsidePackage, err)
}

func TestEnrollmentUpdateStatusRequiresFullPayment(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[string]models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Status: models.EnrollmentStatusPending},
		},
		hasPlan: true,
		unpaid:  1,
	}
	svc := newEnrollmentServiceForTest(repo, &mockOfferingReader{})

	_, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{
		Status: models.EnrollmentStatusAccepted,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollmentUpdateStatusRejectsPending(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[string]models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Status: models.EnrollmentStatusAccepted},
		},
	}
	svc := newEnrollmentServiceForTest(repo, &mockOfferingReader{})

	_, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{
		Status: models.EnrollmentStatusPending,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.statusUpdates)
}

func TestEnrollmentUpdateStatusAccepted(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[string]models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Status: models.EnrollmentStatusPending},
		},
		hasPlan: true,
		unpaid:  0,
	}
	svc := newEnrollmentServiceForTest(repo, &mockOfferingReader{})

	updated, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{
		Status: models.EnrollmentStatusAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusAccepted, updated.Status)
	require.NotNil(t, updated.AcceptedByAdminID)
	assert.Equal(t, "admin-1", *updated.AcceptedByAdminID)
	assert.Equal(t, models.EnrollmentStatusAccepted, repo.statusUpdates["enr-1"])
}

func TestEnrollmentCancelRules(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[string]models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Status: models.EnrollmentStatusPending},
			"enr-2": {ID: "enr-2", StudentID: "stu-1", Status: models.EnrollmentStatusAccepted},
		},
	}
	svc := newEnrollmentServiceForTest(repo, &mockOfferingReader{})

	err := svc.Cancel(context.Background(), "enr-1", "stu-2")
	require.Error(t, err, "foreign enrollment must be rejected")

	err = svc.Cancel(context.Background(), "enr-2", "stu-1")
	require.Error(t, err, "accepted enrollments cannot be cancelled")

	err = svc.Cancel(context.Background(), "enr-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, repo.statusUpdates["enr-1"])
}

func TestEnrollmentCancelBlockedByPayments(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[string]models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Status: models.EnrollmentStatusPending},
		},
		lockedInstallment: true,
	}
	svc := newEnrollmentServiceForTest(repo, &mockOfferingReader{})

	err := svc.Cancel(context.Background(), "enr-1", "stu-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}
