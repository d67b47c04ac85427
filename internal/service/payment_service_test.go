package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

type mockPaymentRepo struct {
	installments map[string]models.InstallmentDetail
	unpaid       int
	swept        int64
	adminRows    []models.InstallmentAdminRow
	cycleDates   *models.CycleDates
	paid         []string
	rejected     map[string]models.InstallmentStatus
	vouchers     map[string]string
}

func (m *mockPaymentRepo) FindInstallment(ctx context.Context, id string) (*models.InstallmentDetail, error) {
	if inst, ok := m.installments[id]; ok {
		return &inst, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentRepo) AttachVoucher(ctx context.Context, id, voucherURL string) error {
	if m.vouchers == nil {
		m.vouchers = make(map[string]string)
	}
	m.vouchers[id] = voucherURL
	return nil
}

func (m *mockPaymentRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	m.paid = append(m.paid, id)
	return nil
}

func (m *mockPaymentRepo) Reject(ctx context.Context, id string, status models.InstallmentStatus, reason *string) error {
	if m.rejected == nil {
		m.rejected = make(map[string]models.InstallmentStatus)
	}
	m.rejected[id] = status
	return nil
}

func (m *mockPaymentRepo) CountUnpaid(ctx context.Context, planID string) (int, error) {
	return m.unpaid, nil
}

func (m *mockPaymentRepo) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	return m.swept, nil
}

func (m *mockPaymentRepo) ListAdmin(ctx context.Context, status string) ([]models.InstallmentAdminRow, error) {
	return m.adminRows, nil
}

func (m *mockPaymentRepo) CycleDates(ctx context.Context, enrollmentID string) (*models.CycleDates, error) {
	if m.cycleDates == nil {
		return nil, sql.ErrNoRows
	}
	return m.cycleDates, nil
}

type mockPaymentEnrollments struct {
	enrollments   map[string]models.Enrollment
	statusUpdates map[string]models.EnrollmentStatus
	cascaded      []string
}

func (m *mockPaymentEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentEnrollments) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, adminID *string, acceptedAt *time.Time) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.EnrollmentStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockPaymentEnrollments) CascadeAcceptPackageCourses(ctx context.Context, studentID, packageOfferingID string, acceptedAt time.Time) error {
	m.cascaded = append(m.cascaded, packageOfferingID)
	return nil
}

type mockVoucherStorage struct {
	saved   []string
	deleted []string
	saveErr error
}

func (m *mockVoucherStorage) SaveStream(filename string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved = append(m.saved, filename)
	return filename, nil
}

func (m *mockVoucherStorage) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

func strPtr(s string) *string { return &s }

func newPaymentServiceForTest(repo *mockPaymentRepo, enrollments *mockPaymentEnrollments, store *mockVoucherStorage) *PaymentService {
	return NewPaymentService(repo, enrollments, store, nil, nil, nil, "/uploads", nil)
}

func TestUploadVoucher(t *testing.T) {
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment:  models.Installment{ID: "inst-1", Status: models.InstallmentStatusPending},
				EnrollmentID: "enr-1",
				StudentID:    "stu-1",
			},
		},
	}
	store := &mockVoucherStorage{}
	svc := newPaymentServiceForTest(repo, &mockPaymentEnrollments{}, store)

	result, err := svc.UploadVoucher(context.Background(), "inst-1", "stu-1", false, "voucher.png", strings.NewReader("img"))
	require.NoError(t, err)
	require.NotNil(t, result.VoucherURL)
	assert.Equal(t, "/uploads/voucher.png", *result.VoucherURL)
	assert.Equal(t, "/uploads/voucher.png", repo.vouchers["inst-1"])
	assert.Len(t, store.saved, 1)
}

func TestUploadVoucherResetsOverdueToPending(t *testing.T) {
	reason := "comprobante ilegible"
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment: models.Installment{
					ID:              "inst-1",
					Status:          models.InstallmentStatusOverdue,
					RejectionReason: &reason,
				},
				EnrollmentID: "enr-1",
				StudentID:    "stu-1",
			},
		},
	}
	svc := newPaymentServiceForTest(repo, &mockPaymentEnrollments{}, &mockVoucherStorage{})

	result, err := svc.UploadVoucher(context.Background(), "inst-1", "stu-1", false, "voucher.png", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPending, result.Status)
	assert.Nil(t, result.RejectionReason)
	require.NotNil(t, result.VoucherURL)
	assert.Equal(t, "/uploads/voucher.png", *result.VoucherURL)
}

func TestUploadVoucherAsAdminForOtherStudent(t *testing.T) {
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment:  models.Installment{ID: "inst-1", Status: models.InstallmentStatusPending},
				EnrollmentID: "enr-1",
				StudentID:    "stu-1",
			},
		},
	}
	svc := newPaymentServiceForTest(repo, &mockPaymentEnrollments{}, &mockVoucherStorage{})

	result, err := svc.UploadVoucher(context.Background(), "inst-1", "", true, "voucher.png", strings.NewReader("img"))
	require.NoError(t, err)
	require.NotNil(t, result.VoucherURL)
	assert.Equal(t, "/uploads/voucher.png", repo.vouchers["inst-1"])
}

func TestUploadVoucherRejectsForeignStudent(t *testing.T) {
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment: models.Installment{ID: "inst-1", Status: models.InstallmentStatusPending},
				StudentID:   "stu-1",
			},
		},
	}
	svc := newPaymentServiceForTest(repo, &mockPaymentEnrollments{}, &mockVoucherStorage{})

	_, err := svc.UploadVoucher(context.Background(), "inst-1", "stu-2", false, "voucher.png", strings.NewReader("img"))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestUploadVoucherRejectsUnsupportedType(t *testing.T) {
	svc := newPaymentServiceForTest(&mockPaymentRepo{}, &mockPaymentEnrollments{}, &mockVoucherStorage{})

	_, err := svc.UploadVoucher(context.Background(), "inst-1", "stu-1", false, "voucher.exe", strings.NewReader("x"))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestApproveFullyPaidAcceptsEnrollment(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 4, 0)
	pkgOffering := "po-1"
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment: models.Installment{
					ID:            "inst-1",
					PaymentPlanID: "plan-1",
					Status:        models.InstallmentStatusPending,
					VoucherURL:    strPtr("/uploads/v.png"),
				},
				EnrollmentID: "enr-1",
				StudentID:    "stu-1",
			},
		},
		unpaid:     0,
		cycleDates: &models.CycleDates{StartDate: &start, EndDate: &end},
	}
	enrollments := &mockPaymentEnrollments{
		enrollments: map[string]models.Enrollment{
			"enr-1": {
				ID:                "enr-1",
				StudentID:         "stu-1",
				EnrollmentType:    models.EnrollmentTypePackage,
				PackageOfferingID: &pkgOffering,
				Status:            models.EnrollmentStatusPending,
			},
		},
	}
	svc := newPaymentServiceForTest(repo, enrollments, &mockVoucherStorage{})

	result, err := svc.Approve(context.Background(), "inst-1", "admin-1")
	require.NoError(t, err)
	assert.True(t, result.FullyPaid)
	assert.Equal(t, []string{"inst-1"}, repo.paid)
	assert.Equal(t, models.EnrollmentStatusAccepted, enrollments.statusUpdates["enr-1"])
	assert.Equal(t, []string{"po-1"}, enrollments.cascaded)
	require.NotNil(t, result.CycleStartDate)
	assert.Equal(t, start, *result.CycleStartDate)
}

func TestApproveWithoutVoucherMarksPaid(t *testing.T) {
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment:  models.Installment{ID: "inst-1", PaymentPlanID: "plan-1", Status: models.InstallmentStatusPending},
				EnrollmentID: "enr-1",
			},
		},
		unpaid: 1,
	}
	svc := newPaymentServiceForTest(repo, &mockPaymentEnrollments{}, &mockVoucherStorage{})

	result, err := svc.Approve(context.Background(), "inst-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"inst-1"}, repo.paid)
	assert.False(t, result.FullyPaid)
}

func TestApprovePaidInstallmentFails(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment:  models.Installment{ID: "inst-1", Status: models.InstallmentStatusPaid, PaidAt: &now},
				EnrollmentID: "enr-1",
			},
		},
	}
	svc := newPaymentServiceForTest(repo, &mockPaymentEnrollments{}, &mockVoucherStorage{})

	_, err := svc.Approve(context.Background(), "inst-1", "admin-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestApprovePartialPlanLeavesEnrollmentPending(t *testing.T) {
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment: models.Installment{
					ID:            "inst-1",
					PaymentPlanID: "plan-1",
					Status:        models.InstallmentStatusPending,
					VoucherURL:    strPtr("/uploads/v.png"),
				},
				EnrollmentID: "enr-1",
			},
		},
		unpaid: 2,
	}
	enrollments := &mockPaymentEnrollments{}
	svc := newPaymentServiceForTest(repo, enrollments, &mockVoucherStorage{})

	result, err := svc.Approve(context.Background(), "inst-1", "admin-1")
	require.NoError(t, err)
	assert.False(t, result.FullyPaid)
	assert.Empty(t, enrollments.statusUpdates)
}

func TestRejectOverdueWhenDueDatePassed(t *testing.T) {
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment: models.Installment{
					ID:         "inst-1",
					Status:     models.InstallmentStatusPending,
					DueDate:    time.Now().UTC().AddDate(0, 0, -2),
					VoucherURL: strPtr("/uploads/v.png"),
				},
				EnrollmentID: "enr-1",
			},
		},
	}
	enrollments := &mockPaymentEnrollments{}
	svc := newPaymentServiceForTest(repo, enrollments, &mockVoucherStorage{})

	reason := "ilegible"
	result, err := svc.Reject(context.Background(), "inst-1", "admin-1", RejectPaymentRequest{Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusOverdue, result.Status)
	assert.Nil(t, result.VoucherURL)
	assert.Equal(t, &reason, result.RejectionReason)
	assert.Equal(t, models.InstallmentStatusOverdue, repo.rejected["inst-1"])
	assert.Equal(t, models.EnrollmentStatusRejected, enrollments.statusUpdates["enr-1"])
}

func TestRejectPaidInstallmentFails(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockPaymentRepo{
		installments: map[string]models.InstallmentDetail{
			"inst-1": {
				Installment:  models.Installment{ID: "inst-1", Status: models.InstallmentStatusPaid, PaidAt: &now},
				EnrollmentID: "enr-1",
			},
		},
	}
	svc := newPaymentServiceForTest(repo, &mockPaymentEnrollments{}, &mockVoucherStorage{})

	_, err := svc.Reject(context.Background(), "inst-1", "admin-1", RejectPaymentRequest{})
	require.Error(t, err)
}

func TestListAdminRejectedFilter(t *testing.T) {
	repo := &mockPaymentRepo{
		adminRows: []models.InstallmentAdminRow{
			{
				Installment:      models.Installment{ID: "inst-1", Status: models.InstallmentStatusPending},
				EnrollmentStatus: models.EnrollmentStatusRejected,
			},
			{
				Installment:      models.Installment{ID: "inst-2", Status: models.InstallmentStatusPaid},
				EnrollmentStatus: models.EnrollmentStatusAccepted,
			},
		},
	}
	svc := newPaymentServiceForTest(repo, &mockPaymentEnrollments{}, &mockVoucherStorage{})

	rows, err := svc.ListAdmin(context.Background(), "rejected")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "inst-1", rows[0].ID)
	assert.Equal(t, "rejected", rows[0].StatusUI)
}
