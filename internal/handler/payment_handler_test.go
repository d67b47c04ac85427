package handler

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"mime/multipart"
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

type stubPaymentRepo struct {
	installments map[string]*models.InstallmentDetail
	vouchers     map[string]string
	rejected     map[string]models.InstallmentStatus
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{
		installments: map[string]*models.InstallmentDetail{},
		vouchers:     map[string]string{},
		rejected:     map[string]models.InstallmentStatus{},
	}
}

func (s *stubPaymentRepo) FindInstallment(_ context.Context, id string) (*models.InstallmentDetail, error) {
	detail, ok := s.installments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *detail
	return &copied, nil
}

func (s *stubPaymentRepo) AttachVoucher(_ context.Context, id, voucherURL string) error {
	s.vouchers[id] = voucherURL
	return nil
}

func (s *stubPaymentRepo) MarkPaid(context.Context, string, time.Time) error { return nil }

func (s *stubPaymentRepo) Reject(_ context.Context, id string, status models.InstallmentStatus, _ *string) error {
	s.rejected[id] = status
	return nil
}

func (s *stubPaymentRepo) CountUnpaid(context.Context, string) (int, error) { return 0, nil }

func (s *stubPaymentRepo) SweepOverdue(context.Context, time.Time) (int64, error) { return 0, nil }

func (s *stubPaymentRepo) ListAdmin(context.Context, string) ([]models.InstallmentAdminRow, error) {
	return []models.InstallmentAdminRow{}, nil
}

func (s *stubPaymentRepo) CycleDates(context.Context, string) (*models.CycleDates, error) {
	return &models.CycleDates{}, nil
}

type stubPaymentEnrollments struct {
	statusUpdates map[string]models.EnrollmentStatus
}

func (s *stubPaymentEnrollments) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	return &models.Enrollment{ID: id, StudentID: "stud-1", EnrollmentType: models.EnrollmentTypeCourse, Status: models.EnrollmentStatusPending}, nil
}

func (s *stubPaymentEnrollments) UpdateStatus(_ context.Context, id string, status models.EnrollmentStatus, _ *string, _ *time.Time) error {
	if s.statusUpdates == nil {
		s.statusUpdates = map[string]models.EnrollmentStatus{}
	}
	s.statusUpdates[id] = status
	return nil
}

func (s *stubPaymentEnrollments) CascadeAcceptPackageCourses(context.Context, string, string, time.Time) error {
	return nil
}

type stubVoucherStore struct {
	saved []string
}

func (s *stubVoucherStore) SaveStream(filename string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	s.saved = append(s.saved, filename)
	return filename, nil
}

func (s *stubVoucherStore) Delete(string) error { return nil }

func newPaymentHandlerForTest(repo *stubPaymentRepo, store *stubVoucherStore) *PaymentHandler {
	svc := service.NewPaymentService(repo, &stubPaymentEnrollments{}, store, nil, nil, nil, "/uploads", nil)
	return NewPaymentHandler(svc)
}

func voucherForm(t *testing.T, field, filename string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestPaymentHandlerUploadVoucher(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newStubPaymentRepo()
	repo.installments["inst-1"] = &models.InstallmentDetail{
		Installment:  models.Installment{ID: "inst-1", Status: models.InstallmentStatusPending},
		EnrollmentID: "enr-1",
		StudentID:    "stud-1",
	}
	store := &stubVoucherStore{}
	handler := newPaymentHandlerForTest(repo, store)

	body, contentType := voucherForm(t, "voucher", "recibo.png")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/inst-1/voucher", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}
	c.Set(middleware.ContextUserKey, studentClaims("stud-1"))

	handler.UploadVoucher(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.saved, 1)
	require.Contains(t, repo.vouchers["inst-1"], "/uploads/")
}

func TestPaymentHandlerUploadVoucherMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandlerForTest(newStubPaymentRepo(), &stubVoucherStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/inst-1/voucher", strings.NewReader(""))
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}
	c.Set(middleware.ContextUserKey, studentClaims("stud-1"))

	handler.UploadVoucher(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandlerUploadVoucherNoStudentProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandlerForTest(newStubPaymentRepo(), &stubVoucherStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/inst-1/voucher", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	handler.UploadVoucher(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestPaymentHandlerUploadVoucherAsAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newStubPaymentRepo()
	repo.installments["inst-1"] = &models.InstallmentDetail{
		Installment:  models.Installment{ID: "inst-1", Status: models.InstallmentStatusOverdue},
		EnrollmentID: "enr-1",
		StudentID:    "stud-1",
	}
	store := &stubVoucherStore{}
	handler := newPaymentHandlerForTest(repo, store)

	body, contentType := voucherForm(t, "voucher", "recibo.png")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/inst-1/voucher", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.UploadVoucher(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.saved, 1)
}

func TestPaymentHandlerApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newStubPaymentRepo()
	voucher := "/uploads/recibo.png"
	repo.installments["inst-1"] = &models.InstallmentDetail{
		Installment:  models.Installment{ID: "inst-1", Status: models.InstallmentStatusPending, VoucherURL: &voucher},
		EnrollmentID: "enr-1",
		StudentID:    "stud-1",
	}
	handler := newPaymentHandlerForTest(repo, &stubVoucherStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/payments/inst-1/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentHandlerApproveRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandlerForTest(newStubPaymentRepo(), &stubVoucherStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/payments/inst-1/approve", nil)
	c.Request = req

	handler.Approve(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentHandlerRejectInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandlerForTest(newStubPaymentRepo(), &stubVoucherStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/payments/inst-1/reject", strings.NewReader(`{"reason":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Reject(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandlerListAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandlerForTest(newStubPaymentRepo(), &stubVoucherStore{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/payments", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.ListAdmin(c)
	require.Equal(t, http.StatusOK, w.Code)
}
