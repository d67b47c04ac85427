package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

type paymentRepository interface {
	FindInstallment(ctx context.Context, id string) (*models.InstallmentDetail, error)
	AttachVoucher(ctx context.Context, id, voucherURL string) error
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
	Reject(ctx context.Context, id string, status models.InstallmentStatus, reason *string) error
	CountUnpaid(ctx context.Context, planID string) (int, error)
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
	ListAdmin(ctx context.Context, status string) ([]models.InstallmentAdminRow, error)
	CycleDates(ctx context.Context, enrollmentID string) (*models.CycleDates, error)
}

type paymentEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, adminID *string, acceptedAt *time.Time) error
	CascadeAcceptPackageCourses(ctx context.Context, studentID, packageOfferingID string, acceptedAt time.Time) error
}

type voucherStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

type paymentAuditWriter interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// RejectPaymentRequest carries the optional rejection reason.
type RejectPaymentRequest struct {
	Reason *string `json:"reason"`
}

// PaymentService implements the installment workflow: voucher upload,
// approval with enrollment acceptance cascade, rejection and listings.
type PaymentService struct {
	repo        paymentRepository
	enrollments paymentEnrollmentRepository
	storage     voucherStorage
	audit       paymentAuditWriter
	students    attendanceStudentReader
	notifier    parentNotifier
	validator   *validator.Validate
	logger      *zap.Logger
	publicPath  string
	nameFn      func(string) string
}

// SetParentNotifier enables the best-effort payment confirmation message
// sent to the student's parent on full payment.
func (s *PaymentService) SetParentNotifier(students attendanceStudentReader, notifier parentNotifier) {
	s.students = students
	s.notifier = notifier
}

// NewPaymentService constructs the payment service. publicPath is the URL
// prefix under which stored vouchers are served; nameFn builds stored
// filenames from original ones.
func NewPaymentService(repo paymentRepository, enrollments paymentEnrollmentRepository, storage voucherStorage, audit paymentAuditWriter, validate *validator.Validate, logger *zap.Logger, publicPath string, nameFn func(string) string) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publicPath == "" {
		publicPath = "/uploads"
	}
	return &PaymentService{
		repo:        repo,
		enrollments: enrollments,
		storage:     storage,
		audit:       audit,
		validator:   validate,
		logger:      logger,
		publicPath:  publicPath,
		nameFn:      nameFn,
	}
}

var allowedVoucherExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".pdf": {},
}

// UploadVoucher stores the proof-of-payment file for an installment owned
// by the student and records its public URL. Admins may upload on any
// student's behalf. Re-uploading replaces the previous voucher, resets the
// installment to pending and clears any rejection reason.
func (s *PaymentService) UploadVoucher(ctx context.Context, installmentID, studentID string, asAdmin bool, originalName string, file io.Reader) (*models.InstallmentDetail, error) {
	ext := strings.ToLower(path.Ext(originalName))
	if _, ok := allowedVoucherExts[ext]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported voucher file type")
	}

	installment, err := s.repo.FindInstallment(ctx, installmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "installment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load installment")
	}
	if !asAdmin && installment.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "installment belongs to another student")
	}
	if installment.Status == models.InstallmentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "installment is already paid")
	}

	filename := originalName
	if s.nameFn != nil {
		filename = s.nameFn(originalName)
	}
	stored, err := s.storage.SaveStream(filename, file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store voucher")
	}
	voucherURL := path.Join(s.publicPath, stored)

	if err := s.repo.AttachVoucher(ctx, installmentID, voucherURL); err != nil {
		if cleanupErr := s.storage.Delete(stored); cleanupErr != nil {
			s.logger.Warn("failed to remove orphan voucher", zap.String("file", stored), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach voucher")
	}

	installment.VoucherURL = &voucherURL
	installment.Status = models.InstallmentStatusPending
	installment.RejectionReason = nil
	return installment, nil
}

// Approve marks an installment paid. When the plan has no unpaid
// installments left the enrollment is accepted; accepted package
// enrollments cascade to their expanded course rows.
func (s *PaymentService) Approve(ctx context.Context, installmentID, adminID string) (*models.ApprovalResult, error) {
	installment, err := s.repo.FindInstallment(ctx, installmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "installment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load installment")
	}
	if installment.Status == models.InstallmentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "installment is already paid")
	}

	paidAt := time.Now().UTC()
	if err := s.repo.MarkPaid(ctx, installmentID, paidAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark installment paid")
	}

	result := &models.ApprovalResult{InstallmentID: installmentID, EnrollmentID: installment.EnrollmentID}

	unpaid, err := s.repo.CountUnpaid(ctx, installment.PaymentPlanID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unpaid installments")
	}
	if unpaid == 0 {
		result.FullyPaid = true
		if err := s.acceptEnrollment(ctx, installment.EnrollmentID, adminID, paidAt); err != nil {
			return nil, err
		}
		if dates, err := s.repo.CycleDates(ctx, installment.EnrollmentID); err != nil {
			s.logger.Warn("failed to resolve cycle dates", zap.String("enrollment_id", installment.EnrollmentID), zap.Error(err))
		} else {
			result.CycleStartDate = dates.StartDate
			result.CycleEndDate = dates.EndDate
		}
		s.notifyPaymentConfirmed(ctx, installment.StudentID)
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &adminID,
			Action:     models.AuditActionPaymentApprove,
			Resource:   "installments",
			ResourceID: &installmentID,
			NewValues:  []byte(`{"status":"paid"}`),
		}); err != nil {
			s.logger.Warn("failed to record payment audit log", zap.Error(err))
		}
	}
	return result, nil
}

// notifyPaymentConfirmed tells the parent the plan is fully paid. Errors
// never fail the approval.
func (s *PaymentService) notifyPaymentConfirmed(ctx context.Context, studentID string) {
	if s.notifier == nil || s.students == nil {
		return
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to load student for payment notification", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	message := fmt.Sprintf("El pago de la matrícula de %s ha sido confirmado.", student.FullName())
	if err := s.notifier.NotifyParent(ctx, student, models.NotificationKindPayment, message); err != nil {
		s.logger.Warn("failed to queue payment notification", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *PaymentService) acceptEnrollment(ctx context.Context, enrollmentID, adminID string, acceptedAt time.Time) error {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.enrollments.UpdateStatus(ctx, enrollmentID, models.EnrollmentStatusAccepted, &adminID, &acceptedAt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept enrollment")
	}
	if enrollment.EnrollmentType == models.EnrollmentTypePackage && enrollment.PackageOfferingID != nil {
		if err := s.enrollments.CascadeAcceptPackageCourses(ctx, enrollment.StudentID, *enrollment.PackageOfferingID, acceptedAt); err != nil {
			s.logger.Warn("failed to cascade package acceptance",
				zap.String("enrollment_id", enrollmentID), zap.Error(err))
		}
	}
	return nil
}

// Reject refuses a voucher. The installment returns to overdue when its
// due date has passed, otherwise to pending; the voucher is cleared and the
// enrollment is marked rejected.
func (s *PaymentService) Reject(ctx context.Context, installmentID, adminID string, req RejectPaymentRequest) (*models.InstallmentDetail, error) {
	installment, err := s.repo.FindInstallment(ctx, installmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "installment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load installment")
	}
	if installment.Status == models.InstallmentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "paid installments cannot be rejected")
	}

	status := models.InstallmentStatusPending
	if installment.DueDate.Before(time.Now().UTC()) {
		status = models.InstallmentStatusOverdue
	}
	if err := s.repo.Reject(ctx, installmentID, status, req.Reason); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject installment")
	}
	if err := s.enrollments.UpdateStatus(ctx, installment.EnrollmentID, models.EnrollmentStatusRejected, nil, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark enrollment rejected")
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &adminID,
			Action:     models.AuditActionPaymentReject,
			Resource:   "installments",
			ResourceID: &installmentID,
			NewValues:  []byte(`{"status":"` + string(status) + `"}`),
		}); err != nil {
			s.logger.Warn("failed to record payment audit log", zap.Error(err))
		}
	}

	installment.Status = status
	installment.RejectionReason = req.Reason
	installment.VoucherURL = nil
	installment.PaidAt = nil
	return installment, nil
}

// ListAdmin sweeps overdue installments and returns the admin listing. The
// synthetic "rejected" filter selects installments whose enrollment was
// rejected; StatusUI exposes that state without a dedicated stored status.
func (s *PaymentService) ListAdmin(ctx context.Context, status string) ([]models.InstallmentAdminRow, error) {
	if _, err := s.repo.SweepOverdue(ctx, time.Now().UTC()); err != nil {
		s.logger.Warn("overdue sweep failed", zap.Error(err))
	}

	storedFilter := status
	if status == "rejected" {
		storedFilter = ""
	}
	rows, err := s.repo.ListAdmin(ctx, storedFilter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list installments")
	}
	for i := range rows {
		rows[i].StatusUI = string(rows[i].Status)
		if rows[i].EnrollmentStatus == models.EnrollmentStatusRejected && rows[i].Status != models.InstallmentStatusPaid {
			rows[i].StatusUI = "rejected"
		}
	}
	if status != "rejected" {
		return rows, nil
	}
	filtered := make([]models.InstallmentAdminRow, 0, len(rows))
	for _, row := range rows {
		if row.StatusUI == "rejected" {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}
