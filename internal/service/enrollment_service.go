package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

type enrollmentRepository interface {
	ExistsNonCancelled(ctx context.Context, studentID, offeringID string, typ models.EnrollmentType) (bool, error)
	PackageCoversCourse(ctx context.Context, studentID, courseOfferingID string) (bool, error)
	PackageCoversCourseFallback(ctx context.Context, studentID, courseOfferingID string) (bool, error)
	CourseConflictsWithPackage(ctx context.Context, studentID, packageOfferingID string) (bool, error)
	CourseConflictsWithPackageFallback(ctx context.Context, studentID, cycleID, packageID string) (bool, error)
	CreateWithPlan(ctx context.Context, enrollment *models.Enrollment, amount float64, dueDate time.Time) (string, string, error)
	CreateExpansion(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListAdmin(ctx context.Context) ([]models.EnrollmentAdminRow, error)
	ListByOffering(ctx context.Context, typ models.EnrollmentType, offeringID string, status models.EnrollmentStatus) ([]models.RosterRow, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, adminID *string, acceptedAt *time.Time) error
	UnpaidInstallments(ctx context.Context, enrollmentID string) (bool, int, error)
	HasPaidOrVoucherInstallments(ctx context.Context, enrollmentID string) (bool, error)
}

type enrollmentOfferingReader interface {
	CourseOfferingContext(ctx context.Context, id string) (*models.OfferingContext, error)
	PackageOfferingContext(ctx context.Context, id string) (*models.OfferingContext, error)
	CourseOfferingPrice(ctx context.Context, id string) (float64, error)
	PackageOfferingPrice(ctx context.Context, id string) (float64, error)
	BundledCourseOfferings(ctx context.Context, packageOfferingID string) ([]string, error)
	FallbackCourseOfferings(ctx context.Context, packageOfferingID string) ([]string, error)
}

type overdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
}

type enrollmentAuditWriter interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// EnrollmentItem is one course or package the student asks to enroll in.
type EnrollmentItem struct {
	Type models.EnrollmentType `json:"type" validate:"required,oneof=course package"`
	ID   string                `json:"id" validate:"required"`
}

// CreateEnrollmentRequest holds the payload for student enrollment.
type CreateEnrollmentRequest struct {
	Items []EnrollmentItem `json:"items" validate:"required,min=1,dive"`
}

// UpdateEnrollmentStatusRequest holds the admin status transition payload.
type UpdateEnrollmentStatusRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required"`
}

// EnrollmentService implements the enrollment workflow: conflict checks,
// creation with a payment plan, package expansion, listings and status
// transitions.
type EnrollmentService struct {
	repo      enrollmentRepository
	offerings enrollmentOfferingReader
	sweeper   overdueSweeper
	audit     enrollmentAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
	dueDays   int
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, offerings enrollmentOfferingReader, sweeper overdueSweeper, audit enrollmentAuditWriter, validate *validator.Validate, logger *zap.Logger, dueDays int) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dueDays <= 0 {
		dueDays = 7
	}
	return &EnrollmentService{repo: repo, offerings: offerings, sweeper: sweeper, audit: audit, validator: validate, logger: logger, dueDays: dueDays}
}

// Create enrolls a student in every requested item. Each item passes the
// duplicate and package-coverage checks before anything is written; a
// single violation rejects the whole request.
func (s *EnrollmentService) Create(ctx context.Context, studentID string, req CreateEnrollmentRequest) ([]models.CreatedEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	created := make([]models.CreatedEnrollment, 0, len(req.Items))
	dueDate := time.Now().UTC().AddDate(0, 0, s.dueDays)
	for _, item := range req.Items {
		switch item.Type {
		case models.EnrollmentTypeCourse:
			result, err := s.enrollCourse(ctx, studentID, item.ID, dueDate)
			if err != nil {
				return nil, err
			}
			created = append(created, *result)
		case models.EnrollmentTypePackage:
			result, err := s.enrollPackage(ctx, studentID, item.ID, dueDate)
			if err != nil {
				return nil, err
			}
			created = append(created, *result)
		}
	}
	return created, nil
}

func (s *EnrollmentService) enrollCourse(ctx context.Context, studentID, offeringID string, dueDate time.Time) (*models.CreatedEnrollment, error) {
	if _, err := s.offerings.CourseOfferingContext(ctx, offeringID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCourseOfferingNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course offering")
	}

	duplicate, err := s.repo.ExistsNonCancelled(ctx, studentID, offeringID, models.EnrollmentTypeCourse)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicate enrollment")
	}
	if duplicate {
		return nil, appErrors.ErrDuplicateCourseEnrollment
	}

	covered, err := s.repo.PackageCoversCourse(ctx, studentID, offeringID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check package coverage")
	}
	if !covered {
		covered, err = s.repo.PackageCoversCourseFallback(ctx, studentID, offeringID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check package coverage")
		}
	}
	if covered {
		return nil, appErrors.ErrPackageCoversCourse
	}

	price, err := s.offerings.CourseOfferingPrice(ctx, offeringID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course price")
	}

	enrollment := &models.Enrollment{
		StudentID:        studentID,
		CourseOfferingID: &offeringID,
		EnrollmentType:   models.EnrollmentTypeCourse,
	}
	planID, installmentID, err := s.repo.CreateWithPlan(ctx, enrollment, price, dueDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return &models.CreatedEnrollment{
		EnrollmentID:  enrollment.ID,
		Type:          models.EnrollmentTypeCourse,
		OfferingID:    offeringID,
		Amount:        price,
		PaymentPlanID: planID,
		InstallmentID: installmentID,
	}, nil
}

func (s *EnrollmentService) enrollPackage(ctx context.Context, studentID, offeringID string, dueDate time.Time) (*models.CreatedEnrollment, error) {
	offeringCtx, err := s.offerings.PackageOfferingContext(ctx, offeringID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrPackageOfferingNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve package offering")
	}

	duplicate, err := s.repo.ExistsNonCancelled(ctx, studentID, offeringID, models.EnrollmentTypePackage)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicate enrollment")
	}
	if duplicate {
		return nil, appErrors.ErrDuplicatePackageEnrollment
	}

	conflict, err := s.repo.CourseConflictsWithPackage(ctx, studentID, offeringID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course conflict")
	}
	if !conflict {
		conflict, err = s.repo.CourseConflictsWithPackageFallback(ctx, studentID, offeringCtx.CycleID, offeringCtx.ItemID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course conflict")
		}
	}
	if conflict {
		return nil, appErrors.ErrCourseInsidePackage
	}

	price, err := s.offerings.PackageOfferingPrice(ctx, offeringID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve package price")
	}

	enrollment := &models.Enrollment{
		StudentID:         studentID,
		PackageOfferingID: &offeringID,
		EnrollmentType:    models.EnrollmentTypePackage,
	}
	planID, installmentID, err := s.repo.CreateWithPlan(ctx, enrollment, price, dueDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if err := s.expandPackage(ctx, studentID, offeringID); err != nil {
		s.logger.Warn("package expansion incomplete",
			zap.String("student_id", studentID),
			zap.String("package_offering_id", offeringID),
			zap.Error(err))
	}

	return &models.CreatedEnrollment{
		EnrollmentID:  enrollment.ID,
		Type:          models.EnrollmentTypePackage,
		OfferingID:    offeringID,
		Amount:        price,
		PaymentPlanID: planID,
		InstallmentID: installmentID,
	}, nil
}

// expandPackage materialises per-course enrollment rows for a package so
// rosters and attendance see the student on each bundled course. Expansion
// rows carry the owning package offering and have no payment plan.
func (s *EnrollmentService) expandPackage(ctx context.Context, studentID, packageOfferingID string) error {
	courseOfferingIDs, err := s.offerings.BundledCourseOfferings(ctx, packageOfferingID)
	if err != nil {
		return err
	}
	if len(courseOfferingIDs) == 0 {
		courseOfferingIDs, err = s.offerings.FallbackCourseOfferings(ctx, packageOfferingID)
		if err != nil {
			return err
		}
	}
	var firstErr error
	for _, courseOfferingID := range courseOfferingIDs {
		exists, err := s.repo.ExistsNonCancelled(ctx, studentID, courseOfferingID, models.EnrollmentTypeCourse)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if exists {
			continue
		}
		id := courseOfferingID
		expansion := &models.Enrollment{
			StudentID:         studentID,
			CourseOfferingID:  &id,
			PackageOfferingID: &packageOfferingID,
			EnrollmentType:    models.EnrollmentTypeCourse,
		}
		if err := s.repo.CreateExpansion(ctx, expansion); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListMine returns the student's enrollments with installments, sweeping
// overdue installments first so the listing reflects current state.
func (s *EnrollmentService) ListMine(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	if s.sweeper != nil {
		if _, err := s.sweeper.SweepOverdue(ctx, time.Now().UTC()); err != nil {
			s.logger.Warn("overdue sweep failed", zap.Error(err))
		}
	}
	details, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return details, nil
}

// ListAdmin returns all enrollments for administration, optionally filtered
// by status.
func (s *EnrollmentService) ListAdmin(ctx context.Context, status string) ([]models.EnrollmentAdminRow, error) {
	rows, err := s.repo.ListAdmin(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if status == "" {
		return rows, nil
	}
	filtered := make([]models.EnrollmentAdminRow, 0, len(rows))
	for _, row := range rows {
		if string(row.Status) == status {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

// Roster returns the accepted students of an offering.
func (s *EnrollmentService) Roster(ctx context.Context, typ models.EnrollmentType, offeringID string) ([]models.RosterRow, error) {
	if typ != models.EnrollmentTypeCourse && typ != models.EnrollmentTypePackage {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment type")
	}
	rows, err := s.repo.ListByOffering(ctx, typ, offeringID, models.EnrollmentStatusAccepted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return rows, nil
}

// UpdateStatus applies an admin transition to an enrollment and records it
// in the audit trail.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, enrollmentID, adminID string, req UpdateEnrollmentStatusRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	switch req.Status {
	case models.EnrollmentStatusAccepted, models.EnrollmentStatusRejected, models.EnrollmentStatusCancelled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment status")
	}
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	var acceptedBy *string
	var acceptedAt *time.Time
	if req.Status == models.EnrollmentStatusAccepted {
		hasPlan, unpaid, err := s.repo.UnpaidInstallments(ctx, enrollmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check payment plan")
		}
		if !hasPlan {
			return nil, appErrors.Clone(appErrors.ErrValidation, "La matrícula no tiene un plan de pagos")
		}
		if unpaid > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "La matrícula tiene cuotas pendientes de pago")
		}
		now := time.Now().UTC()
		acceptedBy = &adminID
		acceptedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, enrollmentID, req.Status, acceptedBy, acceptedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &adminID,
			Action:     models.AuditActionEnrollmentStatus,
			Resource:   "enrollments",
			ResourceID: &enrollmentID,
			NewValues:  []byte(`{"status":"` + string(req.Status) + `"}`),
		}); err != nil {
			s.logger.Warn("failed to record enrollment audit log", zap.Error(err))
		}
	}

	enrollment.Status = req.Status
	enrollment.AcceptedByAdminID = acceptedBy
	enrollment.AcceptedAt = acceptedAt
	return enrollment, nil
}

// Cancel lets a student withdraw their own pending enrollment. Enrollments
// with a paid installment or a voucher under review cannot be cancelled.
func (s *EnrollmentService) Cancel(ctx context.Context, enrollmentID, studentID string) error {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}
	if enrollment.Status != models.EnrollmentStatusPending {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "only pending enrollments can be cancelled")
	}
	locked, err := s.repo.HasPaidOrVoucherInstallments(ctx, enrollmentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check installments")
	}
	if locked {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment has payments in progress")
	}
	if err := s.repo.UpdateStatus(ctx, enrollmentID, models.EnrollmentStatusCancelled, nil, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}
	return nil
}
