package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

type offeringRepository interface {
	CreateCourseOffering(ctx context.Context, offering *models.CourseOffering) error
	ListCourseOfferings(ctx context.Context, cycleID string) ([]models.CourseOfferingDetail, error)
	FindCourseOffering(ctx context.Context, id string) (*models.CourseOfferingDetail, error)
	UpdateCourseOffering(ctx context.Context, offering *models.CourseOffering) error
	DeleteCourseOffering(ctx context.Context, id string) error
	CreatePackageOffering(ctx context.Context, offering *models.PackageOffering) error
	ListPackageOfferings(ctx context.Context, cycleID string) ([]models.PackageOfferingDetail, error)
	FindPackageOffering(ctx context.Context, id string) (*models.PackageOfferingDetail, error)
	UpdatePackageOffering(ctx context.Context, offering *models.PackageOffering) error
	DeletePackageOffering(ctx context.Context, id string) error
	AddPackageOfferingCourse(ctx context.Context, packageOfferingID, courseOfferingID string) (bool, error)
	RemovePackageOfferingCourse(ctx context.Context, packageOfferingID, courseOfferingID string) error
	BundledCourseOfferings(ctx context.Context, packageOfferingID string) ([]string, error)
}

// CourseOfferingRequest holds the payload for course offerings.
type CourseOfferingRequest struct {
	CourseID      string   `json:"course_id" validate:"required"`
	CycleID       string   `json:"cycle_id" validate:"required"`
	TeacherID     *string  `json:"teacher_id"`
	GroupLabel    *string  `json:"group_label"`
	Capacity      *int     `json:"capacity" validate:"omitempty,min=1"`
	PriceOverride *float64 `json:"price_override" validate:"omitempty,gte=0"`
}

// PackageOfferingRequest holds the payload for package offerings.
type PackageOfferingRequest struct {
	PackageID     string   `json:"package_id" validate:"required"`
	CycleID       string   `json:"cycle_id" validate:"required"`
	PriceOverride *float64 `json:"price_override" validate:"omitempty,gte=0"`
}

// MapOfferingCourseRequest maps a course offering into a package offering.
type MapOfferingCourseRequest struct {
	CourseOfferingID string `json:"course_offering_id" validate:"required"`
}

// OfferingService handles per-cycle catalog offerings and the mapping of
// course offerings into packages.
type OfferingService struct {
	repo      offeringRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOfferingService constructs the offering service.
func NewOfferingService(repo offeringRepository, validate *validator.Validate, logger *zap.Logger) *OfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{repo: repo, validator: validate, logger: logger}
}

// CreateCourseOffering schedules a course in a cycle.
func (s *OfferingService) CreateCourseOffering(ctx context.Context, req CourseOfferingRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course offering payload")
	}
	offering := &models.CourseOffering{
		CourseID:      req.CourseID,
		CycleID:       req.CycleID,
		TeacherID:     req.TeacherID,
		GroupLabel:    req.GroupLabel,
		Capacity:      req.Capacity,
		PriceOverride: req.PriceOverride,
	}
	if err := s.repo.CreateCourseOffering(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course offering")
	}
	return offering, nil
}

// ListCourseOfferings returns course offerings, optionally per cycle.
func (s *OfferingService) ListCourseOfferings(ctx context.Context, cycleID string) ([]models.CourseOfferingDetail, error) {
	offerings, err := s.repo.ListCourseOfferings(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course offerings")
	}
	return offerings, nil
}

// GetCourseOffering returns one course offering.
func (s *OfferingService) GetCourseOffering(ctx context.Context, id string) (*models.CourseOfferingDetail, error) {
	offering, err := s.repo.FindCourseOffering(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course offering")
	}
	return offering, nil
}

// UpdateCourseOffering replaces the mutable fields of a course offering.
func (s *OfferingService) UpdateCourseOffering(ctx context.Context, id string, req CourseOfferingRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course offering payload")
	}
	offering := &models.CourseOffering{
		ID:            id,
		CourseID:      req.CourseID,
		CycleID:       req.CycleID,
		TeacherID:     req.TeacherID,
		GroupLabel:    req.GroupLabel,
		Capacity:      req.Capacity,
		PriceOverride: req.PriceOverride,
	}
	if err := s.repo.UpdateCourseOffering(ctx, offering); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course offering")
	}
	return offering, nil
}

// DeleteCourseOffering removes a course offering.
func (s *OfferingService) DeleteCourseOffering(ctx context.Context, id string) error {
	if err := s.repo.DeleteCourseOffering(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course offering")
	}
	return nil
}

// CreatePackageOffering schedules a package in a cycle.
func (s *OfferingService) CreatePackageOffering(ctx context.Context, req PackageOfferingRequest) (*models.PackageOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid package offering payload")
	}
	offering := &models.PackageOffering{
		PackageID:     req.PackageID,
		CycleID:       req.CycleID,
		PriceOverride: req.PriceOverride,
	}
	if err := s.repo.CreatePackageOffering(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create package offering")
	}
	return offering, nil
}

// ListPackageOfferings returns package offerings, optionally per cycle.
func (s *OfferingService) ListPackageOfferings(ctx context.Context, cycleID string) ([]models.PackageOfferingDetail, error) {
	offerings, err := s.repo.ListPackageOfferings(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list package offerings")
	}
	return offerings, nil
}

// GetPackageOffering returns one package offering with its bundled course
// offering IDs.
func (s *OfferingService) GetPackageOffering(ctx context.Context, id string) (*models.PackageOfferingDetail, []string, error) {
	offering, err := s.repo.FindPackageOffering(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "package offering not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load package offering")
	}
	bundled, err := s.repo.BundledCourseOfferings(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load package offering courses")
	}
	return offering, bundled, nil
}

// UpdatePackageOffering replaces the mutable fields of a package offering.
func (s *OfferingService) UpdatePackageOffering(ctx context.Context, id string, req PackageOfferingRequest) (*models.PackageOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid package offering payload")
	}
	offering := &models.PackageOffering{
		ID:            id,
		PackageID:     req.PackageID,
		CycleID:       req.CycleID,
		PriceOverride: req.PriceOverride,
	}
	if err := s.repo.UpdatePackageOffering(ctx, offering); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "package offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update package offering")
	}
	return offering, nil
}

// DeletePackageOffering removes a package offering.
func (s *OfferingService) DeletePackageOffering(ctx context.Context, id string) error {
	if err := s.repo.DeletePackageOffering(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "package offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete package offering")
	}
	return nil
}

// MapCourse attaches a course offering to a package offering so coverage
// checks and expansion use the exact mapping.
func (s *OfferingService) MapCourse(ctx context.Context, packageOfferingID string, req MapOfferingCourseRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mapping payload")
	}
	inserted, err := s.repo.AddPackageOfferingCourse(ctx, packageOfferingID, req.CourseOfferingID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to map course offering")
	}
	if !inserted {
		return appErrors.Clone(appErrors.ErrValidation, "El curso ya está vinculado a la oferta del paquete")
	}
	return nil
}

// MappedCourses returns the course offering IDs bundled into a package
// offering.
func (s *OfferingService) MappedCourses(ctx context.Context, packageOfferingID string) ([]string, error) {
	ids, err := s.repo.BundledCourseOfferings(ctx, packageOfferingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list package offering courses")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// UnmapCourse detaches a course offering from a package offering.
func (s *OfferingService) UnmapCourse(ctx context.Context, packageOfferingID, courseOfferingID string) error {
	if err := s.repo.RemovePackageOfferingCourse(ctx, packageOfferingID, courseOfferingID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unmap course offering")
	}
	return nil
}
