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

type packageRepository interface {
	Create(ctx context.Context, pkg *models.Package, courseIDs []string) error
	List(ctx context.Context) ([]models.PackageDetail, error)
	FindByID(ctx context.Context, id string) (*models.PackageDetail, error)
	CourseIDs(ctx context.Context, packageID string) ([]string, error)
	AddCourse(ctx context.Context, packageID, courseID string) (bool, error)
	RemoveCourse(ctx context.Context, packageID, courseID string) error
	Update(ctx context.Context, pkg *models.Package, courseIDs []string) error
	Delete(ctx context.Context, id string) error
}

// PackageCourseRequest links one course to a package.
type PackageCourseRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// PackageRequest holds the payload for creating and updating packages.
type PackageRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description *string  `json:"description"`
	BasePrice   float64  `json:"base_price" validate:"gte=0"`
	CourseIDs   []string `json:"course_ids" validate:"omitempty,min=1,dive,required"`
}

// PackageService handles catalog package use-cases.
type PackageService struct {
	repo      packageRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPackageService constructs the package service.
func NewPackageService(repo packageRepository, validate *validator.Validate, logger *zap.Logger) *PackageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PackageService{repo: repo, validator: validate, logger: logger}
}

// List returns all packages with aggregated course names.
func (s *PackageService) List(ctx context.Context) ([]models.PackageDetail, error) {
	packages, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list packages")
	}
	return packages, nil
}

// Get returns one package.
func (s *PackageService) Get(ctx context.Context, id string) (*models.PackageDetail, error) {
	pkg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "package not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load package")
	}
	return pkg, nil
}

// Create registers a package with its course membership.
func (s *PackageService) Create(ctx context.Context, req PackageRequest) (*models.Package, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid package payload")
	}
	pkg := &models.Package{
		Name:        req.Name,
		Description: req.Description,
		BasePrice:   req.BasePrice,
	}
	if err := s.repo.Create(ctx, pkg, req.CourseIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create package")
	}
	return pkg, nil
}

// Update replaces a package's data. A nil CourseIDs keeps the current
// membership.
func (s *PackageService) Update(ctx context.Context, id string, req PackageRequest) (*models.Package, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid package payload")
	}
	pkg := &models.Package{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		BasePrice:   req.BasePrice,
	}
	if err := s.repo.Update(ctx, pkg, req.CourseIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "package not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update package")
	}
	return pkg, nil
}

// Delete removes a package.
// AddCourse links a course to the package membership.
func (s *PackageService) AddCourse(ctx context.Context, packageID string, req PackageCourseRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	inserted, err := s.repo.AddCourse(ctx, packageID, req.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add course to package")
	}
	if !inserted {
		return appErrors.Clone(appErrors.ErrValidation, "El curso ya pertenece al paquete")
	}
	return nil
}

// RemoveCourse unlinks a course from the package membership.
func (s *PackageService) RemoveCourse(ctx context.Context, packageID, courseID string) error {
	if err := s.repo.RemoveCourse(ctx, packageID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course is not part of the package")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course from package")
	}
	return nil
}

func (s *PackageService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "package not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete package")
	}
	return nil
}
