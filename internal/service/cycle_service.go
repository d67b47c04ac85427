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

type cycleRepository interface {
	Create(ctx context.Context, cycle *models.Cycle) error
	List(ctx context.Context) ([]models.Cycle, error)
	ListActive(ctx context.Context) ([]models.Cycle, error)
	FindByID(ctx context.Context, id string) (*models.Cycle, error)
	Update(ctx context.Context, cycle *models.Cycle) error
	Delete(ctx context.Context, id string) error
}

// CycleRequest holds the payload for creating and updating cycles.
type CycleRequest struct {
	Name           string     `json:"name" validate:"required"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	DurationMonths *int       `json:"duration_months" validate:"omitempty,min=1"`
	Status         string     `json:"status" validate:"omitempty,oneof=open in_progress closed"`
}

// CycleService handles academic cycle use-cases.
type CycleService struct {
	repo      cycleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCycleService constructs the cycle service.
func NewCycleService(repo cycleRepository, validate *validator.Validate, logger *zap.Logger) *CycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CycleService{repo: repo, validator: validate, logger: logger}
}

// List returns all cycles.
func (s *CycleService) List(ctx context.Context) ([]models.Cycle, error) {
	cycles, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cycles")
	}
	return cycles, nil
}

// Active returns cycles whose status is open or in progress.
func (s *CycleService) Active(ctx context.Context) ([]models.Cycle, error) {
	cycles, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active cycles")
	}
	return cycles, nil
}

// Get returns one cycle.
func (s *CycleService) Get(ctx context.Context, id string) (*models.Cycle, error) {
	cycle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}
	return cycle, nil
}

// Create registers a cycle.
func (s *CycleService) Create(ctx context.Context, req CycleRequest) (*models.Cycle, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cycle payload")
	}
	if err := validateCycleDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	cycle := &models.Cycle{
		Name:           req.Name,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		DurationMonths: req.DurationMonths,
		Status:         models.CycleStatus(req.Status),
	}
	if err := s.repo.Create(ctx, cycle); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cycle")
	}
	return cycle, nil
}

// Update replaces a cycle's data.
func (s *CycleService) Update(ctx context.Context, id string, req CycleRequest) (*models.Cycle, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cycle payload")
	}
	if err := validateCycleDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	status := models.CycleStatus(req.Status)
	if req.Status == "" {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		status = current.Status
	}
	cycle := &models.Cycle{
		ID:             id,
		Name:           req.Name,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		DurationMonths: req.DurationMonths,
		Status:         status,
	}
	if err := s.repo.Update(ctx, cycle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update cycle")
	}
	return cycle, nil
}

// Delete removes a cycle.
func (s *CycleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete cycle")
	}
	return nil
}

func validateCycleDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}
	return nil
}
