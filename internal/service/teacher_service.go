package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/marovi-edu/tuition-api/internal/models"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
)

type teacherRepository interface {
	Create(ctx context.Context, teacher *models.Teacher) error
	List(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
	Schedules(ctx context.Context, teacherID string) ([]models.ScheduleDetail, error)
	Students(ctx context.Context, teacherID string) ([]models.Student, error)
}

// TeacherRequest holds the payload for creating and updating teachers.
type TeacherRequest struct {
	FirstName      string  `json:"first_name" validate:"required"`
	LastName       string  `json:"last_name" validate:"required"`
	DNI            string  `json:"dni" validate:"required"`
	Phone          *string `json:"phone"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Specialization *string `json:"specialization"`
}

// TeacherService handles teacher use-cases, provisioning login accounts
// the same way students get theirs.
type TeacherService struct {
	repo      teacherRepository
	accounts  accountProvisioner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(repo teacherRepository, accounts accountProvisioner, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, accounts: accounts, validator: validate, logger: logger}
}

// List returns all teachers.
func (s *TeacherService) List(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// Get returns one teacher.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a teacher and provisions their account.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DNI:            req.DNI,
		Phone:          req.Phone,
		Email:          req.Email,
		Specialization: req.Specialization,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	if s.accounts != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(teacher.DNI), bcrypt.DefaultCost)
		if err == nil {
			err = s.accounts.UpsertByRelated(ctx, &models.User{
				Username:     teacher.DNI,
				PasswordHash: string(hash),
				Role:         models.RoleTeacher,
				RelatedID:    &teacher.ID,
			})
		}
		if err != nil {
			s.logger.Warn("failed to provision teacher account", zap.String("teacher_id", teacher.ID), zap.Error(err))
		}
	}
	return teacher, nil
}

// Update replaces a teacher's data.
func (s *TeacherService) Update(ctx context.Context, id string, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		ID:             id,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DNI:            req.DNI,
		Phone:          req.Phone,
		Email:          req.Email,
		Specialization: req.Specialization,
	}
	if err := s.repo.Update(ctx, teacher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher and their account.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if s.accounts != nil {
		if err := s.accounts.DeleteByRelated(ctx, models.RoleTeacher, id); err != nil {
			s.logger.Warn("failed to delete teacher account", zap.String("teacher_id", id), zap.Error(err))
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}

// Schedules returns the weekly slots assigned to a teacher.
func (s *TeacherService) Schedules(ctx context.Context, teacherID string) ([]models.ScheduleDetail, error) {
	schedules, err := s.repo.Schedules(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher schedules")
	}
	return schedules, nil
}

// Students returns the distinct roster across the teacher's offerings.
func (s *TeacherService) Students(ctx context.Context, teacherID string) ([]models.Student, error) {
	students, err := s.repo.Students(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher students")
	}
	return students, nil
}

// ResetPassword sets the teacher's login password back to their DNI,
// recreating the account when it is missing.
func (s *TeacherService) ResetPassword(ctx context.Context, id string) error {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if s.accounts == nil {
		return appErrors.Clone(appErrors.ErrInternal, "account provisioning is not configured")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(teacher.DNI), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.accounts.UpsertByRelated(ctx, &models.User{
		Username:     teacher.DNI,
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		RelatedID:    &teacher.ID,
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset teacher password")
	}
	return nil
}
