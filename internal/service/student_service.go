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

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	List(ctx context.Context, search string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByDNI(ctx context.Context, dni string) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type accountProvisioner interface {
	UpsertByRelated(ctx context.Context, user *models.User) error
	DeleteByRelated(ctx context.Context, role models.UserRole, relatedID string) error
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	FirstName   string  `json:"first_name" validate:"required"`
	LastName    string  `json:"last_name" validate:"required"`
	DNI         string  `json:"dni" validate:"required"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email" validate:"omitempty,email"`
	ParentName  *string `json:"parent_name"`
	ParentPhone *string `json:"parent_phone"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	FirstName   string  `json:"first_name" validate:"required"`
	LastName    string  `json:"last_name" validate:"required"`
	DNI         string  `json:"dni" validate:"required"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email" validate:"omitempty,email"`
	ParentName  *string `json:"parent_name"`
	ParentPhone *string `json:"parent_phone"`
}

// StudentService handles student use-cases. Creating a student provisions
// a login account: the DNI doubles as username and initial password.
type StudentService struct {
	repo      studentRepository
	accounts  accountProvisioner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, accounts accountProvisioner, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, accounts: accounts, validator: validate, logger: logger}
}

// List returns students matching an optional search term.
func (s *StudentService) List(ctx context.Context, search string) ([]models.Student, error) {
	students, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student and provisions their account.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.repo.FindByDNI(ctx, req.DNI); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "dni already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate dni")
	}

	student := &models.Student{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DNI:         req.DNI,
		Phone:       req.Phone,
		Email:       req.Email,
		ParentName:  req.ParentName,
		ParentPhone: req.ParentPhone,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	if err := s.provisionAccount(ctx, student); err != nil {
		s.logger.Warn("failed to provision student account", zap.String("student_id", student.ID), zap.Error(err))
	}
	return student, nil
}

func (s *StudentService) provisionAccount(ctx context.Context, student *models.Student) error {
	if s.accounts == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(student.DNI), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.accounts.UpsertByRelated(ctx, &models.User{
		Username:     student.DNI,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		RelatedID:    &student.ID,
	})
}

// Update replaces a student's data.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		ID:          id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DNI:         req.DNI,
		Phone:       req.Phone,
		Email:       req.Email,
		ParentName:  req.ParentName,
		ParentPhone: req.ParentPhone,
	}
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student and their account.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if s.accounts != nil {
		if err := s.accounts.DeleteByRelated(ctx, models.RoleStudent, id); err != nil {
			s.logger.Warn("failed to delete student account", zap.String("student_id", id), zap.Error(err))
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
