package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// StudentRepository handles student persistence.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO students (id, first_name, last_name, dni, phone, email, parent_name, parent_phone, created_at)
VALUES (:id, :first_name, :last_name, :dni, :phone, :email, :parent_name, :parent_phone, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// List returns students, optionally filtered by a name or DNI search term.
func (r *StudentRepository) List(ctx context.Context, search string) ([]models.Student, error) {
	query := `SELECT id, first_name, last_name, dni, phone, email, parent_name, parent_phone, created_at FROM students`
	args := []interface{}{}
	if search != "" {
		query += ` WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR dni ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY last_name, first_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID returns a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, first_name, last_name, dni, phone, email, parent_name, parent_phone, created_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByDNI returns a student by document number.
func (r *StudentRepository) FindByDNI(ctx context.Context, dni string) (*models.Student, error) {
	const query = `SELECT id, first_name, last_name, dni, phone, email, parent_name, parent_phone, created_at FROM students WHERE dni = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, dni); err != nil {
		return nil, err
	}
	return &student, nil
}

// Update replaces the mutable fields of a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, dni = :dni,
  phone = :phone, email = :email, parent_name = :parent_name, parent_phone = :parent_phone WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
