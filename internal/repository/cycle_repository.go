package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// CycleRepository handles academic cycle persistence.
type CycleRepository struct {
	db *sqlx.DB
}

// NewCycleRepository constructs the repository.
func NewCycleRepository(db *sqlx.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// Create inserts a cycle.
func (r *CycleRepository) Create(ctx context.Context, cycle *models.Cycle) error {
	if cycle.ID == "" {
		cycle.ID = uuid.NewString()
	}
	if cycle.Status == "" {
		cycle.Status = models.CycleStatusOpen
	}
	const query = `INSERT INTO cycles (id, name, start_date, end_date, duration_months, status)
VALUES (:id, :name, :start_date, :end_date, :duration_months, :status)`
	if _, err := r.db.NamedExecContext(ctx, query, cycle); err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

// List returns all cycles, newest start date first.
func (r *CycleRepository) List(ctx context.Context) ([]models.Cycle, error) {
	const query = `SELECT id, name, start_date, end_date, duration_months, status FROM cycles ORDER BY start_date DESC NULLS LAST, name`
	var cycles []models.Cycle
	if err := r.db.SelectContext(ctx, &cycles, query); err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	return cycles, nil
}

// ListActive returns cycles accepting enrollments, newest first.
func (r *CycleRepository) ListActive(ctx context.Context) ([]models.Cycle, error) {
	const query = `SELECT id, name, start_date, end_date, duration_months, status FROM cycles
WHERE status IN ($1, $2) ORDER BY start_date DESC NULLS LAST, name`
	var cycles []models.Cycle
	if err := r.db.SelectContext(ctx, &cycles, query, models.CycleStatusOpen, models.CycleStatusInProgress); err != nil {
		return nil, fmt.Errorf("list active cycles: %w", err)
	}
	return cycles, nil
}

// FindByID returns a cycle by ID.
func (r *CycleRepository) FindByID(ctx context.Context, id string) (*models.Cycle, error) {
	const query = `SELECT id, name, start_date, end_date, duration_months, status FROM cycles WHERE id = $1`
	var cycle models.Cycle
	if err := r.db.GetContext(ctx, &cycle, query, id); err != nil {
		return nil, err
	}
	return &cycle, nil
}

// Update replaces the mutable fields of a cycle.
func (r *CycleRepository) Update(ctx context.Context, cycle *models.Cycle) error {
	const query = `UPDATE cycles SET name = :name, start_date = :start_date, end_date = :end_date,
  duration_months = :duration_months, status = :status WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, cycle)
	if err != nil {
		return fmt.Errorf("update cycle: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cycle: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a cycle.
func (r *CycleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cycles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cycle: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cycle: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
