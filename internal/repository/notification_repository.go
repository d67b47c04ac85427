package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/marovi-edu/tuition-api/internal/models"
)

// NotificationRepository persists parent notification attempts.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create appends a notification log entry.
func (r *NotificationRepository) Create(ctx context.Context, entry *models.NotificationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications_log (id, student_id, phone, message, kind, status, created_at)
VALUES (:id, :student_id, :phone, :message, :kind, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

// UpdateStatus records the delivery outcome of an entry.
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id string, status models.NotificationStatus) error {
	const query = `UPDATE notifications_log SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	return nil
}

// ListByStudent returns the notification history of a student.
func (r *NotificationRepository) ListByStudent(ctx context.Context, studentID string) ([]models.NotificationLog, error) {
	const query = `SELECT id, student_id, phone, message, kind, status, created_at
FROM notifications_log WHERE student_id = $1 ORDER BY created_at DESC`
	var entries []models.NotificationLog
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list student notifications: %w", err)
	}
	return entries, nil
}
