package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marovi-edu/tuition-api/internal/models"
	"github.com/marovi-edu/tuition-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, entry *models.NotificationLog) error
	UpdateStatus(ctx context.Context, id string, status models.NotificationStatus) error
	ListByStudent(ctx context.Context, studentID string) ([]models.NotificationLog, error)
}

// NotificationSender delivers a message to a phone number. The default
// sender only logs; a messaging gateway can be plugged in behind it.
type NotificationSender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender is the default delivery channel: it writes the message to the
// application log and reports success.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the outgoing message.
func (s *LogSender) Send(_ context.Context, phone, message string) error {
	s.logger.Info("parent notification", zap.String("phone", phone), zap.String("message", message))
	return nil
}

type notificationPayload struct {
	LogID   string
	Phone   string
	Message string
}

// NotificationService queues parent notifications for asynchronous
// delivery and records every attempt in the notifications log.
type NotificationService struct {
	repo    notificationRepository
	sender  NotificationSender
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService constructs the service with its worker queue.
func NewNotificationService(repo notificationRepository, sender NotificationSender, logger *zap.Logger, workers int, enabled bool) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	s := &NotificationService{repo: repo, sender: sender, logger: logger, enabled: enabled}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyParent records a notification for the student's parent and queues
// it for delivery. Missing parent phone numbers are recorded as failed and
// never block the caller.
func (s *NotificationService) NotifyParent(ctx context.Context, student *models.Student, kind models.NotificationKind, message string) error {
	if !s.enabled {
		return nil
	}
	entry := &models.NotificationLog{
		ID:        uuid.NewString(),
		StudentID: student.ID,
		Phone:     student.ParentPhone,
		Message:   message,
		Kind:      kind,
		Status:    models.NotificationStatusQueued,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	if student.ParentPhone == nil || *student.ParentPhone == "" {
		if err := s.repo.UpdateStatus(ctx, entry.ID, models.NotificationStatusFailed); err != nil {
			s.logger.Warn("failed to mark notification failed", zap.String("id", entry.ID), zap.Error(err))
		}
		return fmt.Errorf("student %s has no parent phone", student.ID)
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      entry.ID,
		Type:    string(kind),
		Payload: notificationPayload{LogID: entry.ID, Phone: *student.ParentPhone, Message: message},
	}); err != nil {
		if updateErr := s.repo.UpdateStatus(ctx, entry.ID, models.NotificationStatusFailed); updateErr != nil {
			s.logger.Warn("failed to mark notification failed", zap.String("id", entry.ID), zap.Error(updateErr))
		}
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// History returns the notification log of a student.
func (s *NotificationService) History(ctx context.Context, studentID string) ([]models.NotificationLog, error) {
	return s.repo.ListByStudent(ctx, studentID)
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	if err := s.sender.Send(ctx, payload.Phone, payload.Message); err != nil {
		if updateErr := s.repo.UpdateStatus(ctx, payload.LogID, models.NotificationStatusFailed); updateErr != nil {
			s.logger.Warn("failed to mark notification failed", zap.String("id", payload.LogID), zap.Error(updateErr))
		}
		return err
	}
	if err := s.repo.UpdateStatus(ctx, payload.LogID, models.NotificationStatusSent); err != nil {
		s.logger.Warn("failed to mark notification sent", zap.String("id", payload.LogID), zap.Error(err))
	}
	return nil
}
