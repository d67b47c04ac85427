package models

import "time"

// NotificationKind classifies parent notifications.
type NotificationKind string

const (
	NotificationKindAbsences NotificationKind = "absences_3"
	NotificationKindPayment  NotificationKind = "payment"
	NotificationKindOther    NotificationKind = "other"
)

// NotificationStatus tracks delivery outcome.
type NotificationStatus string

const (
	NotificationStatusQueued NotificationStatus = "queued"
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// NotificationLog records one parent notification attempt.
type NotificationLog struct {
	ID        string             `db:"id" json:"id"`
	StudentID string             `db:"student_id" json:"student_id"`
	Phone     *string            `db:"phone" json:"phone,omitempty"`
	Message   string             `db:"message" json:"message"`
	Kind      NotificationKind   `db:"kind" json:"kind"`
	Status    NotificationStatus `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}
