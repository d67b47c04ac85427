package models

import "time"

// PaymentPlan owns the installments of exactly one enrollment.
type PaymentPlan struct {
	ID           string  `db:"id" json:"id"`
	EnrollmentID string  `db:"enrollment_id" json:"enrollment_id"`
	TotalAmount  float64 `db:"total_amount" json:"total_amount"`
	Installments int     `db:"installments" json:"installments"`
}

// InstallmentStatus represents the payment state of one installment.
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
)

// Installment is one payable slice of an enrollment's total price.
type Installment struct {
	ID                string            `db:"id" json:"id"`
	PaymentPlanID     string            `db:"payment_plan_id" json:"payment_plan_id"`
	InstallmentNumber int               `db:"installment_number" json:"installment_number"`
	Amount            float64           `db:"amount" json:"amount"`
	DueDate           time.Time         `db:"due_date" json:"due_date"`
	Status            InstallmentStatus `db:"status" json:"status"`
	VoucherURL        *string           `db:"voucher_url" json:"voucher_url,omitempty"`
	RejectionReason   *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	PaidAt            *time.Time        `db:"paid_at" json:"paid_at,omitempty"`
}

// InstallmentDetail resolves the ownership chain of an installment.
type InstallmentDetail struct {
	Installment
	EnrollmentID string `db:"enrollment_id" json:"enrollment_id"`
	StudentID    string `db:"student_id" json:"student_id"`
}

// InstallmentAdminRow is the admin payments listing row. StatusUI derives
// a synthetic "rejected" state from the owning enrollment.
type InstallmentAdminRow struct {
	Installment
	EnrollmentID     string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID        *string          `db:"student_id" json:"student_id,omitempty"`
	FirstName        *string          `db:"first_name" json:"first_name,omitempty"`
	LastName         *string          `db:"last_name" json:"last_name,omitempty"`
	DNI              *string          `db:"dni" json:"dni,omitempty"`
	ItemName         *string          `db:"item_name" json:"item_name,omitempty"`
	EnrollmentType   EnrollmentType   `db:"enrollment_type" json:"enrollment_type"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	StatusUI         string           `db:"-" json:"status_ui"`
}

// ApprovalResult is returned by installment approval for caller display.
type ApprovalResult struct {
	InstallmentID  string     `json:"installment_id"`
	EnrollmentID   string     `json:"enrollment_id"`
	FullyPaid      bool       `json:"fully_paid"`
	CycleStartDate *time.Time `json:"cycle_start_date,omitempty"`
	CycleEndDate   *time.Time `json:"cycle_end_date,omitempty"`
}
