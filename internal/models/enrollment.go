package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment. The Spanish
// values are part of the persisted schema and the SPA contract.
type EnrollmentStatus string

const (
	EnrollmentStatusPending   EnrollmentStatus = "pendiente"
	EnrollmentStatusAccepted  EnrollmentStatus = "aceptado"
	EnrollmentStatusRejected  EnrollmentStatus = "rechazado"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelado"
)

// Valid reports whether the status is a supported value.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusAccepted, EnrollmentStatusRejected, EnrollmentStatusCancelled:
		return true
	default:
		return false
	}
}

// EnrollmentType distinguishes single-course and package enrollments.
type EnrollmentType string

const (
	EnrollmentTypeCourse  EnrollmentType = "course"
	EnrollmentTypePackage EnrollmentType = "package"
)

// Enrollment registers a student to a course or package offering. Exactly
// one of CourseOfferingID/PackageOfferingID is set for the primary row;
// rows expanded from a package carry both (the course offering they grant
// access to plus the owning package offering).
type Enrollment struct {
	ID                string           `db:"id" json:"id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	CourseOfferingID  *string          `db:"course_offering_id" json:"course_offering_id,omitempty"`
	PackageOfferingID *string          `db:"package_offering_id" json:"package_offering_id,omitempty"`
	EnrollmentType    EnrollmentType   `db:"enrollment_type" json:"enrollment_type"`
	Status            EnrollmentStatus `db:"status" json:"status"`
	AcceptedByAdminID *string          `db:"accepted_by_admin_id" json:"accepted_by_admin_id,omitempty"`
	AcceptedAt        *time.Time       `db:"accepted_at" json:"accepted_at,omitempty"`
	RegisteredAt      time.Time        `db:"registered_at" json:"registered_at"`
}

// EnrollmentDetail enriches an enrollment with catalog and payment context
// for the student-facing listing.
type EnrollmentDetail struct {
	Enrollment
	ItemName          *string       `db:"item_name" json:"item_name,omitempty"`
	ItemPrice         *float64      `db:"item_price" json:"item_price,omitempty"`
	PaymentPlanID     *string       `db:"payment_plan_id" json:"payment_plan_id,omitempty"`
	TotalAmount       *float64      `db:"total_amount" json:"total_amount,omitempty"`
	TotalInstallments *int          `db:"total_installments" json:"total_installments,omitempty"`
	CycleName         *string       `db:"cycle_name" json:"cycle_name,omitempty"`
	CycleStartDate    *time.Time    `db:"cycle_start_date" json:"cycle_start_date,omitempty"`
	CycleEndDate      *time.Time    `db:"cycle_end_date" json:"cycle_end_date,omitempty"`
	Installments      []Installment `db:"-" json:"installments"`
}

// EnrollmentAdminRow is the admin listing row with student and first
// installment info.
type EnrollmentAdminRow struct {
	Enrollment
	FirstName         *string  `db:"first_name" json:"first_name,omitempty"`
	LastName          *string  `db:"last_name" json:"last_name,omitempty"`
	DNI               *string  `db:"dni" json:"dni,omitempty"`
	ItemName          *string  `db:"item_name" json:"item_name,omitempty"`
	PaymentPlanID     *string  `db:"payment_plan_id" json:"payment_plan_id,omitempty"`
	InstallmentID     *string  `db:"installment_id" json:"installment_id,omitempty"`
	InstallmentAmount *float64 `db:"installment_amount" json:"installment_amount,omitempty"`
	InstallmentStatus *string  `db:"installment_status" json:"installment_status,omitempty"`
	VoucherURL        *string  `db:"voucher_url" json:"voucher_url,omitempty"`
}

// RosterRow is one student on an offering roster, grouped per student.
type RosterRow struct {
	EnrollmentID   string           `db:"enrollment_id" json:"enrollment_id"`
	EnrollmentType EnrollmentType   `db:"enrollment_type" json:"enrollment_type"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	StudentID      string           `db:"student_id" json:"student_id"`
	FirstName      string           `db:"first_name" json:"first_name"`
	LastName       string           `db:"last_name" json:"last_name"`
	DNI            string           `db:"dni" json:"dni"`
	ItemName       *string          `db:"item_name" json:"item_name,omitempty"`
}

// CreatedEnrollment summarises one row produced by enrollment creation.
type CreatedEnrollment struct {
	EnrollmentID  string         `json:"enrollment_id"`
	Type          EnrollmentType `json:"type"`
	OfferingID    string         `json:"offering_id"`
	Amount        float64        `json:"amount,omitempty"`
	PaymentPlanID string         `json:"payment_plan_id,omitempty"`
	InstallmentID string         `json:"installment_id,omitempty"`
}
