package models

import "time"

// AttendanceStatus represents a per-session attendance mark.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "presente"
	AttendanceStatusAbsent  AttendanceStatus = "ausente"
	AttendanceStatusLate    AttendanceStatus = "tardanza"
)

// Valid reports whether the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// Attendance is one per-day mark of a student on a schedule slot.
type Attendance struct {
	ID         string           `db:"id" json:"id"`
	ScheduleID string           `db:"schedule_id" json:"schedule_id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
}
