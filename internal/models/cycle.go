package models

import "time"

// CycleStatus represents the lifecycle of an academic cycle.
type CycleStatus string

const (
	CycleStatusOpen       CycleStatus = "open"
	CycleStatusInProgress CycleStatus = "in_progress"
	CycleStatusClosed     CycleStatus = "closed"
)

// Cycle is an academic period during which offerings run.
type Cycle struct {
	ID             string      `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	StartDate      *time.Time  `db:"start_date" json:"start_date,omitempty"`
	EndDate        *time.Time  `db:"end_date" json:"end_date,omitempty"`
	DurationMonths *int        `db:"duration_months" json:"duration_months,omitempty"`
	Status         CycleStatus `db:"status" json:"status"`
}

// CycleDates carries the start/end dates returned alongside payment approval.
type CycleDates struct {
	StartDate *time.Time `db:"start_date" json:"cycle_start_date"`
	EndDate   *time.Time `db:"end_date" json:"cycle_end_date"`
}
