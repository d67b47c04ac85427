package models

import "time"

// Student is a person enrolled (or enrollable) at the institute. Parent
// contact data backs the absence and payment notifications.
type Student struct {
	ID          string    `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	DNI         string    `db:"dni" json:"dni"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	Email       *string   `db:"email" json:"email,omitempty"`
	ParentName  *string   `db:"parent_name" json:"parent_name,omitempty"`
	ParentPhone *string   `db:"parent_phone" json:"parent_phone,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FullName joins first and last name for display purposes.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
