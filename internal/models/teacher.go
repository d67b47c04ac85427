package models

// Teacher is an instructor assignable to course offerings.
type Teacher struct {
	ID             string  `db:"id" json:"id"`
	FirstName      string  `db:"first_name" json:"first_name"`
	LastName       string  `db:"last_name" json:"last_name"`
	DNI            string  `db:"dni" json:"dni"`
	Phone          *string `db:"phone" json:"phone,omitempty"`
	Email          *string `db:"email" json:"email,omitempty"`
	Specialization *string `db:"specialization" json:"specialization,omitempty"`
}

// DisplayName joins first and last name, kept for SPA compatibility.
func (t Teacher) DisplayName() string {
	return t.FirstName + " " + t.LastName
}
