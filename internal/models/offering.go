package models

// CourseOffering schedules a course within a cycle with an optional
// price override, assigned teacher and group label.
type CourseOffering struct {
	ID            string   `db:"id" json:"id"`
	CourseID      string   `db:"course_id" json:"course_id"`
	CycleID       string   `db:"cycle_id" json:"cycle_id"`
	TeacherID     *string  `db:"teacher_id" json:"teacher_id,omitempty"`
	GroupLabel    *string  `db:"group_label" json:"group_label,omitempty"`
	Capacity      *int     `db:"capacity" json:"capacity,omitempty"`
	PriceOverride *float64 `db:"price_override" json:"price_override,omitempty"`
}

// CourseOfferingDetail joins catalog names onto a course offering.
type CourseOfferingDetail struct {
	CourseOffering
	CourseName string  `db:"course_name" json:"course_name"`
	CycleName  string  `db:"cycle_name" json:"cycle_name"`
	BasePrice  float64 `db:"base_price" json:"base_price"`
}

// PackageOffering schedules a package within a cycle.
type PackageOffering struct {
	ID            string   `db:"id" json:"id"`
	PackageID     string   `db:"package_id" json:"package_id"`
	CycleID       string   `db:"cycle_id" json:"cycle_id"`
	PriceOverride *float64 `db:"price_override" json:"price_override,omitempty"`
}

// PackageOfferingDetail joins catalog names onto a package offering.
type PackageOfferingDetail struct {
	PackageOffering
	PackageName string  `db:"package_name" json:"package_name"`
	CycleName   string  `db:"cycle_name" json:"cycle_name"`
	BasePrice   float64 `db:"base_price" json:"base_price"`
}

// OfferingContext is the minimal catalog context resolved while validating
// an enrollment item.
type OfferingContext struct {
	ItemID  string `db:"item_id"`
	CycleID string `db:"cycle_id"`
}
