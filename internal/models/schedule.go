package models

// Schedule is a weekly session slot of a course offering.
type Schedule struct {
	ID               string  `db:"id" json:"id"`
	CourseOfferingID string  `db:"course_offering_id" json:"course_offering_id"`
	DayOfWeek        int     `db:"day_of_week" json:"day_of_week"`
	StartTime        string  `db:"start_time" json:"start_time"`
	EndTime          string  `db:"end_time" json:"end_time"`
	Classroom        *string `db:"classroom" json:"classroom,omitempty"`
}

// ScheduleDetail joins course/cycle/teacher context onto a schedule slot.
type ScheduleDetail struct {
	Schedule
	CourseID         string  `db:"course_id" json:"course_id"`
	CourseName       string  `db:"course_name" json:"course_name"`
	CycleName        string  `db:"cycle_name" json:"cycle_name"`
	GroupLabel       *string `db:"group_label" json:"group_label,omitempty"`
	TeacherFirstName *string `db:"teacher_first_name" json:"teacher_first_name,omitempty"`
	TeacherLastName  *string `db:"teacher_last_name" json:"teacher_last_name,omitempty"`
}
