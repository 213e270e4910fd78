package models

import "time"

// Enrollment links a student to a course. Student and course are referenced by id only.
type Enrollment struct {
	ID             string      `db:"id" json:"id"`
	StudentID      string      `db:"student_id" json:"student_id"`
	CourseID       string      `db:"course_id" json:"course_id"`
	EnrollmentDate time.Time   `db:"enrollment_date" json:"enrollment_date"`
	CompletionDate *time.Time  `db:"completion_date" json:"completion_date,omitempty"`
	NumericGrade   float64     `db:"numeric_grade" json:"numeric_grade"`
	LetterGrade    LetterGrade `db:"letter_grade" json:"letter_grade,omitempty"`
	Completed      bool        `db:"completed" json:"completed"`
	Active         bool        `db:"active" json:"active"`
}

// Clone returns a deep copy.
func (e Enrollment) Clone() Enrollment {
	e.CompletionDate = cloneTime(e.CompletionDate)
	return e
}

// EnrollmentFilter narrows a student's enrollment listing.
type EnrollmentFilter struct {
	Active    *bool
	Completed *bool
}

// Matches reports whether e satisfies the filter.
func (f EnrollmentFilter) Matches(e Enrollment) bool {
	if f.Active != nil && e.Active != *f.Active {
		return false
	}
	if f.Completed != nil && e.Completed != *f.Completed {
		return false
	}
	return true
}
