package models

import "time"

// Instructor represents a member of teaching staff.
type Instructor struct {
	Person
	EmployeeID        string    `db:"employee_id" json:"employee_id"`
	Department        string    `db:"department" json:"department"`
	Title             string    `db:"title" json:"title,omitempty"`
	HireDate          time.Time `db:"hire_date" json:"hire_date"`
	Active            bool      `db:"active" json:"active"`
	AssignedCourseIDs []string  `db:"-" json:"assigned_course_ids"`
}

// Role reports the person role label.
func (i Instructor) Role() string { return RoleLabelInstructor }

// Clone returns a deep copy.
func (i Instructor) Clone() Instructor {
	i.DateOfBirth = cloneTime(i.DateOfBirth)
	i.AssignedCourseIDs = cloneStrings(i.AssignedCourseIDs)
	return i
}

// AssignCourse adds courseID to the assigned set when absent.
func (i *Instructor) AssignCourse(courseID string) {
	for _, id := range i.AssignedCourseIDs {
		if id == courseID {
			return
		}
	}
	i.AssignedCourseIDs = append(i.AssignedCourseIDs, courseID)
}

// UnassignCourse removes courseID from the assigned set.
func (i *Instructor) UnassignCourse(courseID string) {
	out := i.AssignedCourseIDs[:0]
	for _, id := range i.AssignedCourseIDs {
		if id != courseID {
			out = append(out, id)
		}
	}
	i.AssignedCourseIDs = out
}
