package models

import "time"

// Student represents a learner admitted to the institution.
type Student struct {
	Person
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	Active             bool      `db:"active" json:"active"`
	EnrollmentDate     time.Time `db:"enrollment_date" json:"enrollment_date"`
	CurrentGPA         float64   `db:"current_gpa" json:"current_gpa"`
	// EnrolledCourseIDs mirrors the student's active enrollments.
	EnrolledCourseIDs []string `db:"-" json:"enrolled_course_ids"`
}

// Role reports the person role label.
func (s Student) Role() string { return RoleLabelStudent }

// Clone returns a deep copy safe to hand to another goroutine.
func (s Student) Clone() Student {
	s.DateOfBirth = cloneTime(s.DateOfBirth)
	s.EnrolledCourseIDs = cloneStrings(s.EnrolledCourseIDs)
	return s
}

// IsEnrolledIn reports whether the course is in the enrolled set.
func (s Student) IsEnrolledIn(courseID string) bool {
	for _, id := range s.EnrolledCourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// AddCourse appends courseID to the enrolled set when absent.
func (s *Student) AddCourse(courseID string) {
	if s.IsEnrolledIn(courseID) {
		return
	}
	s.EnrolledCourseIDs = append(s.EnrolledCourseIDs, courseID)
}

// RemoveCourse drops courseID from the enrolled set.
func (s *Student) RemoveCourse(courseID string) {
	out := s.EnrolledCourseIDs[:0]
	for _, id := range s.EnrolledCourseIDs {
		if id != courseID {
			out = append(out, id)
		}
	}
	s.EnrolledCourseIDs = out
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search string
	Active *bool
}
