package models

import "time"

// DateLayout is the calendar date format used across the interchange files and API.
const DateLayout = "2006-01-02"

// Role labels returned by the person types.
const (
	RoleLabelStudent    = "Student"
	RoleLabelInstructor = "Instructor"
)

// Person holds the identity fields shared by students and instructors.
type Person struct {
	ID          string     `db:"id" json:"id"`
	FullName    string     `db:"full_name" json:"full_name"`
	Email       string     `db:"email" json:"email"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	PhoneNumber string     `db:"phone_number" json:"phone_number,omitempty"`
}

// DateOf strips the clock from t, keeping the calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr returns a pointer to the calendar date of t.
func DatePtr(t time.Time) *time.Time {
	d := DateOf(t)
	return &d
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
