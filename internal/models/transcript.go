package models

import (
	"fmt"
	"strings"
	"time"
)

// TranscriptOptions toggles transcript sections.
type TranscriptOptions struct {
	IncludeInactive bool `form:"include_inactive" json:"include_inactive"`
	IncludeGPA      bool `form:"include_gpa" json:"include_gpa"`
	IncludeSummary  bool `form:"include_summary" json:"include_summary"`
}

// DefaultTranscriptOptions hides withdrawn courses and shows GPA and summary.
func DefaultTranscriptOptions() TranscriptOptions {
	return TranscriptOptions{IncludeGPA: true, IncludeSummary: true}
}

// TranscriptSummary counts enrollments shown on a transcript.
type TranscriptSummary struct {
	TotalCourses      int `json:"total_courses"`
	CompletedCourses  int `json:"completed_courses"`
	ActiveEnrollments int `json:"active_enrollments"`
}

// TranscriptLine is one course record on a transcript.
type TranscriptLine struct {
	EnrollmentID   string      `json:"enrollment_id"`
	CourseCode     string      `json:"course_code"`
	CourseTitle    string      `json:"course_title"`
	CreditHours    int         `json:"credit_hours"`
	LetterGrade    LetterGrade `json:"letter_grade,omitempty"`
	NumericGrade   float64     `json:"numeric_grade"`
	Completed      bool        `json:"completed"`
	Active         bool        `json:"active"`
	EnrollmentDate time.Time   `json:"enrollment_date"`
}

// Status is the printable progress of the line.
func (l TranscriptLine) Status() string {
	switch {
	case l.Completed:
		return "Completed"
	case !l.Active:
		return "Withdrawn"
	default:
		return "In Progress"
	}
}

// Transcript is an academic record for one student.
type Transcript struct {
	StudentID          string             `json:"student_id"`
	FullName           string             `json:"full_name"`
	RegistrationNumber string             `json:"registration_number"`
	Email              string             `json:"email"`
	EnrollmentDate     time.Time          `json:"enrollment_date"`
	Summary            *TranscriptSummary `json:"summary,omitempty"`
	Lines              []TranscriptLine   `json:"lines"`
	GPA                *float64           `json:"gpa,omitempty"`
	GeneratedAt        time.Time          `json:"generated_at"`
}

// TranscriptFormat selects a transcript rendering.
type TranscriptFormat string

// Supported transcript renderings.
const (
	TranscriptFormatJSON TranscriptFormat = "json"
	TranscriptFormatCSV  TranscriptFormat = "csv"
	TranscriptFormatPDF  TranscriptFormat = "pdf"
)

// ParseTranscriptFormat accepts json, csv or pdf in any case; empty means json.
func ParseTranscriptFormat(raw string) (TranscriptFormat, error) {
	f := TranscriptFormat(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case "":
		return TranscriptFormatJSON, nil
	case TranscriptFormatJSON, TranscriptFormatCSV, TranscriptFormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown transcript format %q", raw)
}
