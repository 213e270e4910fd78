package models

import (
	"fmt"
	"strings"
)

// Semester is the academic period a course runs in.
type Semester string

// Semesters offered by the institution.
const (
	SemesterSpring Semester = "SPRING"
	SemesterSummer Semester = "SUMMER"
	SemesterFall   Semester = "FALL"
)

var semesterDisplay = map[Semester]string{
	SemesterSpring: "Spring",
	SemesterSummer: "Summer",
	SemesterFall:   "Fall",
}

// Semesters lists the valid values in calendar order.
func Semesters() []Semester {
	return []Semester{SemesterSpring, SemesterSummer, SemesterFall}
}

// Valid reports whether s is a known semester.
func (s Semester) Valid() bool {
	_, ok := semesterDisplay[s]
	return ok
}

// DisplayName returns the human readable semester name.
func (s Semester) DisplayName() string {
	return semesterDisplay[s]
}

// ParseSemester accepts the symbolic name in any case.
func ParseSemester(raw string) (Semester, error) {
	s := Semester(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown semester %q", raw)
	}
	return s, nil
}

// Department is an academic department.
type Department string

// Departments of the institution.
const (
	DepartmentComputerScience Department = "COMPUTER_SCIENCE"
	DepartmentMathematics     Department = "MATHEMATICS"
	DepartmentPhysics         Department = "PHYSICS"
	DepartmentChemistry       Department = "CHEMISTRY"
	DepartmentBiology         Department = "BIOLOGY"
	DepartmentEnglish         Department = "ENGLISH"
	DepartmentHistory         Department = "HISTORY"
	DepartmentBusiness        Department = "BUSINESS"
	DepartmentEngineering     Department = "ENGINEERING"
	DepartmentPsychology      Department = "PSYCHOLOGY"
)

type departmentInfo struct {
	name         string
	abbreviation string
}

var departments = map[Department]departmentInfo{
	DepartmentComputerScience: {"Computer Science", "CS"},
	DepartmentMathematics:     {"Mathematics", "MATH"},
	DepartmentPhysics:         {"Physics", "PHYS"},
	DepartmentChemistry:       {"Chemistry", "CHEM"},
	DepartmentBiology:         {"Biology", "BIO"},
	DepartmentEnglish:         {"English", "ENG"},
	DepartmentHistory:         {"History", "HIST"},
	DepartmentBusiness:        {"Business", "BUS"},
	DepartmentEngineering:     {"Engineering", "ENG"},
	DepartmentPsychology:      {"Psychology", "PSYC"},
}

// Departments lists the valid departments.
func Departments() []Department {
	return []Department{
		DepartmentComputerScience, DepartmentMathematics, DepartmentPhysics, DepartmentChemistry, DepartmentBiology,
		DepartmentEnglish, DepartmentHistory, DepartmentBusiness, DepartmentEngineering, DepartmentPsychology,
	}
}

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	_, ok := departments[d]
	return ok
}

// DisplayName returns the full department name.
func (d Department) DisplayName() string { return departments[d].name }

// Abbreviation returns the short department code.
func (d Department) Abbreviation() string { return departments[d].abbreviation }

// ParseDepartment accepts the symbolic name in any case.
func ParseDepartment(raw string) (Department, error) {
	d := Department(strings.ToUpper(strings.TrimSpace(raw)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown department %q", raw)
	}
	return d, nil
}

// Course is an academic course offering.
type Course struct {
	ID           string     `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	Title        string     `db:"title" json:"title"`
	CreditHours  int        `db:"credit_hours" json:"credit_hours"`
	InstructorID string     `db:"instructor_id" json:"instructor_id"`
	Semester     Semester   `db:"semester" json:"semester"`
	Department   Department `db:"department" json:"department"`
	Active       bool       `db:"active" json:"active"`
	Description  string     `db:"description" json:"description,omitempty"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	Department   Department
	Semester     Semester
	InstructorID string
	Active       *bool
}

// Clone returns a copy; courses hold no shared references.
func (c Course) Clone() Course { return c }
