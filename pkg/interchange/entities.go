package interchange

import (
	"io"
	"strconv"
	"strings"

	"github.com/noah-isme/ccrm-api/internal/models"
)

// File names inside a data directory.
const (
	StudentsFile    = "students.csv"
	CoursesFile     = "courses.csv"
	EnrollmentsFile = "enrollments.csv"
	InstructorsFile = "instructors.csv"
)

// Column headers written by the encoders.
var (
	StudentHeader    = []string{"ID", "RegistrationNumber", "FullName", "Email", "DateOfBirth", "PhoneNumber", "EnrollmentDate", "IsActive", "CurrentGPA"}
	CourseHeader     = []string{"CourseID", "CourseCode", "Title", "CreditHours", "InstructorID", "Semester", "Department", "Description", "IsActive"}
	EnrollmentHeader = []string{"EnrollmentID", "StudentID", "CourseID", "EnrollmentDate", "CompletionDate", "NumericGrade", "LetterGrade", "IsCompleted", "IsActive"}
	InstructorHeader = []string{"ID", "EmployeeID", "FullName", "Email", "Department", "Title", "HireDate", "IsActive", "AssignedCourseIDs"}
)

const assignedCourseSeparator = ";"

var studentSchema = schema[models.Student]{
	header:     StudentHeader,
	minColumns: 8,
	encode: func(s models.Student) []string {
		return []string{
			s.ID,
			s.RegistrationNumber,
			s.FullName,
			s.Email,
			formatDate(s.DateOfBirth),
			s.PhoneNumber,
			formatDate(&s.EnrollmentDate),
			strconv.FormatBool(s.Active),
			formatFloat(s.CurrentGPA),
		}
	},
	decode: func(f fields) (models.Student, error) {
		s := models.Student{
			Person: models.Person{
				ID:          f.at(0),
				FullName:    f.at(2),
				Email:       f.at(3),
				PhoneNumber: f.at(5),
			},
			RegistrationNumber: f.at(1),
		}
		var err error
		if s.DateOfBirth, err = f.date(4, "DateOfBirth"); err != nil {
			return s, err
		}
		enrolled, err := f.date(6, "EnrollmentDate")
		if err != nil {
			return s, err
		}
		if enrolled != nil {
			s.EnrollmentDate = *enrolled
		}
		if s.Active, err = f.boolean(7, "IsActive", true); err != nil {
			return s, err
		}
		if s.CurrentGPA, err = f.float(8, "CurrentGPA"); err != nil {
			return s, err
		}
		return s, nil
	},
}

var courseSchema = schema[models.Course]{
	header:     CourseHeader,
	minColumns: 8,
	encode: func(c models.Course) []string {
		return []string{
			c.ID,
			c.Code,
			c.Title,
			strconv.Itoa(c.CreditHours),
			c.InstructorID,
			string(c.Semester),
			string(c.Department),
			c.Description,
			strconv.FormatBool(c.Active),
		}
	},
	decode: func(f fields) (models.Course, error) {
		c := models.Course{
			ID:           f.at(0),
			Code:         f.at(1),
			Title:        f.at(2),
			InstructorID: f.at(4),
			Description:  f.at(7),
		}
		var err error
		if c.CreditHours, err = f.integer(3, "CreditHours"); err != nil {
			return c, err
		}
		if c.Semester, err = models.ParseSemester(f.at(5)); err != nil {
			return c, malformed(err.Error())
		}
		if c.Department, err = models.ParseDepartment(f.at(6)); err != nil {
			return c, malformed(err.Error())
		}
		if c.Active, err = f.boolean(8, "IsActive", true); err != nil {
			return c, err
		}
		return c, nil
	},
}

var enrollmentSchema = schema[models.Enrollment]{
	header:     EnrollmentHeader,
	minColumns: 6,
	encode: func(e models.Enrollment) []string {
		return []string{
			e.ID,
			e.StudentID,
			e.CourseID,
			formatDate(&e.EnrollmentDate),
			formatDate(e.CompletionDate),
			formatFloat(e.NumericGrade),
			string(e.LetterGrade),
			strconv.FormatBool(e.Completed),
			strconv.FormatBool(e.Active),
		}
	},
	decode: func(f fields) (models.Enrollment, error) {
		e := models.Enrollment{
			ID:        f.at(0),
			StudentID: f.at(1),
			CourseID:  f.at(2),
		}
		enrolled, err := f.date(3, "EnrollmentDate")
		if err != nil {
			return e, err
		}
		if enrolled != nil {
			e.EnrollmentDate = *enrolled
		}
		if e.CompletionDate, err = f.date(4, "CompletionDate"); err != nil {
			return e, err
		}
		if e.NumericGrade, err = f.float(5, "NumericGrade"); err != nil {
			return e, err
		}
		if e.LetterGrade, err = models.ParseLetterGrade(f.at(6)); err != nil {
			return e, malformed(err.Error())
		}
		if e.Completed, err = f.boolean(7, "IsCompleted", false); err != nil {
			return e, err
		}
		if e.Active, err = f.boolean(8, "IsActive", true); err != nil {
			return e, err
		}
		return e, nil
	},
}

var instructorSchema = schema[models.Instructor]{
	header:     InstructorHeader,
	minColumns: 5,
	encode: func(i models.Instructor) []string {
		return []string{
			i.ID,
			i.EmployeeID,
			i.FullName,
			i.Email,
			i.Department,
			i.Title,
			formatDate(&i.HireDate),
			strconv.FormatBool(i.Active),
			strings.Join(i.AssignedCourseIDs, assignedCourseSeparator),
		}
	},
	decode: func(f fields) (models.Instructor, error) {
		i := models.Instructor{
			Person: models.Person{
				ID:       f.at(0),
				FullName: f.at(2),
				Email:    f.at(3),
			},
			EmployeeID: f.at(1),
			Department: f.at(4),
			Title:      f.at(5),
		}
		hired, err := f.date(6, "HireDate")
		if err != nil {
			return i, err
		}
		if hired != nil {
			i.HireDate = *hired
		}
		if i.Active, err = f.boolean(7, "IsActive", true); err != nil {
			return i, err
		}
		for _, id := range strings.Split(f.at(8), assignedCourseSeparator) {
			if id = strings.TrimSpace(id); id != "" {
				i.AssignCourse(id)
			}
		}
		return i, nil
	},
}

// EncodeStudents writes students with a header row.
func EncodeStudents(w io.Writer, students []models.Student) error {
	return encodeAll(w, studentSchema, students)
}

// DecodeStudents reads students, skipping malformed rows.
func DecodeStudents(r io.Reader) ([]models.Student, DecodeReport, error) {
	return decodeAll(r, studentSchema)
}

// EncodeCourses writes courses with a header row.
func EncodeCourses(w io.Writer, courses []models.Course) error {
	return encodeAll(w, courseSchema, courses)
}

// DecodeCourses reads courses, skipping malformed rows.
func DecodeCourses(r io.Reader) ([]models.Course, DecodeReport, error) {
	return decodeAll(r, courseSchema)
}

// EncodeEnrollments writes enrollments with a header row.
func EncodeEnrollments(w io.Writer, enrollments []models.Enrollment) error {
	return encodeAll(w, enrollmentSchema, enrollments)
}

// DecodeEnrollments reads enrollments, skipping malformed rows.
func DecodeEnrollments(r io.Reader) ([]models.Enrollment, DecodeReport, error) {
	return decodeAll(r, enrollmentSchema)
}

// EncodeInstructors writes instructors with a header row.
func EncodeInstructors(w io.Writer, instructors []models.Instructor) error {
	return encodeAll(w, instructorSchema, instructors)
}

// DecodeInstructors reads instructors, skipping malformed rows.
func DecodeInstructors(r io.Reader) ([]models.Instructor, DecodeReport, error) {
	return decodeAll(r, instructorSchema)
}
