package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SearchOperator compares an entity field against a search value.
type SearchOperator string

// Supported operators.
const (
	OpEquals      SearchOperator = "EQUALS"
	OpContains    SearchOperator = "CONTAINS"
	OpStartsWith  SearchOperator = "STARTS_WITH"
	OpEndsWith    SearchOperator = "ENDS_WITH"
	OpGreaterThan SearchOperator = "GREATER_THAN"
	OpLessThan    SearchOperator = "LESS_THAN"
)

// ParseSearchOperator accepts the operator name in any case; empty means CONTAINS.
func ParseSearchOperator(raw string) (SearchOperator, error) {
	op := SearchOperator(strings.ToUpper(strings.TrimSpace(raw)))
	switch op {
	case "":
		return OpContains, nil
	case OpEquals, OpContains, OpStartsWith, OpEndsWith, OpGreaterThan, OpLessThan:
		return op, nil
	}
	return "", fmt.Errorf("unknown search operator %q", raw)
}

// Match applies the operator. String operators ignore case; ordering operators compare numbers
// and never match non-numeric input.
func (op SearchOperator) Match(fieldValue, searchValue string) bool {
	switch op {
	case OpEquals:
		return strings.EqualFold(fieldValue, searchValue)
	case OpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(searchValue))
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(fieldValue), strings.ToLower(searchValue))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(fieldValue), strings.ToLower(searchValue))
	case OpGreaterThan, OpLessThan:
		left, err := strconv.ParseFloat(fieldValue, 64)
		if err != nil {
			return false
		}
		right, err := strconv.ParseFloat(searchValue, 64)
		if err != nil {
			return false
		}
		if op == OpGreaterThan {
			return left > right
		}
		return left < right
	}
	return false
}

// StudentField selects a searchable student attribute.
type StudentField int

// Student search fields.
const (
	StudentFieldID StudentField = iota + 1
	StudentFieldRegistrationNumber
	StudentFieldName
	StudentFieldEmail
	StudentFieldActive
	StudentFieldGPA
)

var studentFieldNames = map[string]StudentField{
	"id":                 StudentFieldID,
	"registrationnumber": StudentFieldRegistrationNumber,
	"regno":              StudentFieldRegistrationNumber,
	"name":               StudentFieldName,
	"fullname":           StudentFieldName,
	"email":              StudentFieldEmail,
	"active":             StudentFieldActive,
	"gpa":                StudentFieldGPA,
}

// ParseStudentField resolves a field name such as "regno" or "full_name".
func ParseStudentField(raw string) (StudentField, error) {
	if f, ok := studentFieldNames[normalizeFieldName(raw)]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("unknown student field %q", raw)
}

// Value extracts the field from s as text.
func (f StudentField) Value(s Student) string {
	switch f {
	case StudentFieldID:
		return s.ID
	case StudentFieldRegistrationNumber:
		return s.RegistrationNumber
	case StudentFieldName:
		return s.FullName
	case StudentFieldEmail:
		return s.Email
	case StudentFieldActive:
		return strconv.FormatBool(s.Active)
	case StudentFieldGPA:
		return strconv.FormatFloat(s.CurrentGPA, 'f', -1, 64)
	}
	return ""
}

// CourseField selects a searchable course attribute.
type CourseField int

// Course search fields.
const (
	CourseFieldID CourseField = iota + 1
	CourseFieldCode
	CourseFieldTitle
	CourseFieldCredits
	CourseFieldInstructor
	CourseFieldSemester
	CourseFieldDepartment
	CourseFieldActive
)

var courseFieldNames = map[string]CourseField{
	"id":           CourseFieldID,
	"courseid":     CourseFieldID,
	"code":         CourseFieldCode,
	"coursecode":   CourseFieldCode,
	"title":        CourseFieldTitle,
	"credits":      CourseFieldCredits,
	"credithours":  CourseFieldCredits,
	"instructor":   CourseFieldInstructor,
	"instructorid": CourseFieldInstructor,
	"semester":     CourseFieldSemester,
	"department":   CourseFieldDepartment,
	"dept":         CourseFieldDepartment,
	"active":       CourseFieldActive,
}

// ParseCourseField resolves a course field name.
func ParseCourseField(raw string) (CourseField, error) {
	if f, ok := courseFieldNames[normalizeFieldName(raw)]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("unknown course field %q", raw)
}

// Value extracts the field from c as text.
func (f CourseField) Value(c Course) string {
	switch f {
	case CourseFieldID:
		return c.ID
	case CourseFieldCode:
		return c.Code
	case CourseFieldTitle:
		return c.Title
	case CourseFieldCredits:
		return strconv.Itoa(c.CreditHours)
	case CourseFieldInstructor:
		return c.InstructorID
	case CourseFieldSemester:
		return string(c.Semester)
	case CourseFieldDepartment:
		return string(c.Department)
	case CourseFieldActive:
		return strconv.FormatBool(c.Active)
	}
	return ""
}

// EnrollmentField selects a searchable enrollment attribute.
type EnrollmentField int

// Enrollment search fields.
const (
	EnrollmentFieldID EnrollmentField = iota + 1
	EnrollmentFieldStudent
	EnrollmentFieldCourse
	EnrollmentFieldActive
	EnrollmentFieldCompleted
	EnrollmentFieldGrade
	EnrollmentFieldNumericGrade
)

var enrollmentFieldNames = map[string]EnrollmentField{
	"id":           EnrollmentFieldID,
	"enrollmentid": EnrollmentFieldID,
	"student":      EnrollmentFieldStudent,
	"studentid":    EnrollmentFieldStudent,
	"course":       EnrollmentFieldCourse,
	"courseid":     EnrollmentFieldCourse,
	"active":       EnrollmentFieldActive,
	"completed":    EnrollmentFieldCompleted,
	"grade":        EnrollmentFieldGrade,
	"numericgrade": EnrollmentFieldNumericGrade,
}

// ParseEnrollmentField resolves an enrollment field name.
func ParseEnrollmentField(raw string) (EnrollmentField, error) {
	if f, ok := enrollmentFieldNames[normalizeFieldName(raw)]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("unknown enrollment field %q", raw)
}

// Value extracts the field from e as text.
func (f EnrollmentField) Value(e Enrollment) string {
	switch f {
	case EnrollmentFieldID:
		return e.ID
	case EnrollmentFieldStudent:
		return e.StudentID
	case EnrollmentFieldCourse:
		return e.CourseID
	case EnrollmentFieldActive:
		return strconv.FormatBool(e.Active)
	case EnrollmentFieldCompleted:
		return strconv.FormatBool(e.Completed)
	case EnrollmentFieldGrade:
		return string(e.LetterGrade)
	case EnrollmentFieldNumericGrade:
		return strconv.FormatFloat(e.NumericGrade, 'f', -1, 64)
	}
	return ""
}

// SearchRequest is the raw, untyped form of a search coming from HTTP or the CLI.
type SearchRequest struct {
	Field    string `form:"field" json:"field" validate:"required"`
	Operator string `form:"op" json:"operator"`
	Value    string `form:"value" json:"value"`
}

func normalizeFieldName(raw string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(raw)))
}
