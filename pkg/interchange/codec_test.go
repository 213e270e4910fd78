package interchange

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStudentsRoundTripPreservesQuotedFields(t *testing.T) {
	dob := date(2002, time.March, 9)
	students := []models.Student{
		{
			Person: models.Person{
				ID:          "S1",
				FullName:    "Smith, John \"JJ\"",
				Email:       "john@campus.local",
				DateOfBirth: &dob,
				PhoneNumber: "+1 555 0100",
			},
			RegistrationNumber: "REG-001",
			Active:             true,
			EnrollmentDate:     date(2023, time.September, 1),
			CurrentGPA:         3.4285714285714284,
		},
		{
			Person:             models.Person{ID: "S2", FullName: "Line\nBreak", Email: "lb@campus.local"},
			RegistrationNumber: "REG-002",
			Active:             false,
			EnrollmentDate:     date(2024, time.January, 10),
		},
		{
			Person:             models.Person{ID: "S3", FullName: "Line1\r\nLine2", Email: "crlf@campus.local", PhoneNumber: "a\rb"},
			RegistrationNumber: "REG-003",
			Active:             true,
			EnrollmentDate:     date(2024, time.January, 11),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeStudents(&buf, students))

	decoded, report, err := DecodeStudents(&buf)
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, students, decoded)
}

func TestCoursesRoundTrip(t *testing.T) {
	courses := []models.Course{
		{ID: "C1", Code: "CS101", Title: "Intro, Programming", CreditHours: 4, InstructorID: "I1",
			Semester: models.SemesterFall, Department: models.DepartmentComputerScience, Active: true, Description: "Basics"},
		{ID: "C2", Code: "HIST200", Title: "Modern History", CreditHours: 3,
			Semester: models.SemesterSpring, Department: models.DepartmentHistory, Active: false},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeCourses(&buf, courses))
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(CourseHeader, ",")+"\n"))

	decoded, report, err := DecodeCourses(&buf)
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, courses, decoded)
}

func TestEnrollmentsRoundTrip(t *testing.T) {
	completed := date(2024, time.May, 20)
	enrollments := []models.Enrollment{
		{ID: "E1", StudentID: "S1", CourseID: "C1", EnrollmentDate: date(2024, time.January, 8),
			CompletionDate: &completed, NumericGrade: 91.5, LetterGrade: models.GradeAMinus, Completed: true, Active: true},
		{ID: "E2", StudentID: "S1", CourseID: "C2", EnrollmentDate: date(2024, time.January, 8), Active: true},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeEnrollments(&buf, enrollments))
	assert.Contains(t, buf.String(), "A_MINUS")

	decoded, _, err := DecodeEnrollments(&buf)
	require.NoError(t, err)
	assert.Equal(t, enrollments, decoded)
}

func TestInstructorsRoundTrip(t *testing.T) {
	instructors := []models.Instructor{
		{Person: models.Person{ID: "I1", FullName: "Dr. Ada", Email: "ada@campus.local"}, EmployeeID: "EMP-1",
			Department: "Computer Science", Title: "Professor", HireDate: date(2010, time.August, 1), Active: true,
			AssignedCourseIDs: []string{"C1", "C3"}},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeInstructors(&buf, instructors))

	decoded, _, err := DecodeInstructors(&buf)
	require.NoError(t, err)
	assert.Equal(t, instructors, decoded)
}

func TestDecodeSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		strings.Join(StudentHeader, ","),
		"S1,REG-1,Ann,ann@campus.local,,,2024-01-01,true,3.5",
		"S2,REG-2,Short,row",
		"",
		"S3,REG-3,Bad Date,bd@campus.local,01/02/2000,,2024-01-01,true,0",
		"S4,REG-4,Bad Gpa,bg@campus.local,,,2024-01-01,true,high",
		"S5,REG-5,No Gpa,ng@campus.local,,,2024-01-01,false",
	}, "\n")

	students, report, err := DecodeStudents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "S1", students[0].ID)
	assert.Equal(t, "S5", students[1].ID)
	assert.False(t, students[1].Active)
	assert.Zero(t, students[1].CurrentGPA)

	require.Len(t, report.Skipped, 3)
	assert.Equal(t, 3, report.Skipped[0].Line)
	assert.Equal(t, 5, report.Skipped[1].Line)
	assert.Contains(t, report.Skipped[2].Reason, "CurrentGPA")
}

func TestDecodeAcceptsCRLFLineEndings(t *testing.T) {
	input := strings.Join(CourseHeader, ",") + "\r\n" +
		"C1,CS101,\"Intro\r\nProgramming\",3,I1,FALL,COMPUTER_SCIENCE,\"Say \"\"hi\"\"\",true\r\n" +
		"C2,CS102,Data,4,I1,SPRING,COMPUTER_SCIENCE,,false\r\n"

	courses, report, err := DecodeCourses(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
	require.Len(t, courses, 2)
	assert.Equal(t, "Intro\r\nProgramming", courses[0].Title)
	assert.Equal(t, `Say "hi"`, courses[0].Description)
	assert.False(t, courses[1].Active)
}

func TestDecodeSkipsBadQuoting(t *testing.T) {
	input := strings.Join(CourseHeader, ",") + "\n" +
		"C1,CS101,Bare\"quote,3,I1,FALL,COMPUTER_SCIENCE,,true\n" +
		"C2,CS102,\"Closed\"tail,3,I1,FALL,COMPUTER_SCIENCE,,true\n" +
		"C3,CS103,Fine,3,I1,FALL,COMPUTER_SCIENCE,,true\n" +
		"C4,CS104,\"Never closed,3,I1,FALL,COMPUTER_SCIENCE,,true\n"

	courses, report, err := DecodeCourses(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "C3", courses[0].ID)
	require.Len(t, report.Skipped, 3)
	assert.Equal(t, 2, report.Skipped[0].Line)
	assert.Equal(t, 3, report.Skipped[1].Line)
	assert.Equal(t, 5, report.Skipped[2].Line)
}

func TestDecodeEmptyActiveColumnReadsFalse(t *testing.T) {
	input := strings.Join(StudentHeader, ",") + "\n" +
		"S1,REG-1,Ann,ann@campus.local,,,2024-01-01,,0\n"

	students, report, err := DecodeStudents(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
	require.Len(t, students, 1)
	assert.False(t, students[0].Active)
}

func TestDecodeCourseRejectsUnknownEnum(t *testing.T) {
	input := strings.Join(CourseHeader, ",") + "\n" +
		"C1,ART1,Painting,3,I1,WINTER,COMPUTER_SCIENCE,,true\n" +
		"C2,ART2,Sculpture,3,I1,FALL,FINE_ARTS,,true\n" +
		"C3,CS1,Intro,3,I1,fall,computer_science,\n"

	courses, report, err := DecodeCourses(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "C3", courses[0].ID)
	assert.True(t, courses[0].Active)
	require.Len(t, report.Skipped, 2)
	for _, skipped := range report.Skipped {
		assert.NotEmpty(t, skipped.Reason)
	}
}

func TestDecodeEnrollmentMinimumColumnsDefaults(t *testing.T) {
	input := strings.Join(EnrollmentHeader, ",") + "\nE1,S1,C1,2024-02-01,,0\n"

	enrollments, report, err := DecodeEnrollments(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
	require.Len(t, enrollments, 1)
	assert.True(t, enrollments[0].Active)
	assert.False(t, enrollments[0].Completed)
	assert.Nil(t, enrollments[0].CompletionDate)
	assert.Equal(t, models.LetterGrade(""), enrollments[0].LetterGrade)
}

func TestDecodeMissingHeader(t *testing.T) {
	_, _, err := DecodeStudents(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestMalformedReasonCarriesErrorCode(t *testing.T) {
	err := malformed("bad")
	assert.Equal(t, appErrors.ErrMalformedRecord.Code, appErrors.FromError(err).Code)
}
