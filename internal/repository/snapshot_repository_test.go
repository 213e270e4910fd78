package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/registry"
)

func newSnapshotRepoMock(t *testing.T) (*SnapshotRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewSnapshotRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func sampleSnapshot() registry.Snapshot {
	enrolled := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	return registry.Snapshot{
		Students: []models.Student{{Person: models.Person{ID: "S1", FullName: "Ann Lee", Email: "ann@example.com"}, RegistrationNumber: "R1", Active: true, EnrollmentDate: enrolled}},
		Courses:  []models.Course{{ID: "C1", Code: "CS101", Title: "Intro", CreditHours: 3, InstructorID: "I1", Semester: models.SemesterFall, Department: models.DepartmentComputerScience, Active: true}},
		Instructors: []models.Instructor{{Person: models.Person{ID: "I1", FullName: "Dr. Ray"}, EmployeeID: "E1", Active: true, HireDate: enrolled,
			AssignedCourseIDs: []string{"C1"}}},
		Enrollments: []models.Enrollment{{ID: "E1", StudentID: "S1", CourseID: "C1", EnrollmentDate: enrolled, Active: true}},
	}
}

func TestSnapshotRepositoryReplace(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	for _, table := range snapshotTables {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ccrm_students")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ccrm_courses")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ccrm_instructors")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ccrm_instructor_courses")).
		WithArgs("I1", "C1", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ccrm_enrollments")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), sampleSnapshot()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryReplaceRollsBack(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ccrm_enrollments")).WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear ccrm_enrollments")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryLoad(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()
	day := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM ccrm_students")).WillReturnRows(
		sqlmock.NewRows([]string{"id", "registration_number", "full_name", "email", "date_of_birth", "phone_number", "enrollment_date", "active", "current_gpa"}).
			AddRow("S1", "R1", "Ann Lee", "ann@example.com", nil, "", day, true, 3.5))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ccrm_courses")).WillReturnRows(
		sqlmock.NewRows([]string{"id", "code", "title", "credit_hours", "instructor_id", "semester", "department", "active", "description"}).
			AddRow("C1", "CS101", "Intro", 3, "I1", "FALL", "COMPUTER_SCIENCE", true, ""))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ccrm_instructors")).WillReturnRows(
		sqlmock.NewRows([]string{"id", "employee_id", "full_name", "email", "date_of_birth", "phone_number", "department", "title", "hire_date", "active"}).
			AddRow("I1", "E1", "Dr. Ray", "", nil, "", "", "", day, true))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ccrm_instructor_courses")).WillReturnRows(
		sqlmock.NewRows([]string{"instructor_id", "course_id"}).AddRow("I1", "C1"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ccrm_enrollments")).WillReturnRows(
		sqlmock.NewRows([]string{"id", "student_id", "course_id", "enrollment_date", "completion_date", "numeric_grade", "letter_grade", "completed", "active"}).
			AddRow("E1", "S1", "C1", day, nil, 91.0, "A", true, true))

	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Students, 1)
	assert.Equal(t, 3.5, snap.Students[0].CurrentGPA)
	require.Len(t, snap.Courses, 1)
	assert.Equal(t, models.SemesterFall, snap.Courses[0].Semester)
	require.Len(t, snap.Instructors, 1)
	assert.Equal(t, []string{"C1"}, snap.Instructors[0].AssignedCourseIDs)
	require.Len(t, snap.Enrollments, 1)
	assert.Equal(t, models.GradeA, snap.Enrollments[0].LetterGrade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryCount(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	for i, table := range []string{"ccrm_students", "ccrm_courses", "ccrm_instructors", "ccrm_enrollments"} {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM " + table)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(i + 1))
	}

	counts, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"students": 1, "courses": 2, "instructors": 3, "enrollments": 4}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}
