package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchOperatorMatch(t *testing.T) {
	assert.True(t, OpEquals.Match("Alice", "alice"))
	assert.True(t, OpContains.Match("Alice Smith", "SMITH"))
	assert.True(t, OpStartsWith.Match("CS101", "cs"))
	assert.True(t, OpEndsWith.Match("alice@campus.local", ".LOCAL"))
	assert.True(t, OpGreaterThan.Match("3.5", "3"))
	assert.False(t, OpGreaterThan.Match("abc", "3"))
	assert.True(t, OpLessThan.Match("2", "10"))
	assert.False(t, OpLessThan.Match("2", "ten"))
}

func TestParseSearchOperator(t *testing.T) {
	op, err := ParseSearchOperator("")
	require.NoError(t, err)
	assert.Equal(t, OpContains, op)

	op, err = ParseSearchOperator("greater_than")
	require.NoError(t, err)
	assert.Equal(t, OpGreaterThan, op)

	_, err = ParseSearchOperator("LIKE")
	assert.Error(t, err)
}

func TestFieldSelectors(t *testing.T) {
	f, err := ParseStudentField("Registration_Number")
	require.NoError(t, err)
	s := Student{Person: Person{ID: "S1", FullName: "Ann"}, RegistrationNumber: "R-9", CurrentGPA: 3.25}
	assert.Equal(t, "R-9", f.Value(s))

	gpa, err := ParseStudentField("gpa")
	require.NoError(t, err)
	assert.Equal(t, "3.25", gpa.Value(s))

	cf, err := ParseCourseField("dept")
	require.NoError(t, err)
	assert.Equal(t, "PHYSICS", cf.Value(Course{Department: DepartmentPhysics}))

	ef, err := ParseEnrollmentField("numeric_grade")
	require.NoError(t, err)
	assert.Equal(t, "88.5", ef.Value(Enrollment{NumericGrade: 88.5}))

	_, err = ParseStudentField("shoe_size")
	assert.Error(t, err)
}
