package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterGradeFromScoreBoundaries(t *testing.T) {
	cases := []struct {
		score  float64
		grade  LetterGrade
		points float64
	}{
		{100, GradeAPlus, 4.0},
		{97, GradeAPlus, 4.0},
		{96.9, GradeA, 4.0},
		{93, GradeA, 4.0},
		{90, GradeAMinus, 3.7},
		{87, GradeBPlus, 3.3},
		{83, GradeB, 3.0},
		{80, GradeBMinus, 2.7},
		{77, GradeCPlus, 2.3},
		{73, GradeC, 2.0},
		{70, GradeCMinus, 1.7},
		{67, GradeDPlus, 1.3},
		{60, GradeD, 1.0},
		{59.9, GradeF, 0.0},
		{0, GradeF, 0.0},
	}
	for _, tc := range cases {
		got := LetterGradeFromScore(tc.score)
		assert.Equalf(t, tc.grade, got, "score %v", tc.score)
		assert.Equalf(t, tc.points, got.Points(), "score %v", tc.score)
	}
}

func TestParseLetterGrade(t *testing.T) {
	g, err := ParseLetterGrade("a_plus")
	require.NoError(t, err)
	assert.Equal(t, GradeAPlus, g)
	assert.Equal(t, "A+", g.Display())

	g, err = ParseLetterGrade("")
	require.NoError(t, err)
	assert.Equal(t, LetterGrade(""), g)
	assert.Equal(t, "N/A", g.Display())

	_, err = ParseLetterGrade("A+")
	assert.Error(t, err)
}
