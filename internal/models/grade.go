package models

import (
	"fmt"
	"strings"
)

// LetterGrade is the symbolic name of a letter grade band. The empty value means ungraded.
type LetterGrade string

// Letter grades from highest to lowest.
const (
	GradeAPlus  LetterGrade = "A_PLUS"
	GradeA      LetterGrade = "A"
	GradeAMinus LetterGrade = "A_MINUS"
	GradeBPlus  LetterGrade = "B_PLUS"
	GradeB      LetterGrade = "B"
	GradeBMinus LetterGrade = "B_MINUS"
	GradeCPlus  LetterGrade = "C_PLUS"
	GradeC      LetterGrade = "C"
	GradeCMinus LetterGrade = "C_MINUS"
	GradeDPlus  LetterGrade = "D_PLUS"
	GradeD      LetterGrade = "D"
	GradeF      LetterGrade = "F"
)

type gradeBand struct {
	grade    LetterGrade
	display  string
	points   float64
	minScore float64
}

// gradeBands is ordered by descending lower bound; the first band whose bound is met wins.
var gradeBands = []gradeBand{
	{GradeAPlus, "A+", 4.0, 97},
	{GradeA, "A", 4.0, 93},
	{GradeAMinus, "A-", 3.7, 90},
	{GradeBPlus, "B+", 3.3, 87},
	{GradeB, "B", 3.0, 83},
	{GradeBMinus, "B-", 2.7, 80},
	{GradeCPlus, "C+", 2.3, 77},
	{GradeC, "C", 2.0, 73},
	{GradeCMinus, "C-", 1.7, 70},
	{GradeDPlus, "D+", 1.3, 67},
	{GradeD, "D", 1.0, 60},
	{GradeF, "F", 0.0, 0},
}

// LetterGradeFromScore maps a numeric score to its letter grade band.
func LetterGradeFromScore(score float64) LetterGrade {
	for _, band := range gradeBands {
		if score >= band.minScore {
			return band.grade
		}
	}
	return GradeF
}

func (g LetterGrade) band() (gradeBand, bool) {
	for _, band := range gradeBands {
		if band.grade == g {
			return band, true
		}
	}
	return gradeBand{}, false
}

// Valid reports whether g names a known band.
func (g LetterGrade) Valid() bool {
	_, ok := g.band()
	return ok
}

// Points returns the grade points for g, zero when ungraded.
func (g LetterGrade) Points() float64 {
	band, _ := g.band()
	return band.points
}

// Display returns the printable form, e.g. "A+".
func (g LetterGrade) Display() string {
	band, ok := g.band()
	if !ok {
		return "N/A"
	}
	return band.display
}

// ParseLetterGrade accepts the symbolic name; empty input yields the ungraded value.
func ParseLetterGrade(raw string) (LetterGrade, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	g := LetterGrade(strings.ToUpper(raw))
	if !g.Valid() {
		return "", fmt.Errorf("unknown letter grade %q", raw)
	}
	return g, nil
}
