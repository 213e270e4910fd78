package service

import (
	"math"

	"github.com/noah-isme/ccrm-api/internal/models"
)

// CourseLookup resolves a course by id.
type CourseLookup func(courseID string) (models.Course, bool)

// ComputeGPA returns the credit-weighted grade point average of the completed enrollments
// whose course resolves. It returns 0 when nothing qualifies. The result is unrounded.
func ComputeGPA(enrollments []models.Enrollment, lookup CourseLookup) float64 {
	var points float64
	var credits int
	for _, e := range enrollments {
		if !e.Completed {
			continue
		}
		course, ok := lookup(e.CourseID)
		if !ok {
			continue
		}
		grade := e.LetterGrade
		if grade == "" {
			grade = models.LetterGradeFromScore(e.NumericGrade)
		}
		points += grade.Points() * float64(course.CreditHours)
		credits += course.CreditHours
	}
	if credits == 0 {
		return 0
	}
	return points / float64(credits)
}

// RoundGPA rounds to two decimals for display.
func RoundGPA(gpa float64) float64 {
	return math.Round(gpa*100) / 100
}

// TotalCredits sums the credit hours of the referenced courses; unknown courses count as zero.
func TotalCredits(enrollments []models.Enrollment, lookup CourseLookup) int {
	total := 0
	for _, e := range enrollments {
		if course, ok := lookup(e.CourseID); ok {
			total += course.CreditHours
		}
	}
	return total
}
