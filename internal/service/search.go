package service

import (
	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// SearchCriteria is a validated search over one entity field.
type SearchCriteria[F any] struct {
	Field    F
	Operator models.SearchOperator
	Value    string
}

// StudentSearch filters students.
type StudentSearch = SearchCriteria[models.StudentField]

// CourseSearch filters courses.
type CourseSearch = SearchCriteria[models.CourseField]

// EnrollmentSearch filters enrollments.
type EnrollmentSearch = SearchCriteria[models.EnrollmentField]

// ParseStudentSearch validates a raw student search.
func ParseStudentSearch(req models.SearchRequest) (StudentSearch, error) {
	return parseCriteria(req, models.ParseStudentField)
}

// ParseCourseSearch validates a raw course search.
func ParseCourseSearch(req models.SearchRequest) (CourseSearch, error) {
	return parseCriteria(req, models.ParseCourseField)
}

// ParseEnrollmentSearch validates a raw enrollment search.
func ParseEnrollmentSearch(req models.SearchRequest) (EnrollmentSearch, error) {
	return parseCriteria(req, models.ParseEnrollmentField)
}

func parseCriteria[F any](req models.SearchRequest, parseField func(string) (F, error)) (SearchCriteria[F], error) {
	var criteria SearchCriteria[F]
	field, err := parseField(req.Field)
	if err != nil {
		return criteria, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	op, err := models.ParseSearchOperator(req.Operator)
	if err != nil {
		return criteria, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	criteria.Field = field
	criteria.Operator = op
	criteria.Value = req.Value
	return criteria, nil
}

// matcher adapts criteria over a field accessor into a registry predicate.
func matcher[T any, F any](criteria SearchCriteria[F], value func(F, T) string) func(T) bool {
	return func(item T) bool {
		return criteria.Operator.Match(value(criteria.Field, item), criteria.Value)
	}
}
