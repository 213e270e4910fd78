package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/registry"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

type courseStore interface {
	GetCourse(id string) (models.Course, bool)
	ListCoursesWhere(keep func(models.Course) bool) []models.Course
	PutCourse(c models.Course)
	GetInstructor(id string) (models.Instructor, bool)
	ListEnrollmentsWhere(keep func(models.Enrollment) bool) []models.Enrollment
	Commit(fn func(tx *registry.Tx))
}

// CreateCourseRequest holds payload for creating courses.
type CreateCourseRequest struct {
	ID           string `json:"id" validate:"required"`
	Code         string `json:"code" validate:"required"`
	Title        string `json:"title" validate:"required"`
	CreditHours  int    `json:"credit_hours" validate:"required,gt=0"`
	InstructorID string `json:"instructor_id"`
	Semester     string `json:"semester" validate:"required"`
	Department   string `json:"department" validate:"required"`
	Description  string `json:"description"`
}

// UpdateCourseRequest holds editable course fields.
type UpdateCourseRequest struct {
	Title       string `json:"title" validate:"required"`
	CreditHours int    `json:"credit_hours" validate:"required,gt=0"`
	Semester    string `json:"semester" validate:"required"`
	Department  string `json:"department" validate:"required"`
	Description string `json:"description"`
}

// CourseService handles course catalogue use-cases.
type CourseService struct {
	store     courseStore
	validator *validator.Validate
	logger    *zap.Logger
	locks     *KeyedMutex
}

// NewCourseService constructs CourseService. locks is shared with the instructor service.
func NewCourseService(store courseStore, locks *KeyedMutex, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{store: store, locks: locks, validator: validate, logger: logger}
}

// List returns courses matching the filter, ordered by id.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	return s.store.ListCoursesWhere(func(c models.Course) bool {
		if filter.Department != "" && c.Department != filter.Department {
			return false
		}
		if filter.Semester != "" && c.Semester != filter.Semester {
			return false
		}
		if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
			return false
		}
		if filter.Active != nil && c.Active != *filter.Active {
			return false
		}
		return true
	}), nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, ok := s.store.GetCourse(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found: "+id)
	}
	return &course, nil
}

// Create adds a course to the catalogue. When the instructor exists the course is added to
// their assignments as well.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	semester, department, err := parseCourseEnums(req.Semester, req.Department)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(catalogueLockKey)
	defer unlock()

	id := strings.TrimSpace(req.ID)
	if _, exists := s.store.GetCourse(id); exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course id already used: "+id)
	}
	if s.codeTaken(req.Code, "") {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}

	course := models.Course{
		ID:           id,
		Code:         strings.ToUpper(strings.TrimSpace(req.Code)),
		Title:        strings.TrimSpace(req.Title),
		CreditHours:  req.CreditHours,
		InstructorID: strings.TrimSpace(req.InstructorID),
		Semester:     semester,
		Department:   department,
		Active:       true,
		Description:  req.Description,
	}
	instructor, hasInstructor := s.store.GetInstructor(course.InstructorID)
	s.store.Commit(func(tx *registry.Tx) {
		tx.PutCourse(course)
		if hasInstructor {
			instructor.AssignCourse(course.ID)
			tx.PutInstructor(instructor)
		}
	})
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return &course, nil
}

// Update rewrites the editable course fields.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	semester, department, err := parseCourseEnums(req.Semester, req.Department)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(catalogueLockKey)
	defer unlock()

	course, ok := s.store.GetCourse(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found: "+id)
	}
	course.Title = strings.TrimSpace(req.Title)
	course.CreditHours = req.CreditHours
	course.Semester = semester
	course.Department = department
	course.Description = req.Description
	s.store.PutCourse(course)
	return &course, nil
}

// Deactivate marks the course inactive. Existing enrollments are kept.
func (s *CourseService) Deactivate(ctx context.Context, id string) error {
	unlock := s.locks.Lock(catalogueLockKey)
	defer unlock()

	course, ok := s.store.GetCourse(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found: "+id)
	}
	course.Active = false
	s.store.PutCourse(course)
	s.logger.Info("course deactivated", zap.String("course_id", id))
	return nil
}

// EnrollmentCount returns the number of active enrollments in the course.
func (s *CourseService) EnrollmentCount(ctx context.Context, id string) (int, error) {
	if _, ok := s.store.GetCourse(id); !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "course not found: "+id)
	}
	active := s.store.ListEnrollmentsWhere(func(e models.Enrollment) bool {
		return e.CourseID == id && e.Active
	})
	return len(active), nil
}

// Search returns courses matching the criteria.
func (s *CourseService) Search(ctx context.Context, criteria CourseSearch) []models.Course {
	return s.store.ListCoursesWhere(matcher(criteria, models.CourseField.Value))
}

func (s *CourseService) codeTaken(code, excludeID string) bool {
	code = strings.TrimSpace(code)
	matches := s.store.ListCoursesWhere(func(c models.Course) bool {
		return c.ID != excludeID && strings.EqualFold(c.Code, code)
	})
	return len(matches) > 0
}

// catalogueLockKey serializes course and instructor rewrites, which touch each other.
const catalogueLockKey = "\x00catalogue"

func parseCourseEnums(rawSemester, rawDepartment string) (models.Semester, models.Department, error) {
	semester, err := models.ParseSemester(rawSemester)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	department, err := models.ParseDepartment(rawDepartment)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return semester, department, nil
}
