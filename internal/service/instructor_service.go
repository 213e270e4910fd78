package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/registry"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

type instructorStore interface {
	GetInstructor(id string) (models.Instructor, bool)
	ListInstructorsWhere(keep func(models.Instructor) bool) []models.Instructor
	PutInstructor(i models.Instructor)
	GetCourse(id string) (models.Course, bool)
	Commit(fn func(tx *registry.Tx))
}

// CreateInstructorRequest holds payload for hiring an instructor.
type CreateInstructorRequest struct {
	ID          string     `json:"id"`
	EmployeeID  string     `json:"employee_id" validate:"required"`
	FullName    string     `json:"full_name" validate:"required"`
	Email       string     `json:"email" validate:"required,email"`
	Department  string     `json:"department"`
	Title       string     `json:"title"`
	HireDate    *time.Time `json:"hire_date"`
	PhoneNumber string     `json:"phone_number"`
}

// InstructorService handles teaching staff use-cases.
type InstructorService struct {
	store     instructorStore
	validator *validator.Validate
	logger    *zap.Logger
	locks     *KeyedMutex
	now       func() time.Time
}

// NewInstructorService constructs InstructorService. locks is shared with the course service.
func NewInstructorService(store instructorStore, locks *KeyedMutex, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{store: store, locks: locks, validator: validate, logger: logger, now: time.Now}
}

// List returns instructors, optionally only active ones.
func (s *InstructorService) List(ctx context.Context, active *bool) ([]models.Instructor, error) {
	return s.store.ListInstructorsWhere(func(i models.Instructor) bool {
		return active == nil || i.Active == *active
	}), nil
}

// Get returns an instructor by id.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, ok := s.store.GetInstructor(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found: "+id)
	}
	return &instructor, nil
}

// Create registers an instructor.
func (s *InstructorService) Create(ctx context.Context, req CreateInstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}

	unlock := s.locks.Lock(catalogueLockKey)
	defer unlock()

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := s.store.GetInstructor(id); exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "instructor id already used: "+id)
	}
	employeeID := strings.TrimSpace(req.EmployeeID)
	taken := s.store.ListInstructorsWhere(func(i models.Instructor) bool {
		return strings.EqualFold(i.EmployeeID, employeeID)
	})
	if len(taken) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee id already used")
	}

	hired := models.DateOf(s.now())
	if req.HireDate != nil {
		hired = models.DateOf(*req.HireDate)
	}
	instructor := models.Instructor{
		Person: models.Person{
			ID:          id,
			FullName:    strings.TrimSpace(req.FullName),
			Email:       strings.TrimSpace(req.Email),
			PhoneNumber: req.PhoneNumber,
		},
		EmployeeID: employeeID,
		Department: strings.TrimSpace(req.Department),
		Title:      strings.TrimSpace(req.Title),
		HireDate:   hired,
		Active:     true,
	}
	s.store.PutInstructor(instructor)
	return &instructor, nil
}

// AssignCourse makes the instructor responsible for the course, releasing it from any
// previous instructor.
func (s *InstructorService) AssignCourse(ctx context.Context, instructorID, courseID string) (*models.Instructor, error) {
	unlock := s.locks.Lock(catalogueLockKey)
	defer unlock()

	instructor, ok := s.store.GetInstructor(instructorID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found: "+instructorID)
	}
	if !instructor.Active {
		return nil, appErrors.Clone(appErrors.ErrInactive, "instructor is inactive: "+instructorID)
	}
	course, ok := s.store.GetCourse(courseID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found: "+courseID)
	}

	previous, hasPrevious := s.store.GetInstructor(course.InstructorID)
	hasPrevious = hasPrevious && previous.ID != instructor.ID
	course.InstructorID = instructor.ID
	instructor.AssignCourse(course.ID)
	s.store.Commit(func(tx *registry.Tx) {
		if hasPrevious {
			previous.UnassignCourse(course.ID)
			tx.PutInstructor(previous)
		}
		tx.PutCourse(course)
		tx.PutInstructor(instructor)
	})
	return &instructor, nil
}

// Deactivate marks the instructor inactive.
func (s *InstructorService) Deactivate(ctx context.Context, id string) error {
	unlock := s.locks.Lock(catalogueLockKey)
	defer unlock()

	instructor, ok := s.store.GetInstructor(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "instructor not found: "+id)
	}
	instructor.Active = false
	s.store.PutInstructor(instructor)
	return nil
}
