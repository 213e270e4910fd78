package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

type studentStore interface {
	GetStudent(id string) (models.Student, bool)
	ListStudentsWhere(keep func(models.Student) bool) []models.Student
	PutStudent(s models.Student)
}

// CreateStudentRequest holds payload for admitting a student.
type CreateStudentRequest struct {
	ID                 string     `json:"id"`
	RegistrationNumber string     `json:"registration_number" validate:"required"`
	FullName           string     `json:"full_name" validate:"required"`
	Email              string     `json:"email" validate:"required,email"`
	DateOfBirth        *time.Time `json:"date_of_birth"`
	PhoneNumber        string     `json:"phone_number"`
}

// UpdateStudentRequest holds editable profile fields.
type UpdateStudentRequest struct {
	RegistrationNumber string     `json:"registration_number" validate:"required"`
	FullName           string     `json:"full_name" validate:"required"`
	Email              string     `json:"email" validate:"required,email"`
	DateOfBirth        *time.Time `json:"date_of_birth"`
	PhoneNumber        string     `json:"phone_number"`
}

// StudentService handles student use-cases.
type StudentService struct {
	store     studentStore
	locks     *KeyedMutex
	validator *validator.Validate
	logger    *zap.Logger
	regMu     sync.Mutex // guards registration number uniqueness
	now       func() time.Time
}

// NewStudentService constructs the student service. locks must be the instance shared with
// the enrollment service.
func NewStudentService(store studentStore, locks *KeyedMutex, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{store: store, locks: locks, validator: validate, logger: logger, now: time.Now}
}

// List returns students matching the filter, ordered by id.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	return s.store.ListStudentsWhere(func(st models.Student) bool {
		if filter.Active != nil && st.Active != *filter.Active {
			return false
		}
		if search == "" {
			return true
		}
		return strings.Contains(strings.ToLower(st.FullName), search) ||
			strings.Contains(strings.ToLower(st.RegistrationNumber), search) ||
			strings.Contains(strings.ToLower(st.Email), search)
	}), nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.store.GetStudent(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found: "+id)
	}
	return &student, nil
}

// Create admits a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := s.store.GetStudent(id); exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student id already used: "+id)
	}
	if s.registrationTaken(req.RegistrationNumber, "") {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration number already used")
	}

	student := models.Student{
		Person: models.Person{
			ID:          id,
			FullName:    strings.TrimSpace(req.FullName),
			Email:       strings.TrimSpace(req.Email),
			PhoneNumber: req.PhoneNumber,
		},
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		Active:             true,
		EnrollmentDate:     models.DateOf(s.now()),
	}
	if req.DateOfBirth != nil {
		student.DateOfBirth = models.DatePtr(*req.DateOfBirth)
	}
	s.store.PutStudent(student)
	s.logger.Info("student created", zap.String("student_id", id))
	return &student, nil
}

// Update rewrites profile fields. Enrollment-derived fields are left untouched.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	unlock := s.locks.Lock(id)
	defer unlock()
	s.regMu.Lock()
	defer s.regMu.Unlock()

	student, ok := s.store.GetStudent(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found: "+id)
	}
	if s.registrationTaken(req.RegistrationNumber, id) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration number already used")
	}
	student.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)
	student.FullName = strings.TrimSpace(req.FullName)
	student.Email = strings.TrimSpace(req.Email)
	student.PhoneNumber = req.PhoneNumber
	student.DateOfBirth = nil
	if req.DateOfBirth != nil {
		student.DateOfBirth = models.DatePtr(*req.DateOfBirth)
	}
	s.store.PutStudent(student)
	return &student, nil
}

// Deactivate marks student inactive. Existing enrollments are kept.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	student, ok := s.store.GetStudent(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found: "+id)
	}
	student.Active = false
	s.store.PutStudent(student)
	s.logger.Info("student deactivated", zap.String("student_id", id))
	return nil
}

// Search returns students matching the criteria.
func (s *StudentService) Search(ctx context.Context, criteria StudentSearch) []models.Student {
	return s.store.ListStudentsWhere(matcher(criteria, models.StudentField.Value))
}

func (s *StudentService) registrationTaken(regNo, excludeID string) bool {
	regNo = strings.TrimSpace(regNo)
	matches := s.store.ListStudentsWhere(func(st models.Student) bool {
		return st.ID != excludeID && strings.EqualFold(st.RegistrationNumber, regNo)
	})
	return len(matches) > 0
}
