package service

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/registry"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// DefaultMaxCredits is the per-semester credit cap applied when none is configured.
const DefaultMaxCredits = 18

// Rule engine operation labels.
const (
	OperationEnroll      = "enroll"
	OperationWithdraw    = "withdraw"
	OperationRecordGrade = "record_grade"
)

type enrollmentStore interface {
	GetStudent(id string) (models.Student, bool)
	GetCourse(id string) (models.Course, bool)
	ListEnrollmentsWhere(keep func(models.Enrollment) bool) []models.Enrollment
	Commit(fn func(tx *registry.Tx))
}

type transcriptInvalidator interface {
	Invalidate(ctx context.Context, studentID string)
}

// EnrollRequest describes an enroll, withdraw or grade target.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// RecordGradeRequest carries a numeric grade for an enrollment.
type RecordGradeRequest struct {
	StudentID    string   `json:"student_id" validate:"required"`
	CourseID     string   `json:"course_id" validate:"required"`
	NumericGrade *float64 `json:"numeric_grade" validate:"required"`
}

// EnrollmentService enforces enrollment rules against the registry. Every mutation runs
// under a per-student lock so the check and the write see the same state.
type EnrollmentService struct {
	store       enrollmentStore
	maxCredits  int
	invalidator transcriptInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
	locks       *KeyedMutex
	now         func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(store enrollmentStore, locks *KeyedMutex, maxCredits int, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if maxCredits <= 0 {
		maxCredits = DefaultMaxCredits
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		store:      store,
		maxCredits: maxCredits,
		metrics:    metrics,
		logger:     logger,
		locks:      locks,
		now:        time.Now,
	}
}

// SetTranscriptInvalidator registers a hook called after successful mutations.
func (s *EnrollmentService) SetTranscriptInvalidator(inv transcriptInvalidator) {
	s.invalidator = inv
}

// MaxCredits returns the configured credit cap.
func (s *EnrollmentService) MaxCredits() int {
	return s.maxCredits
}

// Enroll creates an active enrollment for the pair.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	unlock := s.locks.Lock(studentID)
	defer unlock()

	student, course, err := s.checkEnroll(studentID, courseID)
	if err != nil {
		s.metrics.RecordRuleEngineOperation(OperationEnroll, err)
		return nil, err
	}

	today := models.DateOf(s.now())
	enrollment := models.Enrollment{
		ID:             uuid.NewString(),
		StudentID:      student.ID,
		CourseID:       course.ID,
		EnrollmentDate: today,
		Active:         true,
	}
	student.AddCourse(course.ID)
	s.store.Commit(func(tx *registry.Tx) {
		tx.PutEnrollment(enrollment)
		tx.PutStudent(student)
	})

	s.afterMutation(ctx, OperationEnroll, studentID)
	s.logger.Debug("student enrolled", zap.String("student_id", studentID), zap.String("course_id", courseID), zap.String("enrollment_id", enrollment.ID))
	return &enrollment, nil
}

// CanEnroll reports whether Enroll would currently succeed.
func (s *EnrollmentService) CanEnroll(studentID, courseID string) bool {
	_, _, err := s.checkEnroll(studentID, courseID)
	return err == nil
}

func (s *EnrollmentService) checkEnroll(studentID, courseID string) (models.Student, models.Course, error) {
	student, ok := s.store.GetStudent(studentID)
	if !ok {
		return student, models.Course{}, appErrors.Clone(appErrors.ErrNotFound, "student not found: "+studentID)
	}
	course, ok := s.store.GetCourse(courseID)
	if !ok {
		return student, course, appErrors.Clone(appErrors.ErrNotFound, "course not found: "+courseID)
	}
	if !student.Active {
		return student, course, appErrors.Clone(appErrors.ErrInactive, "student is inactive: "+studentID)
	}
	if !course.Active {
		return student, course, appErrors.Clone(appErrors.ErrInactive, "course is inactive: "+courseID)
	}
	if _, ok := s.activeEnrollment(studentID, courseID); ok {
		return student, course, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "student "+studentID+" already enrolled in "+courseID)
	}
	attempted := s.creditLoad(studentID) + course.CreditHours
	if attempted > s.maxCredits {
		return student, course, appErrors.CreditLimitExceeded(attempted, s.maxCredits)
	}
	return student, course, nil
}

// Withdraw deactivates the active enrollment for the pair. Grades are kept.
func (s *EnrollmentService) Withdraw(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	unlock := s.locks.Lock(studentID)
	defer unlock()

	enrollment, ok := s.activeEnrollment(studentID, courseID)
	if !ok {
		err := appErrors.Clone(appErrors.ErrNotFound, "no active enrollment for student "+studentID+" in course "+courseID)
		s.metrics.RecordRuleEngineOperation(OperationWithdraw, err)
		return nil, err
	}

	enrollment.Active = false
	enrollment.CompletionDate = models.DatePtr(s.now())
	student, hasStudent := s.store.GetStudent(studentID)
	student.RemoveCourse(courseID)
	s.store.Commit(func(tx *registry.Tx) {
		tx.PutEnrollment(enrollment)
		if hasStudent {
			tx.PutStudent(student)
		}
	})

	s.afterMutation(ctx, OperationWithdraw, studentID)
	return &enrollment, nil
}

// RecordGrade grades the active enrollment for the pair and refreshes the student's GPA.
// Grading again while active overwrites the previous grade.
func (s *EnrollmentService) RecordGrade(ctx context.Context, studentID, courseID string, numericGrade float64) (*models.Enrollment, error) {
	unlock := s.locks.Lock(studentID)
	defer unlock()

	enrollment, student, err := s.checkGrade(studentID, courseID, numericGrade)
	if err != nil {
		s.metrics.RecordRuleEngineOperation(OperationRecordGrade, err)
		return nil, err
	}

	enrollment.NumericGrade = numericGrade
	enrollment.LetterGrade = models.LetterGradeFromScore(numericGrade)
	enrollment.Completed = true
	enrollment.CompletionDate = models.DatePtr(s.now())

	others := s.store.ListEnrollmentsWhere(func(e models.Enrollment) bool {
		return e.StudentID == studentID && e.ID != enrollment.ID
	})
	student.CurrentGPA = ComputeGPA(append(others, enrollment), s.store.GetCourse)

	s.store.Commit(func(tx *registry.Tx) {
		tx.PutEnrollment(enrollment)
		tx.PutStudent(student)
	})

	s.afterMutation(ctx, OperationRecordGrade, studentID)
	return &enrollment, nil
}

func (s *EnrollmentService) checkGrade(studentID, courseID string, numericGrade float64) (models.Enrollment, models.Student, error) {
	student, ok := s.store.GetStudent(studentID)
	if !ok {
		return models.Enrollment{}, student, appErrors.Clone(appErrors.ErrNotFound, "student not found: "+studentID)
	}
	if _, ok := s.store.GetCourse(courseID); !ok {
		return models.Enrollment{}, student, appErrors.Clone(appErrors.ErrNotFound, "course not found: "+courseID)
	}
	enrollment, ok := s.activeEnrollment(studentID, courseID)
	if !ok {
		return enrollment, student, appErrors.Clone(appErrors.ErrNotFound, "no active enrollment for student "+studentID+" in course "+courseID)
	}
	if math.IsNaN(numericGrade) || numericGrade < 0 || numericGrade > 100 {
		return enrollment, student, appErrors.Clone(appErrors.ErrInvalidGrade, "")
	}
	return enrollment, student, nil
}

// CreditLoad sums the credit hours of the student's active enrollments.
func (s *EnrollmentService) CreditLoad(ctx context.Context, studentID string) (int, error) {
	if _, ok := s.store.GetStudent(studentID); !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "student not found: "+studentID)
	}
	return s.creditLoad(studentID), nil
}

func (s *EnrollmentService) creditLoad(studentID string) int {
	active := s.store.ListEnrollmentsWhere(func(e models.Enrollment) bool {
		return e.StudentID == studentID && e.Active
	})
	return TotalCredits(active, s.store.GetCourse)
}

// RecalculateGPA recomputes and stores the student's GPA from completed enrollments.
func (s *EnrollmentService) RecalculateGPA(ctx context.Context, studentID string) (float64, error) {
	unlock := s.locks.Lock(studentID)
	defer unlock()

	student, ok := s.store.GetStudent(studentID)
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "student not found: "+studentID)
	}
	enrollments := s.store.ListEnrollmentsWhere(func(e models.Enrollment) bool { return e.StudentID == studentID })
	student.CurrentGPA = ComputeGPA(enrollments, s.store.GetCourse)
	s.store.Commit(func(tx *registry.Tx) { tx.PutStudent(student) })
	return student.CurrentGPA, nil
}

// StudentEnrollments lists the student's enrollments matching filter.
func (s *EnrollmentService) StudentEnrollments(ctx context.Context, studentID string, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	if _, ok := s.store.GetStudent(studentID); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found: "+studentID)
	}
	return s.store.ListEnrollmentsWhere(func(e models.Enrollment) bool {
		return e.StudentID == studentID && filter.Matches(e)
	}), nil
}

// CourseEnrollments lists every enrollment of the course.
func (s *EnrollmentService) CourseEnrollments(ctx context.Context, courseID string, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	if _, ok := s.store.GetCourse(courseID); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found: "+courseID)
	}
	return s.store.ListEnrollmentsWhere(func(e models.Enrollment) bool {
		return e.CourseID == courseID && filter.Matches(e)
	}), nil
}

// Search returns enrollments matching the criteria.
func (s *EnrollmentService) Search(ctx context.Context, criteria EnrollmentSearch) []models.Enrollment {
	return s.store.ListEnrollmentsWhere(matcher(criteria, models.EnrollmentField.Value))
}

func (s *EnrollmentService) activeEnrollment(studentID, courseID string) (models.Enrollment, bool) {
	found := s.store.ListEnrollmentsWhere(func(e models.Enrollment) bool {
		return e.StudentID == studentID && e.CourseID == courseID && e.Active
	})
	if len(found) == 0 {
		return models.Enrollment{}, false
	}
	return found[0], true
}

func (s *EnrollmentService) afterMutation(ctx context.Context, operation, studentID string) {
	s.metrics.RecordRuleEngineOperation(operation, nil)
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, studentID)
	}
}

// KeyedMutex hands out one mutex per key. Services that rewrite a student share one
// instance so their read-modify-write cycles on that student serialize. Entries are
// reference counted and dropped when the last holder or waiter releases them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex constructs an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock acquires the mutex for key and returns its release func.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// LockAll acquires every key in sorted order and returns one func releasing them all.
// Callers holding a single key never wait on a second one, so sorted acquisition cannot
// deadlock against them.
func (k *KeyedMutex) LockAll(keys []string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	releases := make([]func(), 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		releases = append(releases, k.Lock(key))
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
