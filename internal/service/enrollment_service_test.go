package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/registry"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

type invalidatorStub struct {
	mu       sync.Mutex
	students []string
}

func (s *invalidatorStub) Invalidate(_ context.Context, studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = append(s.students, studentID)
}

var fixedNow = time.Date(2024, time.March, 4, 15, 30, 0, 0, time.UTC)

func seedRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	reg.PutStudent(models.Student{Person: models.Person{ID: "S1", FullName: "Ann Lee"}, RegistrationNumber: "R1", Active: true})
	reg.PutStudent(models.Student{Person: models.Person{ID: "S2", FullName: "Ben Ode"}, RegistrationNumber: "R2", Active: false})
	credits := map[string]int{"C1": 3, "C2": 4, "C3": 4, "C4": 4, "C5": 4, "C6": 3, "C7": 1}
	for id, ch := range credits {
		reg.PutCourse(models.Course{ID: id, Code: "CODE" + id, Title: "Course " + id, CreditHours: ch,
			Semester: models.SemesterFall, Department: models.DepartmentMathematics, Active: true})
	}
	reg.PutCourse(models.Course{ID: "CX", Code: "OLD", Title: "Retired", CreditHours: 3,
		Semester: models.SemesterSpring, Department: models.DepartmentHistory, Active: false})
	return reg
}

func newRuleEngine(reg *registry.Registry) *EnrollmentService {
	svc := NewEnrollmentService(reg, nil, 18, nil, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestEnrollCreatesActiveEnrollment(t *testing.T) {
	reg := seedRegistry(t)
	svc := newRuleEngine(reg)
	inv := &invalidatorStub{}
	svc.SetTranscriptInvalidator(inv)

	enrollment, err := svc.Enroll(context.Background(), "S1", "C1")
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.True(t, enrollment.Active)
	assert.False(t, enrollment.Completed)
	assert.Equal(t, models.DateOf(fixedNow), enrollment.EnrollmentDate)

	student, _ := reg.GetStudent("S1")
	assert.Equal(t, []string{"C1"}, student.EnrolledCourseIDs)
	stored, ok := reg.GetEnrollment(enrollment.ID)
	require.True(t, ok)
	assert.Equal(t, *enrollment, stored)
	assert.Equal(t, []string{"S1"}, inv.students)
}

func TestEnrollFailureModes(t *testing.T) {
	reg := seedRegistry(t)
	svc := newRuleEngine(reg)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "nobody", "C1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Enroll(ctx, "S1", "nothing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Enroll(ctx, "S2", "C1")
	assert.Equal(t, appErrors.ErrInactive.Code, appErrors.FromError(err).Code)

	_, err = svc.Enroll(ctx, "S1", "CX")
	assert.Equal(t, appErrors.ErrInactive.Code, appErrors.FromError(err).Code)

	_, err = svc.Enroll(ctx, "S1", "C1")
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, "S1", "C1")
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
	assert.Len(t, reg.ListEnrollments(), 1)
}

func TestEnrollCreditLimit(t *testing.T) {
	reg := seedRegistry(t)
	svc := newRuleEngine(reg)
	ctx := context.Background()

	for _, id := range []string{"C2", "C3", "C4", "C5"} {
		_, err := svc.Enroll(ctx, "S1", id)
		require.NoError(t, err)
	}
	load, err := svc.CreditLoad(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 16, load)
	assert.False(t, svc.CanEnroll("S1", "C6"))

	_, err = svc.Enroll(ctx, "S1", "C6")
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrCreditLimitExceeded.Code, appErr.Code)
	assert.Equal(t, 19, appErr.Details["attempted_credits"])
	assert.Equal(t, 18, appErr.Details["max_credits"])
	assert.Len(t, reg.ListEnrollments(), 4)

	assert.True(t, svc.CanEnroll("S1", "C7"))
	_, err = svc.Enroll(ctx, "S1", "C7")
	require.NoError(t, err)
	load, _ = svc.CreditLoad(ctx, "S1")
	assert.Equal(t, 17, load)
}

func TestWithdrawThenReenrollCreatesNewEnrollment(t *testing.T) {
	reg := seedRegistry(t)
	svc := newRuleEngine(reg)
	ctx := context.Background()

	first, err := svc.Enroll(ctx, "S1", "C1")
	require.NoError(t, err)
	withdrawn, err := svc.Withdraw(ctx, "S1", "C1")
	require.NoError(t, err)
	assert.False(t, withdrawn.Active)
	require.NotNil(t, withdrawn.CompletionDate)

	student, _ := reg.GetStudent("S1")
	assert.Empty(t, student.EnrolledCourseIDs)
	load, _ := svc.CreditLoad(ctx, "S1")
	assert.Zero(t, load)

	_, err = svc.Withdraw(ctx, "S1", "C1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	second, err := svc.Enroll(ctx, "S1", "C1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	old, _ := reg.GetEnrollment(first.ID)
	assert.False(t, old.Active)
	assert.Len(t, reg.ListEnrollments(), 2)
}

func TestRecordGradeUpdatesGPA(t *testing.T) {
	reg := seedRegistry(t)
	svc := newRuleEngine(reg)
	ctx := context.Background()

	for _, id := range []string{"C1", "C2"} {
		_, err := svc.Enroll(ctx, "S1", id)
		require.NoError(t, err)
	}

	graded, err := svc.RecordGrade(ctx, "S1", "C1", 95)
	require.NoError(t, err)
	assert.Equal(t, models.GradeA, graded.LetterGrade)
	assert.True(t, graded.Completed)
	assert.True(t, graded.Active)

	_, err = svc.RecordGrade(ctx, "S1", "C2", 85)
	require.NoError(t, err)

	student, _ := reg.GetStudent("S1")
	assert.InDelta(t, 24.0/7.0, student.CurrentGPA, 1e-12)
	assert.Equal(t, 3.43, RoundGPA(student.CurrentGPA))

	regraded, err := svc.RecordGrade(ctx, "S1", "C1", 97)
	require.NoError(t, err)
	assert.Equal(t, models.GradeAPlus, regraded.LetterGrade)
	assert.Equal(t, 97.0, regraded.NumericGrade)
}

func TestRecordGradeRejections(t *testing.T) {
	reg := seedRegistry(t)
	svc := newRuleEngine(reg)
	ctx := context.Background()

	_, err := svc.RecordGrade(ctx, "S1", "C1", 80)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Enroll(ctx, "S1", "C1")
	require.NoError(t, err)
	for _, bad := range []float64{-0.1, 100.01, math.NaN()} {
		_, err = svc.RecordGrade(ctx, "S1", "C1", bad)
		assert.Equal(t, appErrors.ErrInvalidGrade.Code, appErrors.FromError(err).Code)
	}

	graded, err := svc.RecordGrade(ctx, "S1", "C1", 88)
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, "S1", "C1")
	require.NoError(t, err)

	_, err = svc.RecordGrade(ctx, "S1", "C1", 40)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	stored, _ := reg.GetEnrollment(graded.ID)
	assert.Equal(t, 88.0, stored.NumericGrade)
	assert.Equal(t, models.GradeBPlus, stored.LetterGrade)
	assert.True(t, stored.Completed)
	assert.False(t, stored.Active)
}

func TestConcurrentEnrollsRespectCreditLimit(t *testing.T) {
	reg := registry.New()
	reg.PutStudent(models.Student{Person: models.Person{ID: "S1"}, Active: true})
	for i := 0; i < 12; i++ {
		reg.PutCourse(models.Course{ID: fmt.Sprintf("C%02d", i), CreditHours: 4, Active: true})
	}
	svc := newRuleEngine(reg)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.Enroll(context.Background(), "S1", fmt.Sprintf("C%02d", i))
		}(i)
	}
	wg.Wait()

	load, err := svc.CreditLoad(context.Background(), "S1")
	require.NoError(t, err)
	assert.LessOrEqual(t, load, 18)
	assert.Equal(t, 16, load)
	student, _ := reg.GetStudent("S1")
	assert.Len(t, student.EnrolledCourseIDs, 4)
}

func TestStudentAndCourseEnrollmentListings(t *testing.T) {
	reg := seedRegistry(t)
	svc := newRuleEngine(reg)
	ctx := context.Background()

	for _, id := range []string{"C1", "C2"} {
		_, err := svc.Enroll(ctx, "S1", id)
		require.NoError(t, err)
	}
	_, err := svc.RecordGrade(ctx, "S1", "C1", 75)
	require.NoError(t, err)

	completed := true
	rows, err := svc.StudentEnrollments(ctx, "S1", models.EnrollmentFilter{Completed: &completed})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C1", rows[0].CourseID)

	rows, err = svc.CourseEnrollments(ctx, "C2", models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = svc.StudentEnrollments(ctx, "ghost", models.EnrollmentFilter{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	criteria, err := ParseEnrollmentSearch(models.SearchRequest{Field: "grade", Operator: "equals", Value: "c"})
	require.NoError(t, err)
	found := svc.Search(ctx, criteria)
	require.Len(t, found, 1)
	assert.Equal(t, "C1", found[0].CourseID)
}

func TestRecalculateGPA(t *testing.T) {
	reg := seedRegistry(t)
	reg.PutEnrollment(models.Enrollment{ID: "E1", StudentID: "S1", CourseID: "C1", Completed: true, NumericGrade: 91})
	svc := newRuleEngine(reg)

	gpa, err := svc.RecalculateGPA(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, 3.7, gpa)
	student, _ := reg.GetStudent("S1")
	assert.Equal(t, 3.7, student.CurrentGPA)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	locks := NewKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("S1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.size())

	release := locks.LockAll([]string{"S2", "S1", "S2"})
	assert.Equal(t, 2, locks.size())

	acquired := make(chan struct{})
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("S1")
		close(acquired)
		unlock()
		close(done)
	}()
	select {
	case <-acquired:
		t.Fatal("S1 acquired while held by LockAll")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	<-done
	assert.Equal(t, 0, locks.size())
}
