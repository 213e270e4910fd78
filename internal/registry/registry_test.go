package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm-api/internal/models"
)

func sampleStudent(id string) models.Student {
	return models.Student{
		Person:             models.Person{ID: id, FullName: "Student " + id, Email: id + "@campus.local"},
		RegistrationNumber: "REG-" + id,
		Active:             true,
		EnrollmentDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		EnrolledCourseIDs:  []string{"C1"},
	}
}

func TestRegistryPutGetReplaces(t *testing.T) {
	r := New()
	r.PutStudent(sampleStudent("S1"))

	updated := sampleStudent("S1")
	updated.FullName = "Renamed"
	updated.EnrolledCourseIDs = nil
	r.PutStudent(updated)

	got, ok := r.GetStudent("S1")
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.FullName)
	assert.Empty(t, got.EnrolledCourseIDs)

	_, ok = r.GetStudent("missing")
	assert.False(t, ok)
}

func TestRegistryReturnsCopies(t *testing.T) {
	r := New()
	dob := time.Date(2001, 5, 2, 0, 0, 0, 0, time.UTC)
	s := sampleStudent("S1")
	s.DateOfBirth = &dob
	r.PutStudent(s)

	s.EnrolledCourseIDs[0] = "mutated-before"
	got, _ := r.GetStudent("S1")
	got.EnrolledCourseIDs[0] = "mutated-after"
	*got.DateOfBirth = time.Time{}
	got.Active = false

	again, _ := r.GetStudent("S1")
	assert.Equal(t, []string{"C1"}, again.EnrolledCourseIDs)
	assert.Equal(t, dob, *again.DateOfBirth)
	assert.True(t, again.Active)
}

func TestRegistryListSortedAndFiltered(t *testing.T) {
	r := New()
	for _, id := range []string{"C3", "C1", "C2"} {
		r.PutCourse(models.Course{ID: id, Code: "CODE-" + id, CreditHours: 3, Active: id != "C2"})
	}

	all := r.ListCourses()
	require.Len(t, all, 3)
	assert.Equal(t, "C1", all[0].ID)
	assert.Equal(t, "C3", all[2].ID)

	active := r.ListCoursesWhere(func(c models.Course) bool { return c.Active })
	require.Len(t, active, 2)
	assert.Equal(t, []string{"C1", "C3"}, []string{active[0].ID, active[1].ID})
}

func TestRegistrySnapshotAndRestore(t *testing.T) {
	src := New()
	src.PutStudent(sampleStudent("S1"))
	src.PutCourse(models.Course{ID: "C1", CreditHours: 4})
	src.PutInstructor(models.Instructor{Person: models.Person{ID: "I1"}, AssignedCourseIDs: []string{"C1"}})
	src.Commit(func(tx *Tx) {
		tx.PutEnrollment(models.Enrollment{ID: "E1", StudentID: "S1", CourseID: "C1", Active: true})
	})

	snap := src.Snapshot()
	dst := New()
	dst.Restore(snap)

	assert.Equal(t, map[string]int{
		CollectionStudents:    1,
		CollectionCourses:     1,
		CollectionInstructors: 1,
		CollectionEnrollments: 1,
	}, dst.Counts())
	e, ok := dst.GetEnrollment("E1")
	require.True(t, ok)
	assert.Equal(t, "S1", e.StudentID)
}

func TestRegistrySnapshotSeesWholeCommits(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("S%03d", i)
			r.Commit(func(tx *Tx) {
				tx.PutStudent(sampleStudent(id))
				tx.PutEnrollment(models.Enrollment{ID: "E" + id, StudentID: id, CourseID: "C1", Active: true})
			})
		}(i)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			snap := r.Snapshot()
			assert.Equal(t, len(snap.Students), len(snap.Enrollments))
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, 50, r.Counts()[CollectionStudents])
}
