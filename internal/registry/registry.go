// Package registry holds the authoritative in-memory collections of students, courses,
// instructors and enrollments.
package registry

import (
	"sync"

	"github.com/noah-isme/ccrm-api/internal/models"
)

// Collection names reported by Counts.
const (
	CollectionStudents    = "students"
	CollectionCourses     = "courses"
	CollectionInstructors = "instructors"
	CollectionEnrollments = "enrollments"
)

// Snapshot is a point-in-time copy of every collection, each sorted by id.
type Snapshot struct {
	Students    []models.Student
	Courses     []models.Course
	Instructors []models.Instructor
	Enrollments []models.Enrollment
}

// Registry is the in-memory record store. The zero value is not usable; call New.
type Registry struct {
	// commitMu is held shared by every write and exclusively by Snapshot, so a snapshot
	// never observes half of a multi-entity commit.
	commitMu sync.RWMutex

	students    *collection[models.Student]
	courses     *collection[models.Course]
	instructors *collection[models.Instructor]
	enrollments *collection[models.Enrollment]
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		students:    newCollection(func(s models.Student) string { return s.ID }, models.Student.Clone),
		courses:     newCollection(func(c models.Course) string { return c.ID }, models.Course.Clone),
		instructors: newCollection(func(i models.Instructor) string { return i.ID }, models.Instructor.Clone),
		enrollments: newCollection(func(e models.Enrollment) string { return e.ID }, models.Enrollment.Clone),
	}
}

// PutStudent inserts or replaces a student by id.
func (r *Registry) PutStudent(s models.Student) {
	r.commitMu.RLock()
	defer r.commitMu.RUnlock()
	r.students.put(s)
}

// GetStudent returns a copy of the student with the given id.
func (r *Registry) GetStudent(id string) (models.Student, bool) { return r.students.get(id) }

// ListStudents returns every student sorted by id.
func (r *Registry) ListStudents() []models.Student { return r.students.list(nil) }

// ListStudentsWhere returns the students accepted by keep, sorted by id.
func (r *Registry) ListStudentsWhere(keep func(models.Student) bool) []models.Student {
	return r.students.list(keep)
}

// PutCourse inserts or replaces a course by id.
func (r *Registry) PutCourse(c models.Course) {
	r.commitMu.RLock()
	defer r.commitMu.RUnlock()
	r.courses.put(c)
}

// GetCourse returns the course with the given id.
func (r *Registry) GetCourse(id string) (models.Course, bool) { return r.courses.get(id) }

// ListCourses returns every course sorted by id.
func (r *Registry) ListCourses() []models.Course { return r.courses.list(nil) }

// ListCoursesWhere returns the courses accepted by keep, sorted by id.
func (r *Registry) ListCoursesWhere(keep func(models.Course) bool) []models.Course {
	return r.courses.list(keep)
}

// PutInstructor inserts or replaces an instructor by id.
func (r *Registry) PutInstructor(i models.Instructor) {
	r.commitMu.RLock()
	defer r.commitMu.RUnlock()
	r.instructors.put(i)
}

// GetInstructor returns the instructor with the given id.
func (r *Registry) GetInstructor(id string) (models.Instructor, bool) { return r.instructors.get(id) }

// ListInstructors returns every instructor sorted by id.
func (r *Registry) ListInstructors() []models.Instructor { return r.instructors.list(nil) }

// ListInstructorsWhere returns the instructors accepted by keep, sorted by id.
func (r *Registry) ListInstructorsWhere(keep func(models.Instructor) bool) []models.Instructor {
	return r.instructors.list(keep)
}

// PutEnrollment inserts or replaces an enrollment by id.
func (r *Registry) PutEnrollment(e models.Enrollment) {
	r.commitMu.RLock()
	defer r.commitMu.RUnlock()
	r.enrollments.put(e)
}

// GetEnrollment returns the enrollment with the given id.
func (r *Registry) GetEnrollment(id string) (models.Enrollment, bool) { return r.enrollments.get(id) }

// ListEnrollments returns every enrollment sorted by id.
func (r *Registry) ListEnrollments() []models.Enrollment { return r.enrollments.list(nil) }

// ListEnrollmentsWhere returns the enrollments accepted by keep, sorted by id.
func (r *Registry) ListEnrollmentsWhere(keep func(models.Enrollment) bool) []models.Enrollment {
	return r.enrollments.list(keep)
}

// Tx collects puts applied by Commit.
type Tx struct {
	r *Registry
}

// PutStudent stages a student write.
func (tx *Tx) PutStudent(s models.Student) { tx.r.students.put(s) }

// PutCourse stages a course write.
func (tx *Tx) PutCourse(c models.Course) { tx.r.courses.put(c) }

// PutInstructor stages an instructor write.
func (tx *Tx) PutInstructor(i models.Instructor) { tx.r.instructors.put(i) }

// PutEnrollment stages an enrollment write.
func (tx *Tx) PutEnrollment(e models.Enrollment) { tx.r.enrollments.put(e) }

// Commit runs fn so that its writes appear together to Snapshot. Commits from different
// goroutines may interleave; callers serialise related writes themselves.
func (r *Registry) Commit(fn func(tx *Tx)) {
	r.commitMu.RLock()
	defer r.commitMu.RUnlock()
	fn(&Tx{r: r})
}

// Snapshot copies every collection while no commit is in flight.
func (r *Registry) Snapshot() Snapshot {
	r.commitMu.Lock()
	defer r.commitMu.Unlock()
	return Snapshot{
		Students:    r.students.list(nil),
		Courses:     r.courses.list(nil),
		Instructors: r.instructors.list(nil),
		Enrollments: r.enrollments.list(nil),
	}
}

// Restore puts every entity of snap as one commit. Existing entities with other ids stay.
func (r *Registry) Restore(snap Snapshot) {
	r.Commit(func(tx *Tx) {
		for _, c := range snap.Courses {
			tx.PutCourse(c)
		}
		for _, i := range snap.Instructors {
			tx.PutInstructor(i)
		}
		for _, s := range snap.Students {
			tx.PutStudent(s)
		}
		for _, e := range snap.Enrollments {
			tx.PutEnrollment(e)
		}
	})
}

// Counts returns the size of each collection.
func (r *Registry) Counts() map[string]int {
	return map[string]int{
		CollectionStudents:    r.students.len(),
		CollectionCourses:     r.courses.len(),
		CollectionInstructors: r.instructors.len(),
		CollectionEnrollments: r.enrollments.len(),
	}
}
