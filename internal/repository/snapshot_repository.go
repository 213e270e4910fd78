package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ccrm-api/internal/registry"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS ccrm_students (
	id TEXT PRIMARY KEY,
	registration_number TEXT NOT NULL,
	full_name TEXT NOT NULL,
	email TEXT NOT NULL,
	date_of_birth DATE,
	phone_number TEXT NOT NULL DEFAULT '',
	enrollment_date DATE,
	active BOOLEAN NOT NULL,
	current_gpa DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS ccrm_courses (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	title TEXT NOT NULL,
	credit_hours INTEGER NOT NULL,
	instructor_id TEXT NOT NULL DEFAULT '',
	semester TEXT NOT NULL,
	department TEXT NOT NULL,
	active BOOLEAN NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS ccrm_instructors (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	full_name TEXT NOT NULL,
	email TEXT NOT NULL,
	date_of_birth DATE,
	phone_number TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	hire_date DATE,
	active BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS ccrm_instructor_courses (
	instructor_id TEXT NOT NULL,
	course_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (instructor_id, course_id)
);
CREATE TABLE IF NOT EXISTS ccrm_enrollments (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL,
	course_id TEXT NOT NULL,
	enrollment_date DATE,
	completion_date DATE,
	numeric_grade DOUBLE PRECISION NOT NULL DEFAULT 0,
	letter_grade TEXT NOT NULL DEFAULT '',
	completed BOOLEAN NOT NULL,
	active BOOLEAN NOT NULL
);`

const (
	insertStudentQuery    = `INSERT INTO ccrm_students (id, registration_number, full_name, email, date_of_birth, phone_number, enrollment_date, active, current_gpa) VALUES (:id, :registration_number, :full_name, :email, :date_of_birth, :phone_number, :enrollment_date, :active, :current_gpa)`
	insertCourseQuery     = `INSERT INTO ccrm_courses (id, code, title, credit_hours, instructor_id, semester, department, active, description) VALUES (:id, :code, :title, :credit_hours, :instructor_id, :semester, :department, :active, :description)`
	insertInstructorQuery = `INSERT INTO ccrm_instructors (id, employee_id, full_name, email, date_of_birth, phone_number, department, title, hire_date, active) VALUES (:id, :employee_id, :full_name, :email, :date_of_birth, :phone_number, :department, :title, :hire_date, :active)`
	insertAssignmentQuery = `INSERT INTO ccrm_instructor_courses (instructor_id, course_id, position) VALUES ($1, $2, $3)`
	insertEnrollmentQuery = `INSERT INTO ccrm_enrollments (id, student_id, course_id, enrollment_date, completion_date, numeric_grade, letter_grade, completed, active) VALUES (:id, :student_id, :course_id, :enrollment_date, :completion_date, :numeric_grade, :letter_grade, :completed, :active)`
)

// snapshotTables lists mirror tables in delete order.
var snapshotTables = []string{"ccrm_enrollments", "ccrm_instructor_courses", "ccrm_instructors", "ccrm_courses", "ccrm_students"}

type instructorCourse struct {
	InstructorID string `db:"instructor_id"`
	CourseID     string `db:"course_id"`
}

// SnapshotRepository mirrors a full registry snapshot into PostgreSQL.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// EnsureSchema creates the mirror tables when missing.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

// Replace deletes every mirrored row and inserts snap within one transaction.
func (r *SnapshotRepository) Replace(ctx context.Context, snap registry.Snapshot) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range snapshotTables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i := range snap.Students {
		if _, err = tx.NamedExecContext(ctx, insertStudentQuery, &snap.Students[i]); err != nil {
			return fmt.Errorf("insert student %s: %w", snap.Students[i].ID, err)
		}
	}
	for i := range snap.Courses {
		if _, err = tx.NamedExecContext(ctx, insertCourseQuery, &snap.Courses[i]); err != nil {
			return fmt.Errorf("insert course %s: %w", snap.Courses[i].ID, err)
		}
	}
	for i := range snap.Instructors {
		instructor := &snap.Instructors[i]
		if _, err = tx.NamedExecContext(ctx, insertInstructorQuery, instructor); err != nil {
			return fmt.Errorf("insert instructor %s: %w", instructor.ID, err)
		}
		for pos, courseID := range instructor.AssignedCourseIDs {
			if _, err = tx.ExecContext(ctx, insertAssignmentQuery, instructor.ID, courseID, pos); err != nil {
				return fmt.Errorf("insert assignment %s/%s: %w", instructor.ID, courseID, err)
			}
		}
	}
	for i := range snap.Enrollments {
		if _, err = tx.NamedExecContext(ctx, insertEnrollmentQuery, &snap.Enrollments[i]); err != nil {
			return fmt.Errorf("insert enrollment %s: %w", snap.Enrollments[i].ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace snapshot: %w", err)
	}
	return nil
}

// Load reads the mirrored snapshot. Enrolled course sets are left empty.
func (r *SnapshotRepository) Load(ctx context.Context) (registry.Snapshot, error) {
	var snap registry.Snapshot

	if err := r.db.SelectContext(ctx, &snap.Students, `SELECT id, registration_number, full_name, email, date_of_birth, phone_number, enrollment_date, active, current_gpa FROM ccrm_students ORDER BY id`); err != nil {
		return snap, fmt.Errorf("load students: %w", err)
	}
	if err := r.db.SelectContext(ctx, &snap.Courses, `SELECT id, code, title, credit_hours, instructor_id, semester, department, active, description FROM ccrm_courses ORDER BY id`); err != nil {
		return snap, fmt.Errorf("load courses: %w", err)
	}
	if err := r.db.SelectContext(ctx, &snap.Instructors, `SELECT id, employee_id, full_name, email, date_of_birth, phone_number, department, title, hire_date, active FROM ccrm_instructors ORDER BY id`); err != nil {
		return snap, fmt.Errorf("load instructors: %w", err)
	}
	var assignments []instructorCourse
	if err := r.db.SelectContext(ctx, &assignments, `SELECT instructor_id, course_id FROM ccrm_instructor_courses ORDER BY instructor_id, position`); err != nil {
		return snap, fmt.Errorf("load instructor courses: %w", err)
	}
	byInstructor := make(map[string][]string, len(snap.Instructors))
	for _, a := range assignments {
		byInstructor[a.InstructorID] = append(byInstructor[a.InstructorID], a.CourseID)
	}
	for i := range snap.Instructors {
		snap.Instructors[i].AssignedCourseIDs = byInstructor[snap.Instructors[i].ID]
	}
	if err := r.db.SelectContext(ctx, &snap.Enrollments, `SELECT id, student_id, course_id, enrollment_date, completion_date, numeric_grade, letter_grade, completed, active FROM ccrm_enrollments ORDER BY id`); err != nil {
		return snap, fmt.Errorf("load enrollments: %w", err)
	}
	return snap, nil
}

// Count returns the number of mirrored rows per collection.
func (r *SnapshotRepository) Count(ctx context.Context) (map[string]int, error) {
	tables := map[string]string{
		registry.CollectionStudents:    "ccrm_students",
		registry.CollectionCourses:     "ccrm_courses",
		registry.CollectionInstructors: "ccrm_instructors",
		registry.CollectionEnrollments: "ccrm_enrollments",
	}
	counts := make(map[string]int, len(tables))
	for _, name := range []string{registry.CollectionStudents, registry.CollectionCourses, registry.CollectionInstructors, registry.CollectionEnrollments} {
		var n int
		if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+tables[name]); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}
