package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/registry"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/interchange"
	"github.com/noah-isme/ccrm-api/pkg/storage"
)

func TestInterchangeExportImportRoundTrip(t *testing.T) {
	reg := seedRegistry(t)
	rules := newRuleEngine(reg)
	ctx := context.Background()
	for _, id := range []string{"C1", "C2"} {
		_, err := rules.Enroll(ctx, "S1", id)
		require.NoError(t, err)
	}
	_, err := rules.RecordGrade(ctx, "S1", "C1", 95)
	require.NoError(t, err)
	_, err = rules.Withdraw(ctx, "S1", "C2")
	require.NoError(t, err)
	reg.PutInstructor(models.Instructor{Person: models.Person{ID: "I1", FullName: "Dr. Ray"}, EmployeeID: "E1", Active: true, AssignedCourseIDs: []string{"C1"}})

	dir := t.TempDir()
	svc := NewInterchangeService(reg, nil, nil, nil, InterchangeConfig{DataDir: dir}, nil)
	report, err := svc.ExportAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, report.Files, 4)
	assert.Equal(t, 2, report.Rows[interchange.EnrollmentsFile])
	for _, f := range report.Files {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	fresh := registry.New()
	importer := NewInterchangeService(fresh, nil, nil, nil, InterchangeConfig{DataDir: dir}, nil)
	imported, err := importer.ImportAll(ctx, dir)
	require.NoError(t, err)
	assert.Empty(t, imported.Skipped)
	assert.Equal(t, 2, imported.Enrollments)
	assert.Equal(t, 1, imported.Instructors)
	assert.Equal(t, reg.Counts(), fresh.Counts())

	student, ok := fresh.GetStudent("S1")
	require.True(t, ok)
	assert.Equal(t, []string{"C1"}, student.EnrolledCourseIDs)
	original, _ := reg.GetStudent("S1")
	assert.InDelta(t, original.CurrentGPA, student.CurrentGPA, 1e-9)
}

func TestInterchangeImportRequiresCoreFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, interchange.StudentsFile), []byte(strings.Join(interchange.StudentHeader, ",")+"\n"), 0o644))

	reg := registry.New()
	reg.PutStudent(models.Student{Person: models.Person{ID: "KEEP"}, Active: true})
	svc := NewInterchangeService(reg, nil, nil, nil, InterchangeConfig{DataDir: dir}, nil)

	_, err := svc.ImportAll(context.Background(), dir)
	assert.Equal(t, appErrors.ErrIOFailure.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, reg.Counts()[registry.CollectionStudents])
}

func TestInterchangeImportSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, header []string, rows ...string) {
		body := strings.Join(header, ",") + "\n" + strings.Join(rows, "\n") + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write(interchange.StudentsFile, interchange.StudentHeader,
		"S1,R1,Ann Lee,ann@example.com,,,2024-01-10,true,0",
		"S2,R2,Bad Row",
	)
	write(interchange.CoursesFile, interchange.CourseHeader,
		"C1,CS101,Intro,3,,FALL,COMPUTER_SCIENCE,,true",
	)
	write(interchange.EnrollmentsFile, interchange.EnrollmentHeader,
		"E1,S1,C1,2024-01-12,,0,,false,true",
	)

	reg := registry.New()
	svc := NewInterchangeService(reg, nil, nil, NewMetricsService(), InterchangeConfig{DataDir: dir}, nil)
	report, err := svc.ImportAll(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Students)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, interchange.StudentsFile, report.Skipped[0].File)
	assert.Equal(t, 3, report.Skipped[0].Line)

	student, ok := reg.GetStudent("S1")
	require.True(t, ok)
	assert.Equal(t, []string{"C1"}, student.EnrolledCourseIDs)
}

func TestInterchangeSignedDownloads(t *testing.T) {
	dir := t.TempDir()
	reg := seedRegistry(t)
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	svc := NewInterchangeService(reg, nil, signer, nil, InterchangeConfig{DataDir: dir, APIPrefix: "/api/v1"}, nil)

	report, err := svc.ExportAll(context.Background(), "")
	require.NoError(t, err)
	links, err := svc.DownloadLinks(report)
	require.NoError(t, err)
	require.Len(t, links, 4)
	assert.True(t, strings.HasPrefix(links[0].URL, "/api/v1/interchange/files/"))

	token := strings.TrimPrefix(links[0].URL, "/api/v1/interchange/files/")
	f, name, err := svc.OpenSigned(token)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, links[0].File, name)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.NotEmpty(t, body)

	_, _, err = svc.OpenSigned(token + "x")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	other, _, err := signer.Generate("data", "../secret.txt")
	require.NoError(t, err)
	_, _, err = svc.OpenSigned(other)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

// enrollDuringList runs during once, right after ListStudents has taken its copy.
type enrollDuringList struct {
	*registry.Registry
	once   sync.Once
	during func()
}

func (s *enrollDuringList) ListStudents() []models.Student {
	students := s.Registry.ListStudents()
	s.once.Do(s.during)
	return students
}

func TestRebuildEnrolledSetsKeepsConcurrentEnroll(t *testing.T) {
	reg := seedRegistry(t)
	locks := NewKeyedMutex()
	rules := NewEnrollmentService(reg, locks, 18, nil, nil)
	store := &enrollDuringList{Registry: reg, during: func() {
		_, err := rules.Enroll(context.Background(), "S1", "C1")
		require.NoError(t, err)
	}}

	RebuildEnrolledSets(store, locks)

	student, _ := reg.GetStudent("S1")
	assert.Equal(t, []string{"C1"}, student.EnrolledCourseIDs)
	load, err := rules.CreditLoad(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, 3, load)
}

func TestSeedEnrolledSetsFromSnapshotRows(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, time.February, d, 0, 0, 0, 0, time.UTC) }
	snap := registry.Snapshot{
		Students: []models.Student{
			{Person: models.Person{ID: "S1"}, EnrolledCourseIDs: []string{"C9"}},
			{Person: models.Person{ID: "S2"}, EnrolledCourseIDs: []string{"C1"}},
		},
		Enrollments: []models.Enrollment{
			{ID: "E2", StudentID: "S1", CourseID: "C2", EnrollmentDate: day(5), Active: true},
			{ID: "E1", StudentID: "S1", CourseID: "C1", EnrollmentDate: day(5), Active: true},
			{ID: "E0", StudentID: "S1", CourseID: "C3", EnrollmentDate: day(1), Active: true},
			{ID: "E3", StudentID: "S1", CourseID: "C4", EnrollmentDate: day(1), Active: false},
		},
	}

	SeedEnrolledSets(&snap)

	assert.Equal(t, []string{"C3", "C1", "C2"}, snap.Students[0].EnrolledCourseIDs)
	assert.Empty(t, snap.Students[1].EnrolledCourseIDs)
}
