package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/registry"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/interchange"
	"github.com/noah-isme/ccrm-api/pkg/storage"
)

// downloadScope labels signed tokens issued for data directory files.
const downloadScope = "data"

type interchangeStore interface {
	Snapshot() registry.Snapshot
	Restore(snap registry.Snapshot)
	Counts() map[string]int
	enrolledSetStore
}

type enrolledSetStore interface {
	ListStudents() []models.Student
	GetStudent(id string) (models.Student, bool)
	ListEnrollmentsWhere(keep func(models.Enrollment) bool) []models.Enrollment
	Commit(fn func(tx *registry.Tx))
}

// InterchangeConfig tunes the interchange service.
type InterchangeConfig struct {
	DataDir   string
	APIPrefix string
}

// InterchangeService moves registry contents to and from the interchange files. Imports do
// not pass through the enrollment rules; the files are trusted as a snapshot.
type InterchangeService struct {
	store   interchangeStore
	locks   *KeyedMutex
	signer  *storage.SignedURLSigner
	metrics *MetricsService
	logger  *zap.Logger
	cfg     InterchangeConfig
}

// NewInterchangeService constructs InterchangeService. locks must be the instance shared with
// the enrollment service. signer may be nil when download links are not needed.
func NewInterchangeService(store interchangeStore, locks *KeyedMutex, signer *storage.SignedURLSigner, metrics *MetricsService, cfg InterchangeConfig, logger *zap.Logger) *InterchangeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	return &InterchangeService{store: store, locks: locks, signer: signer, metrics: metrics, logger: logger, cfg: cfg}
}

// DataDir returns the default interchange directory.
func (s *InterchangeService) DataDir() string {
	return s.cfg.DataDir
}

// ExportAll writes the four interchange files into dir, defaulting to the data directory.
func (s *InterchangeService) ExportAll(ctx context.Context, dir string) (*models.ExportReport, error) {
	if dir == "" {
		dir = s.cfg.DataDir
	}
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, ioFailure(err, "failed to prepare export directory")
	}

	snap := s.store.Snapshot()
	writers := []struct {
		file   string
		rows   int
		encode func(io.Writer) error
	}{
		{interchange.StudentsFile, len(snap.Students), func(w io.Writer) error { return interchange.EncodeStudents(w, snap.Students) }},
		{interchange.CoursesFile, len(snap.Courses), func(w io.Writer) error { return interchange.EncodeCourses(w, snap.Courses) }},
		{interchange.EnrollmentsFile, len(snap.Enrollments), func(w io.Writer) error { return interchange.EncodeEnrollments(w, snap.Enrollments) }},
		{interchange.InstructorsFile, len(snap.Instructors), func(w io.Writer) error { return interchange.EncodeInstructors(w, snap.Instructors) }},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range writers {
		w := w
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := store.SaveStream(w.file, w.encode)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ioFailure(err, "failed to write interchange files")
	}

	report := &models.ExportReport{Dir: dir, Rows: make(map[string]int, len(writers))}
	for _, w := range writers {
		report.Files = append(report.Files, w.file)
		report.Rows[w.file] = w.rows
	}
	s.logger.Info("interchange export complete", zap.String("dir", dir), zap.Any("rows", report.Rows))
	return report, nil
}

type decodedFiles struct {
	mu      sync.Mutex
	snap    registry.Snapshot
	skipped []models.SkippedRow
}

func (d *decodedFiles) addSkipped(file string, report interchange.DecodeReport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, row := range report.Skipped {
		d.skipped = append(d.skipped, models.SkippedRow{File: file, Line: row.Line, Reason: row.Reason})
	}
}

// ImportAll loads the interchange files from dir into the registry. The students, courses and
// enrollments files are required; nothing is restored when one is missing or unreadable.
// Malformed rows are skipped and reported.
func (s *InterchangeService) ImportAll(ctx context.Context, dir string) (*models.ImportReport, error) {
	if dir == "" {
		dir = s.cfg.DataDir
	}
	for _, required := range []string{interchange.StudentsFile, interchange.CoursesFile, interchange.EnrollmentsFile} {
		if _, err := os.Stat(filepath.Join(dir, required)); err != nil {
			return nil, ioFailure(err, "missing interchange file "+required)
		}
	}
	_, instructorsErr := os.Stat(filepath.Join(dir, interchange.InstructorsFile))
	hasInstructors := instructorsErr == nil

	decoded := &decodedFiles{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.decodeFile(gctx, dir, interchange.StudentsFile, decoded, func(r io.Reader) (int, interchange.DecodeReport, error) {
			rows, report, err := interchange.DecodeStudents(r)
			decoded.snap.Students = rows
			return len(rows), report, err
		})
	})
	g.Go(func() error {
		return s.decodeFile(gctx, dir, interchange.CoursesFile, decoded, func(r io.Reader) (int, interchange.DecodeReport, error) {
			rows, report, err := interchange.DecodeCourses(r)
			decoded.snap.Courses = rows
			return len(rows), report, err
		})
	})
	g.Go(func() error {
		return s.decodeFile(gctx, dir, interchange.EnrollmentsFile, decoded, func(r io.Reader) (int, interchange.DecodeReport, error) {
			rows, report, err := interchange.DecodeEnrollments(r)
			decoded.snap.Enrollments = rows
			return len(rows), report, err
		})
	})
	if hasInstructors {
		g.Go(func() error {
			return s.decodeFile(gctx, dir, interchange.InstructorsFile, decoded, func(r io.Reader) (int, interchange.DecodeReport, error) {
				rows, report, err := interchange.DecodeInstructors(r)
				decoded.snap.Instructors = rows
				return len(rows), report, err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ioFailure(err, "failed to read interchange files")
	}

	SeedEnrolledSets(&decoded.snap)
	s.store.Restore(decoded.snap)
	RebuildEnrolledSets(s.store, s.locks)

	sort.SliceStable(decoded.skipped, func(i, j int) bool {
		if decoded.skipped[i].File != decoded.skipped[j].File {
			return decoded.skipped[i].File < decoded.skipped[j].File
		}
		return decoded.skipped[i].Line < decoded.skipped[j].Line
	})
	report := &models.ImportReport{
		Students:    len(decoded.snap.Students),
		Courses:     len(decoded.snap.Courses),
		Enrollments: len(decoded.snap.Enrollments),
		Instructors: len(decoded.snap.Instructors),
		Skipped:     decoded.skipped,
		Counts:      s.store.Counts(),
	}
	s.logger.Info("interchange import complete",
		zap.String("dir", dir),
		zap.Int("students", report.Students),
		zap.Int("courses", report.Courses),
		zap.Int("enrollments", report.Enrollments),
		zap.Int("instructors", report.Instructors),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

func (s *InterchangeService) decodeFile(ctx context.Context, dir, file string, decoded *decodedFiles, decode func(io.Reader) (int, interchange.DecodeReport, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(dir, file))
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close() //nolint:errcheck

	rows, report, err := decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", file, err)
	}
	for _, skipped := range report.Skipped {
		s.logger.Warn("skipped malformed record", zap.String("file", file), zap.Int("line", skipped.Line), zap.String("reason", skipped.Reason))
	}
	decoded.addSkipped(file, report)
	s.metrics.RecordInterchangeRows(file, rows, len(report.Skipped))
	return nil
}

// DownloadLinks signs a URL for each file in the report.
func (s *InterchangeService) DownloadLinks(report *models.ExportReport) ([]models.DownloadLink, error) {
	if s.signer == nil || report == nil {
		return nil, nil
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	links := make([]models.DownloadLink, 0, len(report.Files))
	for _, file := range report.Files {
		token, expiresAt, err := s.signer.Generate(downloadScope, file)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
		}
		links = append(links, models.DownloadLink{
			File:      file,
			URL:       fmt.Sprintf("%s/interchange/files/%s", prefix, token),
			ExpiresAt: expiresAt,
		})
	}
	return links, nil
}

// OpenSigned validates a download token and opens the referenced data file.
func (s *InterchangeService) OpenSigned(token string) (*os.File, string, error) {
	if s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnavailable, "downloads disabled")
	}
	scope, file, err := s.signer.Parse(token)
	if err != nil || scope != downloadScope || !isInterchangeFile(file) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	f, err := os.Open(filepath.Join(s.cfg.DataDir, file))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found: "+file)
		}
		return nil, "", ioFailure(err, "failed to open "+file)
	}
	return f, file, nil
}

func isInterchangeFile(name string) bool {
	switch name {
	case interchange.StudentsFile, interchange.CoursesFile, interchange.EnrollmentsFile, interchange.InstructorsFile:
		return true
	}
	return false
}

// SeedEnrolledSets fills each student of snap with the course ids of its active enrollments
// in snap, so a restore publishes students that already agree with their rows.
func SeedEnrolledSets(snap *registry.Snapshot) {
	byStudent := enrolledByStudent(snap.Enrollments)
	for i := range snap.Students {
		setEnrolled(&snap.Students[i], byStudent[snap.Students[i].ID])
	}
}

// RebuildEnrolledSets recomputes every student's enrolled course ids from the registry's
// active enrollments, ordered by enrollment date then id. All listed students are locked
// first and re-read inside the lock, so an enroll or grade running alongside is kept.
func RebuildEnrolledSets(store enrolledSetStore, locks *KeyedMutex) {
	listed := store.ListStudents()
	ids := make([]string, len(listed))
	for i, st := range listed {
		ids[i] = st.ID
	}
	unlock := locks.LockAll(ids)
	defer unlock()

	byStudent := enrolledByStudent(store.ListEnrollmentsWhere(func(e models.Enrollment) bool { return e.Active }))
	store.Commit(func(tx *registry.Tx) {
		for _, id := range ids {
			current, ok := store.GetStudent(id)
			if !ok {
				continue
			}
			want := byStudent[id]
			if slices.Equal(current.EnrolledCourseIDs, want) {
				continue
			}
			setEnrolled(&current, want)
			tx.PutStudent(current)
		}
	})
}

func enrolledByStudent(enrollments []models.Enrollment) map[string][]string {
	active := make([]models.Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Active {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].EnrollmentDate.Equal(active[j].EnrollmentDate) {
			return active[i].EnrollmentDate.Before(active[j].EnrollmentDate)
		}
		return active[i].ID < active[j].ID
	})
	byStudent := make(map[string][]string)
	for _, e := range active {
		byStudent[e.StudentID] = append(byStudent[e.StudentID], e.CourseID)
	}
	return byStudent
}

func setEnrolled(st *models.Student, courseIDs []string) {
	st.EnrolledCourseIDs = nil
	for _, courseID := range courseIDs {
		st.AddCourse(courseID)
	}
}

func ioFailure(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, message)
}
