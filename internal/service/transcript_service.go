package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/export"
)

var transcriptHeaders = []string{"Course Code", "Title", "Credits", "Grade", "Score", "Status", "Enrolled"}

type transcriptStore interface {
	GetStudent(id string) (models.Student, bool)
	GetCourse(id string) (models.Course, bool)
	ListEnrollmentsWhere(keep func(models.Enrollment) bool) []models.Enrollment
}

type transcriptCache interface {
	Lookup(ctx context.Context, studentID string, format models.TranscriptFormat, opts models.TranscriptOptions) (*RenderedTranscript, bool)
	Store(ctx context.Context, studentID string, opts models.TranscriptOptions, rendered *RenderedTranscript)
	Forget(ctx context.Context, studentID string) error
}

type tableRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// RenderedTranscript is a transcript serialised to a downloadable document.
type RenderedTranscript struct {
	Format      models.TranscriptFormat `json:"format"`
	ContentType string                  `json:"content_type"`
	Filename    string                  `json:"filename"`
	Body        []byte                  `json:"body"`
	Cached      bool                    `json:"-"`
}

// TranscriptService assembles student transcripts and renders them.
type TranscriptService struct {
	store  transcriptStore
	cache  transcriptCache
	csv    tableRenderer
	pdf    tableRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewTranscriptService constructs TranscriptService. cache may be nil.
func NewTranscriptService(store transcriptStore, cache transcriptCache, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		store:  store,
		cache:  cache,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
		now:    time.Now,
	}
}

// Build assembles the transcript for studentID.
func (s *TranscriptService) Build(_ context.Context, studentID string, opts models.TranscriptOptions) (*models.Transcript, error) {
	student, ok := s.store.GetStudent(studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found: "+studentID)
	}
	enrollments := s.store.ListEnrollmentsWhere(func(e models.Enrollment) bool { return e.StudentID == studentID })
	sort.SliceStable(enrollments, func(i, j int) bool {
		if !enrollments[i].EnrollmentDate.Equal(enrollments[j].EnrollmentDate) {
			return enrollments[i].EnrollmentDate.Before(enrollments[j].EnrollmentDate)
		}
		return enrollments[i].ID < enrollments[j].ID
	})

	transcript := &models.Transcript{
		StudentID:          student.ID,
		FullName:           student.FullName,
		RegistrationNumber: student.RegistrationNumber,
		Email:              student.Email,
		EnrollmentDate:     student.EnrollmentDate,
		Lines:              make([]models.TranscriptLine, 0, len(enrollments)),
		GeneratedAt:        s.now(),
	}
	summary := &models.TranscriptSummary{}
	for _, e := range enrollments {
		if !e.Active && !opts.IncludeInactive {
			continue
		}
		line := models.TranscriptLine{
			EnrollmentID:   e.ID,
			CourseCode:     e.CourseID,
			LetterGrade:    e.LetterGrade,
			NumericGrade:   e.NumericGrade,
			Completed:      e.Completed,
			Active:         e.Active,
			EnrollmentDate: e.EnrollmentDate,
		}
		if course, ok := s.store.GetCourse(e.CourseID); ok {
			line.CourseCode = course.Code
			line.CourseTitle = course.Title
			line.CreditHours = course.CreditHours
		}
		transcript.Lines = append(transcript.Lines, line)

		summary.TotalCourses++
		if e.Completed {
			summary.CompletedCourses++
		}
		if e.Active {
			summary.ActiveEnrollments++
		}
	}
	if opts.IncludeSummary {
		transcript.Summary = summary
	}
	if opts.IncludeGPA {
		gpa := ComputeGPA(enrollments, s.store.GetCourse)
		transcript.GPA = &gpa
	}
	return transcript, nil
}

// Render builds and serialises the transcript. PDF output is cached per student when a cache
// is configured.
func (s *TranscriptService) Render(ctx context.Context, studentID string, format models.TranscriptFormat, opts models.TranscriptOptions) (*RenderedTranscript, error) {
	if format != models.TranscriptFormatCSV && format != models.TranscriptFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported transcript format %q", format))
	}

	if format == models.TranscriptFormatPDF && s.cache != nil {
		if cached, ok := s.cache.Lookup(ctx, studentID, format, opts); ok {
			return cached, nil
		}
	}

	transcript, err := s.Build(ctx, studentID, opts)
	if err != nil {
		return nil, err
	}
	dataset := transcriptDataset(transcript)

	rendered := &RenderedTranscript{Format: format}
	switch format {
	case models.TranscriptFormatCSV:
		rendered.ContentType = "text/csv"
		rendered.Body, err = s.csv.Render(dataset)
	case models.TranscriptFormatPDF:
		rendered.ContentType = "application/pdf"
		rendered.Body, err = s.pdf.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	rendered.Filename = fmt.Sprintf("transcript_%s.%s", studentID, format)

	if format == models.TranscriptFormatPDF && s.cache != nil {
		s.cache.Store(ctx, studentID, opts, rendered)
	}
	return rendered, nil
}

// Invalidate drops every cached rendering of the student's transcript.
func (s *TranscriptService) Invalidate(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Forget(ctx, studentID); err != nil {
		s.logger.Warn("transcript cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

func transcriptDataset(t *models.Transcript) export.Dataset {
	data := export.Dataset{
		Title:   "Academic Transcript",
		Headers: transcriptHeaders,
		Rows:    make([]map[string]string, 0, len(t.Lines)),
		Notes: []string{
			"Student: " + t.FullName + " (" + t.StudentID + ")",
			"Registration Number: " + t.RegistrationNumber,
			"Email: " + t.Email,
		},
	}
	if !t.EnrollmentDate.IsZero() {
		data.Notes = append(data.Notes, "Enrolled: "+t.EnrollmentDate.Format("2006-01-02"))
	}
	for _, line := range t.Lines {
		grade := ""
		score := ""
		if line.Completed {
			grade = line.LetterGrade.Display()
			score = strconv.FormatFloat(line.NumericGrade, 'f', 1, 64)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Course Code": line.CourseCode,
			"Title":       line.CourseTitle,
			"Credits":     strconv.Itoa(line.CreditHours),
			"Grade":       grade,
			"Score":       score,
			"Status":      line.Status(),
			"Enrolled":    line.EnrollmentDate.Format("2006-01-02"),
		})
	}
	if t.Summary != nil {
		data.Footer = append(data.Footer, fmt.Sprintf("Courses: %d  Completed: %d  Active: %d",
			t.Summary.TotalCourses, t.Summary.CompletedCourses, t.Summary.ActiveEnrollments))
	}
	if t.GPA != nil {
		data.Footer = append(data.Footer, fmt.Sprintf("GPA: %.2f", *t.GPA))
	}
	data.Footer = append(data.Footer, "Generated: "+t.GeneratedAt.Format(time.RFC3339))
	return data
}
