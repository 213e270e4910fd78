package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/registry"
	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/config"
	"github.com/noah-isme/ccrm-api/pkg/interchange"
	"github.com/noah-isme/ccrm-api/pkg/logger"
)

// mutatesAnnotation marks commands whose changes are written back to the data directory.
const mutatesAnnotation = "ccrm/mutates"

// app holds the services one CLI invocation works with.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	dataDir  string
	logLevel string

	reg         *registry.Registry
	locks       *service.KeyedMutex
	students    *service.StudentService
	courses     *service.CourseService
	instructors *service.InstructorService
	enrollments *service.EnrollmentService
	transcripts *service.TranscriptService
	interchange *service.InterchangeService
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.dataDir == "" {
		a.dataDir = cfg.Records.DataDir
	}
	if a.logLevel == "" {
		a.logLevel = cfg.Log.CLILevel
	}
	if a.logger, err = logger.NewCLI(a.logLevel); err != nil {
		return err
	}

	a.reg = registry.New()
	a.locks = service.NewKeyedMutex()
	a.students = service.NewStudentService(a.reg, a.locks, nil, a.logger)
	a.courses = service.NewCourseService(a.reg, a.locks, nil, a.logger)
	a.instructors = service.NewInstructorService(a.reg, a.locks, nil, a.logger)
	a.enrollments = service.NewEnrollmentService(a.reg, a.locks, cfg.Records.MaxCreditsPerSemester, nil, a.logger)
	a.transcripts = service.NewTranscriptService(a.reg, nil, a.logger)
	a.interchange = service.NewInterchangeService(a.reg, a.locks, nil, nil, service.InterchangeConfig{DataDir: a.dataDir}, a.logger)

	return a.load(cmd.Context())
}

// load imports the data directory when it already holds interchange files.
func (a *app) load(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(a.dataDir, interchange.StudentsFile)); errors.Is(err, os.ErrNotExist) {
		a.logger.Debug("data directory empty, starting fresh", zap.String("dir", a.dataDir))
		return nil
	}
	report, err := a.interchange.ImportAll(ctx, a.dataDir)
	if err != nil {
		return err
	}
	a.logger.Debug("data loaded",
		zap.Int("students", report.Students),
		zap.Int("courses", report.Courses),
		zap.Int("enrollments", report.Enrollments),
		zap.Int("skipped", len(report.Skipped)))
	return nil
}

func (a *app) save(ctx context.Context) error {
	_, err := a.interchange.ExportAll(ctx, a.dataDir)
	return err
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func mutating(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[mutatesAnnotation] = "true"
	return cmd
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ccrm",
		Short:         "Manage students, courses and enrollments stored as CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()
			if cmd.Annotations[mutatesAnnotation] != "true" {
				return nil
			}
			return a.save(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory holding the interchange CSV files (default DATA_DIR)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level written to stderr")

	root.AddCommand(
		newStudentsCmd(a),
		newCoursesCmd(a),
		newInstructorsCmd(a),
		newEnrollCmd(a),
		newWithdrawCmd(a),
		newGradeCmd(a),
		newCreditsCmd(a),
		newTranscriptCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newBackupCmd(a),
		newDBCmd(a),
	)
	return root
}
