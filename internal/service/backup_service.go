package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/jobs"
	"github.com/noah-isme/ccrm-api/pkg/storage"
)

const (
	backupPrefix     = "backup_"
	backupTimeLayout = "20060102_150405"
	backupJobType    = "backup"
)

type dataExporter interface {
	ExportAll(ctx context.Context, dir string) (*models.ExportReport, error)
	DataDir() string
}

// BackupConfig tunes BackupService.
type BackupConfig struct {
	Dir        string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// BackupService copies data directories into timestamped backup folders and prunes old ones.
type BackupService struct {
	storage  *storage.LocalStorage
	exporter dataExporter
	metrics  *MetricsService
	logger   *zap.Logger
	queue    *jobs.Queue
	now      func() time.Time
}

// NewBackupService prepares the backup root. exporter may be nil when backups only copy an
// existing directory.
func NewBackupService(cfg BackupConfig, exporter dataExporter, metrics *MetricsService, logger *zap.Logger) (*BackupService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dir == "" {
		cfg.Dir = "./backups"
	}
	store, err := storage.NewLocalStorage(cfg.Dir)
	if err != nil {
		return nil, ioFailure(err, "failed to prepare backup directory")
	}
	svc := &BackupService{storage: store, exporter: exporter, metrics: metrics, logger: logger, now: time.Now}
	svc.queue = jobs.NewQueue("backups", svc.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnFinish:   func(_ jobs.Job, err error) { metrics.RecordBackupJob(err) },
	})
	return svc, nil
}

// Dir returns the backup root.
func (s *BackupService) Dir() string {
	return s.storage.BaseDir()
}

// Create copies dataDir into a new backup_YYYYMMDD_HHMMSS directory.
func (s *BackupService) Create(_ context.Context, dataDir string) (*models.BackupInfo, error) {
	stamp := s.now().Local()
	name := backupPrefix + stamp.Format(backupTimeLayout)
	for i := 1; dirExists(s.storage.Path(name)); i++ {
		name = fmt.Sprintf("%s%s_%d", backupPrefix, stamp.Format(backupTimeLayout), i)
	}

	files, size, err := s.storage.CopyTree(dataDir, name)
	if err != nil {
		_ = os.RemoveAll(s.storage.Path(name))
		return nil, ioFailure(err, "failed to copy data directory")
	}
	info := &models.BackupInfo{
		Name:      name,
		Path:      s.storage.Path(name),
		CreatedAt: stamp,
		Files:     files,
		SizeBytes: size,
	}
	s.logger.Info("backup created", zap.String("name", name), zap.Int("files", files), zap.Int64("bytes", size))
	return info, nil
}

// Run exports the registry to its data directory and backs that directory up.
func (s *BackupService) Run(ctx context.Context) (*models.BackupInfo, error) {
	if s.exporter == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "backup exporter not configured")
	}
	report, err := s.exporter.ExportAll(ctx, s.exporter.DataDir())
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, report.Dir)
}

// List returns existing backups, newest first.
func (s *BackupService) List(_ context.Context) ([]models.BackupInfo, error) {
	dirs, err := s.storage.ListDirs(backupPrefix)
	if err != nil {
		return nil, ioFailure(err, "failed to list backups")
	}
	out := make([]models.BackupInfo, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, models.BackupInfo{
			Name:      dir.Name,
			Path:      dir.Path,
			CreatedAt: backupCreatedAt(dir),
			Files:     dir.Files,
			SizeBytes: dir.Size,
		})
	}
	return out, nil
}

// Cleanup removes backups older than maxAgeDays and returns their names.
func (s *BackupService) Cleanup(_ context.Context, maxAgeDays int) ([]string, error) {
	if maxAgeDays < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max age must not be negative")
	}
	cutoff := s.now().AddDate(0, 0, -maxAgeDays)
	deleted, err := s.storage.CleanupOlderThan(backupPrefix, cutoff, backupCreatedAt)
	if err != nil {
		return deleted, ioFailure(err, "failed to remove old backups")
	}
	if len(deleted) > 0 {
		s.logger.Info("old backups removed", zap.Strings("names", deleted), zap.Int("max_age_days", maxAgeDays))
	}
	return deleted, nil
}

// Start launches the background backup workers.
func (s *BackupService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for running backup workers to exit.
func (s *BackupService) Stop() {
	s.queue.Stop()
}

// Enqueue schedules Run on the worker pool and returns the job id.
func (s *BackupService) Enqueue() (string, error) {
	id, err := s.queue.Enqueue(jobs.Job{Type: backupJobType})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "backup queue unavailable")
	}
	return id, nil
}

// JobState reports a queued backup's progress.
func (s *BackupService) JobState(id string) (jobs.State, error) {
	st, ok := s.queue.State(id)
	if !ok {
		return jobs.State{}, appErrors.Clone(appErrors.ErrNotFound, "backup job not found: "+id)
	}
	return st, nil
}

func (s *BackupService) handleJob(ctx context.Context, _ jobs.Job) (interface{}, error) {
	return s.Run(ctx)
}

func dirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// backupCreatedAt reads the timestamp from the directory name, falling back to its mtime.
func backupCreatedAt(dir storage.DirInfo) time.Time {
	raw := strings.TrimPrefix(dir.Name, backupPrefix)
	if len(raw) >= len(backupTimeLayout) {
		if ts, err := time.ParseInLocation(backupTimeLayout, raw[:len(backupTimeLayout)], time.Local); err == nil {
			return ts
		}
	}
	return dir.ModTime
}
