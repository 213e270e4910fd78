package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/registry"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

type snapshotRepository interface {
	Replace(ctx context.Context, snap registry.Snapshot) error
	Load(ctx context.Context) (registry.Snapshot, error)
}

type mirrorStore interface {
	Snapshot() registry.Snapshot
	Restore(snap registry.Snapshot)
	Counts() map[string]int
	enrolledSetStore
}

// MirrorService copies registry snapshots to and from PostgreSQL on request.
type MirrorService struct {
	store   mirrorStore
	locks   *KeyedMutex
	repo    snapshotRepository
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
}

// NewMirrorService constructs MirrorService. A nil repo or enabled=false disables it. locks
// must be the instance shared with the enrollment service.
func NewMirrorService(store mirrorStore, locks *KeyedMutex, repo snapshotRepository, metrics *MetricsService, logger *zap.Logger, enabled bool) *MirrorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &MirrorService{store: store, locks: locks, repo: repo, metrics: metrics, logger: logger, enabled: enabled}
}

// Enabled reports whether the mirror is configured.
func (s *MirrorService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Push replaces the mirrored rows with the current registry contents.
func (s *MirrorService) Push(ctx context.Context) (map[string]int, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "database mirror disabled")
	}
	snap := s.store.Snapshot()
	start := time.Now()
	err := s.repo.Replace(ctx, snap)
	s.metrics.ObserveDBQuery("mirror_push", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to push snapshot")
	}
	counts := snapshotCounts(snap)
	s.logger.Info("registry pushed to database", zap.Any("rows", counts))
	return counts, nil
}

// Pull loads the mirrored rows into the registry and rebuilds enrolled sets.
func (s *MirrorService) Pull(ctx context.Context) (map[string]int, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "database mirror disabled")
	}
	start := time.Now()
	snap, err := s.repo.Load(ctx)
	s.metrics.ObserveDBQuery("mirror_pull", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pull snapshot")
	}
	SeedEnrolledSets(&snap)
	s.store.Restore(snap)
	RebuildEnrolledSets(s.store, s.locks)
	counts := snapshotCounts(snap)
	s.logger.Info("registry pulled from database", zap.Any("rows", counts))
	return counts, nil
}

func snapshotCounts(snap registry.Snapshot) map[string]int {
	return map[string]int{
		registry.CollectionStudents:    len(snap.Students),
		registry.CollectionCourses:     len(snap.Courses),
		registry.CollectionInstructors: len(snap.Instructors),
		registry.CollectionEnrollments: len(snap.Enrollments),
	}
}
