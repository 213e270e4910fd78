package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// CacheRepository stores JSON payloads under string keys with expiry.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// TranscriptCache keeps rendered transcript documents keyed by student, format and options.
// Every entry of a student lives under transcript:<id>: so one pattern delete forgets them.
type TranscriptCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewTranscriptCache constructs TranscriptCache. ttl falls back to ten minutes.
func NewTranscriptCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *TranscriptCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled reports whether lookups can hit.
func (c *TranscriptCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

// Lookup returns the cached rendering, if any. Repository failures count as misses.
func (c *TranscriptCache) Lookup(ctx context.Context, studentID string, format models.TranscriptFormat, opts models.TranscriptOptions) (*RenderedTranscript, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := transcriptCacheKey(studentID, format, opts)
	start := time.Now()
	var cached RenderedTranscript
	err := c.repo.Get(ctx, key, &cached)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("transcript cache read failed", zap.String("student_id", studentID), zap.Error(err))
		}
		return nil, false
	}
	cached.Cached = true
	return &cached, true
}

// Store saves rendered for later lookups with the same student, format and options.
func (c *TranscriptCache) Store(ctx context.Context, studentID string, opts models.TranscriptOptions, rendered *RenderedTranscript) {
	if !c.Enabled() || rendered == nil {
		return
	}
	start := time.Now()
	err := c.repo.Set(ctx, transcriptCacheKey(studentID, rendered.Format, opts), rendered, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("transcript cache write failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

// Forget drops every cached rendering for the student.
func (c *TranscriptCache) Forget(ctx context.Context, studentID string) error {
	if !c.Enabled() {
		return nil
	}
	return c.repo.DeleteByPattern(ctx, fmt.Sprintf("transcript:%s:*", studentID))
}

func transcriptCacheKey(studentID string, format models.TranscriptFormat, opts models.TranscriptOptions) string {
	return fmt.Sprintf("transcript:%s:%s:%t:%t:%t", studentID, format, opts.IncludeInactive, opts.IncludeGPA, opts.IncludeSummary)
}
