package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm-api/pkg/interchange"
	"github.com/noah-isme/ccrm-api/pkg/jobs"
)

func newBackupService(t *testing.T, exporter dataExporter) *BackupService {
	t.Helper()
	svc, err := NewBackupService(BackupConfig{Dir: t.TempDir(), RetryDelay: time.Millisecond}, exporter, NewMetricsService(), nil)
	require.NoError(t, err)
	return svc
}

func TestBackupCreateCopiesDataDirectory(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, interchange.StudentsFile), []byte("ID\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, interchange.CoursesFile), []byte("CourseID\n"), 0o644))

	svc := newBackupService(t, nil)
	svc.now = func() time.Time { return time.Date(2024, time.May, 6, 7, 8, 9, 0, time.Local) }

	info, err := svc.Create(context.Background(), dataDir)
	require.NoError(t, err)
	assert.Equal(t, "backup_20240506_070809", info.Name)
	assert.Equal(t, 2, info.Files)
	assert.FileExists(t, filepath.Join(svc.Dir(), info.Name, interchange.StudentsFile))

	again, err := svc.Create(context.Background(), dataDir)
	require.NoError(t, err)
	assert.Equal(t, "backup_20240506_070809_1", again.Name)

	_, err = svc.Create(context.Background(), filepath.Join(dataDir, "missing"))
	assert.Error(t, err)
}

func TestBackupListAndCleanupByNameTimestamp(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, interchange.StudentsFile), []byte("ID\n"), 0o644))
	svc := newBackupService(t, nil)
	ctx := context.Background()

	stamps := []time.Time{
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local),
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local),
		time.Date(2024, time.March, 30, 0, 0, 0, 0, time.Local),
	}
	for _, ts := range stamps {
		ts := ts
		svc.now = func() time.Time { return ts }
		_, err := svc.Create(ctx, dataDir)
		require.NoError(t, err)
	}

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "backup_20240330_000000", listed[0].Name)
	assert.True(t, listed[2].CreatedAt.Equal(stamps[0]))

	svc.now = func() time.Time { return time.Date(2024, time.April, 1, 0, 0, 0, 0, time.Local) }
	deleted, err := svc.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"backup_20240101_000000", "backup_20240301_000000"}, deleted)

	listed, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = svc.Cleanup(ctx, -1)
	assert.Error(t, err)
}

func TestBackupEnqueueExportsThenCopies(t *testing.T) {
	reg := seedRegistry(t)
	dataDir := t.TempDir()
	exporter := NewInterchangeService(reg, nil, nil, nil, InterchangeConfig{DataDir: dataDir}, nil)
	svc := newBackupService(t, exporter)
	svc.Start(context.Background())
	defer svc.Stop()

	id, err := svc.Enqueue()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := svc.JobState(id)
		return err == nil && st.Status == jobs.StatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	listed, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 4, listed[0].Files)
	assert.FileExists(t, filepath.Join(dataDir, interchange.EnrollmentsFile))

	_, err = svc.JobState("unknown")
	assert.Error(t, err)
}
