package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("nested/students.csv", []byte("ID\n"))
	require.NoError(t, err)
	assert.True(t, store.Exists("nested/students.csv"))

	f, err := store.Open("nested/students.csv")
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "ID\n", string(data))

	require.NoError(t, store.Delete("nested/students.csv"))
	assert.False(t, store.Exists("nested/students.csv"))
	require.NoError(t, store.Delete("nested/students.csv"))
}

func TestLocalStorageSaveStreamFailureKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)
	_, err = store.Save("courses.csv", []byte("old"))
	require.NoError(t, err)

	_, err = store.SaveStream("courses.csv", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("encoder failed")
	})
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "courses.csv"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStorageCopyTreeListAndCleanup(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.csv"), []byte("12345"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.csv"), bytes.Repeat([]byte("x"), 10), 0o644))

	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	files, size, err := store.CopyTree(src, "backup_20240101_000000")
	require.NoError(t, err)
	assert.Equal(t, 2, files)
	assert.EqualValues(t, 15, size)
	_, _, err = store.CopyTree(src, "backup_20240301_000000")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(store.Path("unrelated"), 0o755))

	dirs, err := store.ListDirs("backup_")
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "backup_20240301_000000", dirs[0].Name)
	assert.Equal(t, 2, dirs[0].Files)

	cutoff := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	deleted, err := store.CleanupOlderThan("backup_", cutoff, func(d DirInfo) time.Time {
		ts, _ := time.Parse("backup_20060102_150405", d.Name)
		return ts
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"backup_20240101_000000"}, deleted)

	dirs, err = store.ListDirs("backup_")
	require.NoError(t, err)
	assert.Len(t, dirs, 1)
	assert.DirExists(t, store.Path("unrelated"))
}

func TestLocalStorageCopyTreeMissingSource(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, _, err = store.CopyTree(filepath.Join(t.TempDir(), "missing"), "backup_x")
	assert.Error(t, err)
}
