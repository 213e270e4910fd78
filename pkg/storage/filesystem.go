package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// DirInfo summarises a directory directly under the base dir.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Files   int
	Size    int64
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// BaseDir returns the root directory.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// Save atomically writes the given bytes to the relative path under the base dir.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	return s.SaveStream(filename, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// SaveStream writes through a temp file in the target directory and renames it into place,
// so readers never observe a partially written file.
func (s *LocalStorage) SaveStream(filename string, write func(io.Writer) error) (string, error) {
	path := s.resolve(filename)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := write(tmp); err != nil {
		tmp.Close() //nolint:errcheck
		cleanup()
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		cleanup()
		return "", fmt.Errorf("sync %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close %s: %w", filename, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("chmod %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", fmt.Errorf("rename %s: %w", filename, err)
	}
	return filename, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	path := s.resolve(filename)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	return file, nil
}

// Exists reports whether the file is present.
func (s *LocalStorage) Exists(filename string) bool {
	info, err := os.Stat(s.resolve(filename))
	return err == nil && !info.IsDir()
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	path := s.resolve(filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	return nil
}

// CopyTree recursively copies every file under src into the relative directory dst.
// It returns the number of files and bytes copied.
func (s *LocalStorage) CopyTree(src, dst string) (int, int64, error) {
	target := s.resolve(dst)
	info, err := os.Stat(src)
	if err != nil {
		return 0, 0, fmt.Errorf("source directory %s: %w", src, err)
	}
	if !info.IsDir() {
		return 0, 0, fmt.Errorf("source %s is not a directory", src)
	}

	var files int
	var size int64
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(target, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		n, err := copyFile(path, out)
		if err != nil {
			return err
		}
		files++
		size += n
		return nil
	})
	if err != nil {
		return files, size, fmt.Errorf("copy %s: %w", src, err)
	}
	return files, size, nil
}

// ListDirs returns directories directly under the base dir whose name has the prefix,
// newest name first.
func (s *LocalStorage) ListDirs(prefix string) ([]DirInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.baseDir, err)
	}
	dirs := make([]DirInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		path := filepath.Join(s.baseDir, entry.Name())
		files, size, err := treeSize(path)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, DirInfo{Name: entry.Name(), Path: path, ModTime: info.ModTime(), Files: files, Size: size})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name > dirs[j].Name })
	return dirs, nil
}

// CleanupOlderThan removes directories with the prefix whose age, given by createdAt, is
// past the cutoff, and returns the deleted names.
func (s *LocalStorage) CleanupOlderThan(prefix string, cutoff time.Time, createdAt func(DirInfo) time.Time) ([]string, error) {
	dirs, err := s.ListDirs(prefix)
	if err != nil {
		return nil, err
	}
	deleted := make([]string, 0)
	for _, dir := range dirs {
		if !createdAt(dir).Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			return deleted, fmt.Errorf("cleanup %s: %w", dir.Name, err)
		}
		deleted = append(deleted, dir.Name)
	}
	return deleted, nil
}

// Path exposes the resolved path for a relative name.
func (s *LocalStorage) Path(filename string) string {
	return s.resolve(filename)
}

func (s *LocalStorage) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filename)
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

func treeSize(root string) (int, int64, error) {
	var files int
	var size int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("measure %s: %w", root, err)
	}
	return files, size, nil
}
