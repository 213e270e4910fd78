package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestCLIPersistsAcrossInvocations(t *testing.T) {
	chdirTemp(t)
	dataDir := t.TempDir()

	out, err := runCLI(t, dataDir, "courses", "add", "--id", "C1", "--code", "CS101", "--title", "Intro",
		"--credits", "3", "--semester", "fall", "--department", "computer_science")
	require.NoError(t, err)
	assert.Contains(t, out, "created course C1")

	out, err = runCLI(t, dataDir, "students", "add", "--id", "S1", "--reg", "R1", "--name", "Ann Lee", "--email", "ann@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "created student S1")
	assert.FileExists(t, filepath.Join(dataDir, "students.csv"))

	out, err = runCLI(t, dataDir, "enroll", "S1", "C1")
	require.NoError(t, err)
	assert.Contains(t, out, "load 3/18")

	_, err = runCLI(t, dataDir, "enroll", "S1", "C1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrAlreadyEnrolled.Code))

	out, err = runCLI(t, dataDir, "grade", "S1", "C1", "95")
	require.NoError(t, err)
	assert.Contains(t, out, "95.0 (A), gpa 4.00")

	out, err = runCLI(t, dataDir, "credits", "S1")
	require.NoError(t, err)
	assert.Equal(t, "S1: 3 of 18 credits (15 remaining)\n", out)

	out, err = runCLI(t, dataDir, "students", "search", "full_name", "CONTAINS", "lee")
	require.NoError(t, err)
	assert.Contains(t, out, "S1\tR1\tAnn Lee\tann@example.com\tgpa=4.00\tactive=true")

	out, err = runCLI(t, dataDir, "transcript", "S1", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "CS101,Intro,3,A,95.0,Completed")
}

func TestCLIRejectsInvalidGrade(t *testing.T) {
	chdirTemp(t)
	dataDir := t.TempDir()

	_, err := runCLI(t, dataDir, "grade", "S1", "C1", "abc")
	require.Error(t, err)

	_, err = runCLI(t, dataDir, "grade", "S1", "C1", "50")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestCLIDeactivateHidesFromDefaultList(t *testing.T) {
	chdirTemp(t)
	dataDir := t.TempDir()

	_, err := runCLI(t, dataDir, "students", "add", "--id", "S1", "--reg", "R1", "--name", "Ann Lee", "--email", "ann@example.com")
	require.NoError(t, err)
	_, err = runCLI(t, dataDir, "students", "deactivate", "S1")
	require.NoError(t, err)

	out, err := runCLI(t, dataDir, "students", "list")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = runCLI(t, dataDir, "students", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "active=false")
}

func TestCLIExportImportAndBackup(t *testing.T) {
	chdirTemp(t)
	dataDir := t.TempDir()
	exportDir := t.TempDir()
	backupDir := t.TempDir()

	_, err := runCLI(t, dataDir, "students", "add", "--id", "S1", "--reg", "R1", "--name", "Ann Lee", "--email", "ann@example.com")
	require.NoError(t, err)

	out, err := runCLI(t, dataDir, "export", "--dir", exportDir)
	require.NoError(t, err)
	assert.Contains(t, out, "students.csv\t1 rows")

	fresh := t.TempDir()
	out, err = runCLI(t, fresh, "import", "--dir", exportDir)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 students, 0 courses, 0 enrollments, 0 instructors")
	assert.FileExists(t, filepath.Join(fresh, "students.csv"))

	out, err = runCLI(t, dataDir, "backup", "create", "--backup-dir", backupDir)
	require.NoError(t, err)
	assert.Contains(t, out, "4 files")

	out, err = runCLI(t, dataDir, "backup", "list", "--backup-dir", backupDir)
	require.NoError(t, err)
	assert.Contains(t, out, "backup_")

	out, err = runCLI(t, dataDir, "backup", "cleanup", "--backup-dir", backupDir, "--days", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "backups removed")

	_, err = runCLI(t, dataDir, "backup", "cleanup", "--backup-dir", backupDir, "--days", "-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}
