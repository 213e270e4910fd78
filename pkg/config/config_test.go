package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 18, cfg.Records.MaxCreditsPerSemester)
	assert.Equal(t, "./data", cfg.Records.DataDir)
	assert.Equal(t, 30, cfg.Backups.RetentionDays)
	assert.Equal(t, 10*time.Minute, cfg.Transcript.CacheTTL)
	assert.False(t, cfg.Mirror.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Records.DownloadTTL)
	assert.Equal(t, "warn", cfg.Log.CLILevel)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd) //nolint:errcheck

	t.Setenv("MAX_CREDITS_PER_SEMESTER", "21")
	t.Setenv("DATA_DIR", "/srv/ccrm")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRANSCRIPT_CACHE_TTL", "bogus")
	t.Setenv("CLI_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 21, cfg.Records.MaxCreditsPerSemester)
	assert.Equal(t, "/srv/ccrm", cfg.Records.DataDir)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.Transcript.CacheTTL)
	assert.Equal(t, "debug", cfg.Log.CLILevel)
}
