package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir so a developer's own config file is never read.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoad_DefaultValues(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, filepath.Join(home, ".quotebook", "quotes.db"), cfg.DB.Path)
	assert.Equal(t, DefaultRemoteURL, cfg.Remote.URL)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Sync.Interval)
	assert.True(t, cfg.Sync.OnStart)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "pretty", cfg.Log.Format)
	assert.False(t, cfg.Log.File.Enabled)
	assert.Equal(t, DefaultLogFileMaxSizeMB, cfg.Log.File.MaxSizeMB)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, "127.0.0.1:8089", cfg.Server.Addr)
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("QUOTEBOOK_SYNC_INTERVAL", "5s")
	t.Setenv("QUOTEBOOK_LOG_LEVEL", "debug")
	t.Setenv("QUOTEBOOK_REMOTE_URL", "http://localhost:9999/posts")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Sync.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://localhost:9999/posts", cfg.Remote.URL)
}

func TestLoad_DBEnvVar(t *testing.T) {
	isolate(t)
	t.Setenv(EnvDB, "/tmp/elsewhere.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.db", cfg.DB.Path)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sync:
  interval: 2m
  on_start: false
log:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Sync.Interval)
	assert.False(t, cfg.Sync.OnStart)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level, "unset keys keep defaults")
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))
	t.Setenv("QUOTEBOOK_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_DefaultFileIsOptional(t *testing.T) {
	isolate(t)
	_, err := Load("")
	assert.NoError(t, err)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_HomeConfigFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".quotebook")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("metrics:\n  addr: 127.0.0.1:9100\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
}

func TestLoad_MultiWordEnvKeys(t *testing.T) {
	isolate(t)
	t.Setenv("QUOTEBOOK_SYNC_ON_START", "false")
	t.Setenv("QUOTEBOOK_LOG_FILE_MAX_BACKUPS", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Sync.OnStart)
	assert.Equal(t, 7, cfg.Log.File.MaxBackups)
}
