package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCleanEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"UPTIME_DATA_DIR", "DATA_DIR", "UPTIME_PORT", "UPTIME_LOG_LEVEL", "UPTIME_DEV_MODE"} {
		original, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, original)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

func TestLoad_DataDir_FromFlag(t *testing.T) {
	withCleanEnv(t)

	tmpDir := t.TempDir()
	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
}

func TestLoad_DataDir_FromUPTIME_DATA_DIR(t *testing.T) {
	withCleanEnv(t)

	tmpDir := t.TempDir()
	os.Setenv("UPTIME_DATA_DIR", tmpDir)

	cfg, err := Load("")
	require.NoError(t, err)

	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
}

func TestLoad_DataDir_FlagTakesPrecedenceOverEnv(t *testing.T) {
	withCleanEnv(t)

	flagDir := t.TempDir()
	envDir := t.TempDir()
	os.Setenv("UPTIME_DATA_DIR", envDir)

	cfg, err := Load(flagDir)
	require.NoError(t, err)

	absFlagDir, err := filepath.Abs(flagDir)
	require.NoError(t, err)
	assert.Equal(t, absFlagDir, cfg.DataDir)
	assert.NotEqual(t, envDir, cfg.DataDir)
}

func TestLoad_DataDir_UPTIME_DATA_DIRTakesPrecedenceOverLegacyDATA_DIR(t *testing.T) {
	withCleanEnv(t)

	newDir := t.TempDir()
	oldDir := t.TempDir()
	os.Setenv("UPTIME_DATA_DIR", newDir)
	os.Setenv("DATA_DIR", oldDir)

	cfg, err := Load("")
	require.NoError(t, err)

	absNewDir, err := filepath.Abs(newDir)
	require.NoError(t, err)
	assert.Equal(t, absNewDir, cfg.DataDir)
	assert.NotEqual(t, oldDir, cfg.DataDir)
}

func TestLoad_DataDir_FallsBackToLegacyDATA_DIR(t *testing.T) {
	withCleanEnv(t)

	tmpDir := t.TempDir()
	os.Setenv("DATA_DIR", tmpDir)

	cfg, err := Load("")
	require.NoError(t, err)

	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
}

func TestLoad_DataDir_ResolvesRelativeToAbsolute(t *testing.T) {
	withCleanEnv(t)

	os.Setenv("UPTIME_DATA_DIR", "./relative/path")
	t.Cleanup(func() { os.RemoveAll("./relative") })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	expected, err := filepath.Abs("./relative/path")
	require.NoError(t, err)
	assert.Equal(t, expected, cfg.DataDir)
}

func TestLoad_DataDir_CreatesDirectoryIfNeeded(t *testing.T) {
	withCleanEnv(t)

	tmpDir := filepath.Join(t.TempDir(), "nested", "data")
	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_Defaults(t *testing.T) {
	withCleanEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8787, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Empty(t, cfg.BackupBucket)
}

func TestLoad_PortFromEnv(t *testing.T) {
	withCleanEnv(t)
	os.Setenv("UPTIME_PORT", "9999")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
}
