package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "SECRET_KEY", "UPLOAD_DIR", "OUTPUT_DIR",
		"MAX_FILE_SIZE", "MAX_TOTAL_SIZE", "REQUEST_TIMEOUT_SEC",
		"WORKER_COUNT", "RETENTION_MINUTES", "SWEEP_INTERVAL_SEC",
		"FFMPEG_PATH", "FFPROBE_PATH", "JOB_DB_PATH",
		"S3_BUCKET", "S3_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"LOG_FORMAT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, int64(524288000), cfg.MaxFileSize)
	assert.Equal(t, int64(1073741824), cfg.MaxTotalSize)
	assert.Equal(t, 600, cfg.RequestTimeoutSec)
	assert.Equal(t, 1, cfg.WorkerCount)
	assert.Equal(t, 30, cfg.RetentionMinutes)
	assert.Equal(t, 60, cfg.SweepIntervalSec)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("UPLOAD_DIR", "/tmp/stage")
	t.Setenv("MAX_FILE_SIZE", "1024")
	t.Setenv("MAX_TOTAL_SIZE", "4096")
	t.Setenv("REQUEST_TIMEOUT_SEC", "30")
	t.Setenv("RETENTION_MINUTES", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/stage", cfg.UploadDir)
	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Equal(t, int64(4096), cfg.MaxTotalSize)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Retention())
	assert.Equal(t, time.Minute, cfg.SweepInterval())
}

func TestLoad_InvalidLimits(t *testing.T) {
	t.Run("per-file limit above total limit", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAX_FILE_SIZE", "4096")
		t.Setenv("MAX_TOTAL_SIZE", "1024")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidLimits)
	})

	t.Run("zero limit", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAX_FILE_SIZE", "0")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidLimits)
	})

	t.Run("zero workers", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WORKER_COUNT", "0")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidWorkerCount)
	})
}

func TestValidateServer(t *testing.T) {
	t.Run("missing SECRET_KEY returns error", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		err = cfg.ValidateServer()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSecretKeyRequired)
	})

	t.Run("SECRET_KEY present succeeds", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SECRET_KEY", "test-secret")

		cfg, err := Load()
		require.NoError(t, err)
		require.NoError(t, cfg.ValidateServer())
	})
}

func TestS3Enabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET", "artifacts")
	t.Setenv("S3_REGION", "eu-west-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.S3Enabled())
}

func TestLoadWithFile(t *testing.T) {
	t.Run("file values override environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9090")

		path := filepath.Join(t.TempDir(), "clipstitch.toml")
		require.NoError(t, os.WriteFile(path, []byte("port = 7070\nworker_count = 2\n"), 0o600))

		cfg, err := LoadWithFile(path)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Port)
		assert.Equal(t, 2, cfg.WorkerCount)
	})

	t.Run("empty path falls back to environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9090")

		cfg, err := LoadWithFile("")
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
	})

	t.Run("missing file returns error", func(t *testing.T) {
		clearEnv(t)

		_, err := LoadWithFile(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
	})

	t.Run("malformed file returns error", func(t *testing.T) {
		clearEnv(t)

		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("port = [not toml"), 0o600))

		_, err := LoadWithFile(path)
		require.Error(t, err)
	})
}

func TestEnsureDirectories(t *testing.T) {
	clearEnv(t)
	base := t.TempDir()
	t.Setenv("UPLOAD_DIR", filepath.Join(base, "in"))
	t.Setenv("OUTPUT_DIR", filepath.Join(base, "out"))

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		cfg := &Config{LogFormat: "json", LogLevel: "debug"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
		assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("text format with warn level", func(t *testing.T) {
		cfg := &Config{LogFormat: "text", LogLevel: "warn"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
		assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	})
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := &Config{
		Port:      8080,
		SecretKey: "super-secret",
	}

	var buf bytes.Buffer
	buf.WriteString(cfg.String())

	assert.NotContains(t, buf.String(), "super-secret")
	assert.Contains(t, buf.String(), "8080")
}
