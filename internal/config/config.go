// Package config provides configuration loading from environment variables,
// with an optional TOML file overlay for CLI usage.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrSecretKeyRequired is returned when SECRET_KEY is not set for the server.
	ErrSecretKeyRequired = errors.New("config: SECRET_KEY is required")
	// ErrInvalidLimits is returned when size limits are not positive or inconsistent.
	ErrInvalidLimits = errors.New("config: size limits must be positive and MAX_FILE_SIZE <= MAX_TOTAL_SIZE")
	// ErrInvalidWorkerCount is returned when WORKER_COUNT is not positive.
	ErrInvalidWorkerCount = errors.New("config: WORKER_COUNT must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port      int    `env:"PORT, default=8080" json:"port" toml:"port"`
	SecretKey string `env:"SECRET_KEY" json:"-" toml:"secret_key"` // Masked in JSON

	// Directory settings
	UploadDir string `env:"UPLOAD_DIR, default=uploads" json:"upload_dir" toml:"upload_dir"`
	OutputDir string `env:"OUTPUT_DIR, default=output" json:"output_dir" toml:"output_dir"`

	// Upload limits
	MaxFileSize  int64 `env:"MAX_FILE_SIZE, default=524288000" json:"max_file_size" toml:"max_file_size"`     // 500 MiB
	MaxTotalSize int64 `env:"MAX_TOTAL_SIZE, default=1073741824" json:"max_total_size" toml:"max_total_size"` // 1 GiB

	// Processing settings
	RequestTimeoutSec int `env:"REQUEST_TIMEOUT_SEC, default=600" json:"request_timeout_sec" toml:"request_timeout_sec"`
	WorkerCount       int `env:"WORKER_COUNT, default=1" json:"worker_count" toml:"worker_count"`

	// Cleanup settings
	RetentionMinutes int `env:"RETENTION_MINUTES, default=30" json:"retention_minutes" toml:"retention_minutes"`
	SweepIntervalSec int `env:"SWEEP_INTERVAL_SEC, default=60" json:"sweep_interval_sec" toml:"sweep_interval_sec"`

	// Media tool paths. Empty means lookup via PATH.
	FFmpegPath  string `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty" toml:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH" json:"ffprobe_path,omitempty" toml:"ffprobe_path"`

	// Job persistence. Empty means in-memory repository.
	JobDBPath string `env:"JOB_DB_PATH" json:"job_db_path,omitempty" toml:"job_db_path"`

	// Optional S3 settings for artifact mirroring
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty" toml:"s3_bucket"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty" toml:"s3_region"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-" toml:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-" toml:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" toml:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" toml:"log_level"`    // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// RequestTimeout returns the processing timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// Retention returns the artifact retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

// SweepInterval returns the cleanup sweep period as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configured limits are consistent.
func (c *Config) Validate() error {
	if c.MaxFileSize <= 0 || c.MaxTotalSize <= 0 || c.MaxFileSize > c.MaxTotalSize {
		return ErrInvalidLimits
	}
	if c.WorkerCount <= 0 {
		return ErrInvalidWorkerCount
	}
	return nil
}

// ValidateServer checks configuration that only the HTTP server requires.
func (c *Config) ValidateServer() error {
	if c.SecretKey == "" {
		return ErrSecretKeyRequired
	}
	return c.Validate()
}

// EnsureDirectories creates the upload and output directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.UploadDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, UploadDir: %s, OutputDir: %s, MaxFileSize: %d, MaxTotalSize: %d, RequestTimeoutSec: %d, WorkerCount: %d, RetentionMinutes: %d, JobDBPath: %s, S3Bucket: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.UploadDir,
		c.OutputDir,
		c.MaxFileSize,
		c.MaxTotalSize,
		c.RequestTimeoutSec,
		c.WorkerCount,
		c.RetentionMinutes,
		c.JobDBPath,
		c.S3Bucket,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
