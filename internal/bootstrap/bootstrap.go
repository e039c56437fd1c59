// Package bootstrap provides dependency initialization shared by the HTTP
// server and the CLI's serve command.
package bootstrap

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/mpalmer/clipstitch/internal/artifact"
	"github.com/mpalmer/clipstitch/internal/config"
	"github.com/mpalmer/clipstitch/internal/job"
	"github.com/mpalmer/clipstitch/internal/media"
	"github.com/mpalmer/clipstitch/internal/server"
	"github.com/mpalmer/clipstitch/internal/storage"
	"github.com/mpalmer/clipstitch/internal/upload"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service   *job.Service
	Uploads   *upload.Validator
	Artifacts *artifact.Store
	Storage   storage.Storage
	Sweeper   *artifact.Sweeper
	Health    *server.HealthProbe

	closers []io.Closer
}

// Close releases resources held by the dependencies.
func (d *Dependencies) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	artifacts, err := artifact.NewStore(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create artifact store: %w", err)
	}

	repo, closer, err := initRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)

	svc := job.NewService(
		repo,
		processor,
		artifacts,
		store,
		logger,
		job.WithWorkerCount(cfg.WorkerCount),
		job.WithTimeout(cfg.RequestTimeout()),
	)

	deps := &Dependencies{
		Service: svc,
		Uploads: upload.NewValidator(upload.Limits{
			MaxFileSize:  cfg.MaxFileSize,
			MaxTotalSize: cfg.MaxTotalSize,
		}),
		Artifacts: artifacts,
		Storage:   store,
		Sweeper:   artifact.NewSweeper(cfg.Retention(), logger, cfg.OutputDir, cfg.UploadDir),
		Health:    server.NewHealthProbe(cfg.OutputDir, cfg.MaxFileSize, cfg.MaxTotalSize),
	}
	if closer != nil {
		deps.closers = append(deps.closers, closer)
	}

	return deps, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.UploadDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 mirroring configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("upload_dir", cfg.UploadDir),
	)
	return localStore, nil
}

// initRepository selects the job repository based on configuration.
func initRepository(cfg *config.Config, logger *slog.Logger) (job.Repository, io.Closer, error) {
	if cfg.JobDBPath == "" {
		return job.NewMemoryRepository(), nil, nil
	}

	repo, err := job.OpenSQLite(cfg.JobDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open job database: %w", err)
	}
	logger.Info("sqlite job repository configured",
		slog.String("path", cfg.JobDBPath),
	)
	return repo, repo, nil
}
