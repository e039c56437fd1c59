package artifact

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sweeper periodically deletes files older than the retention window from
// the directories it watches: the output directory and the upload staging
// directory (orphaned uploads). Only sweeping files older than the window
// gives in-flight writes and downloads an implicit grace period.
type Sweeper struct {
	dirs      []string
	retention time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a Sweeper over the given directories.
func NewSweeper(retention time.Duration, logger *slog.Logger, dirs ...string) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		dirs:      dirs,
		retention: retention,
		logger:    logger,
	}
}

// Run sweeps on the given interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce deletes every regular file older than the retention window in
// the watched directories and returns the removed paths. Deleting an
// already-removed file is not an error; re-running on a clean directory is
// a no-op.
func (s *Sweeper) SweepOnce(ctx context.Context) []string {
	cutoff := time.Now().Add(-s.retention)
	var removed []string

	for _, dir := range s.dirs {
		select {
		case <-ctx.Done():
			return removed
		default:
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				s.logger.Warn("sweep: read directory failed",
					slog.String("dir", dir),
					slog.String("error", err.Error()),
				)
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}

			if err := os.Remove(path); err != nil {
				if !os.IsNotExist(err) {
					s.logger.Warn("sweep: remove failed",
						slog.String("path", path),
						slog.String("error", err.Error()),
					)
				}
				continue
			}

			removed = append(removed, path)
			s.logger.Info("sweep: removed expired file",
				slog.String("path", path),
				slog.Duration("age", time.Since(info.ModTime())),
			)
		}
	}

	return removed
}
