package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mpalmer/clipstitch/internal/artifact"
	"github.com/mpalmer/clipstitch/internal/config"
	"github.com/mpalmer/clipstitch/internal/job"
	"github.com/mpalmer/clipstitch/internal/media"
	"github.com/mpalmer/clipstitch/internal/storage"
	"github.com/mpalmer/clipstitch/internal/upload"
)

// localDeps are the pieces a one-shot CLI invocation needs: an artifact
// store rooted at the output directory, a local staging store, and a job
// service that keeps its input files (they belong to the user).
type localDeps struct {
	service   *job.Service
	artifacts *artifact.Store
	validator *upload.Validator
}

func newLocalDeps(cfg *config.Config, outputDir string, logger *slog.Logger) (*localDeps, error) {
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}

	artifacts, err := artifact.NewStore(outputDir)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)

	svc := job.NewService(
		job.NewMemoryRepository(),
		processor,
		artifacts,
		store,
		logger,
		job.WithWorkerCount(cfg.WorkerCount),
		job.WithTimeout(cfg.RequestTimeout()),
		job.WithKeepInputs(),
	)

	return &localDeps{
		service:   svc,
		artifacts: artifacts,
		validator: upload.NewValidator(upload.Limits{
			MaxFileSize:  cfg.MaxFileSize,
			MaxTotalSize: cfg.MaxTotalSize,
		}),
	}, nil
}

// statFiles validates that each path exists and returns upload metadata
// for the validator.
func statFiles(paths []string) ([]upload.FileMeta, error) {
	metas := make([]upload.FileMeta, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("file does not exist: %s", p)
			}
			return nil, fmt.Errorf("inspect file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		metas = append(metas, upload.FileMeta{Name: p, Size: info.Size()})
	}
	return metas, nil
}

// parseResolution parses a WxH string such as "1920x1080".
func parseResolution(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q, expected WxH", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution width %q", parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution height %q", parts[1])
	}
	return w, h, nil
}

// parseColor parses an R,G,B string such as "0,0,0".
func parseColor(s string) (int, int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid color %q, expected R,G,B", s)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return 0, 0, 0, fmt.Errorf("invalid color channel %q, expected 0-255", p)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

// printFormats renders the allowed-extension table for a request kind.
func printFormats(kind upload.Kind) string {
	label := "Video"
	if kind == upload.KindConvert {
		label = "Audio"
	}
	rows := make([][]string, 0)
	for _, ext := range upload.AllowedExtensions(kind) {
		rows = append(rows, []string{"." + ext})
	}
	return renderTable([]string{label + " formats"}, rows)
}
