package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mpalmer/clipstitch/internal/artifact"
	"github.com/mpalmer/clipstitch/internal/media"
	"github.com/mpalmer/clipstitch/internal/storage"
)

// MergeInput contains the parameters for a merge job. Inputs are the
// ordered paths of already-validated, persisted upload files.
type MergeInput struct {
	Inputs     []string
	Method     media.MergeMethod
	OutputName string
}

// ConvertInput contains the parameters for a conversion job.
type ConvertInput struct {
	Input      string
	Width      int
	Height     int
	FPS        int
	ColorR     int
	ColorG     int
	ColorB     int
	OutputName string
}

// Service translates validated requests into exactly one media-processor
// call each. Processing is synchronous on the caller's goroutine, gated by
// a worker semaphore that deliberately defaults to a single slot to bound
// memory, and bounded by a wall-clock timeout.
type Service struct {
	repo      Repository
	processor media.Processor
	artifacts *artifact.Store
	store     storage.Storage
	logger    *slog.Logger

	workers    chan struct{}
	timeout    timeoutFn
	keepInputs bool
}

type timeoutFn func(ctx context.Context) (context.Context, context.CancelFunc)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithWorkerCount sets the number of concurrent processing slots.
func WithWorkerCount(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.workers = make(chan struct{}, n)
		}
	}
}

// WithTimeout sets the wall-clock limit for a single job.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = func(ctx context.Context) (context.Context, context.CancelFunc) {
				return context.WithTimeout(ctx, d)
			}
		}
	}
}

// WithKeepInputs disables input cleanup after a job finishes. The CLI uses
// this because its inputs are the user's own files, not staged uploads.
func WithKeepInputs() ServiceOption {
	return func(s *Service) {
		s.keepInputs = true
	}
}

// NewService creates a Service with a single worker slot and no timeout
// unless configured otherwise.
func NewService(repo Repository, processor media.Processor, artifacts *artifact.Store, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repo,
		processor: processor,
		artifacts: artifacts,
		store:     store,
		logger:    logger,
		workers:   make(chan struct{}, 1),
		timeout: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(ctx)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetJob retrieves a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs.
func (s *Service) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Merge runs a merge job to completion and returns the terminal job.
// The returned error is nil only when the job finished done.
func (s *Service) Merge(ctx context.Context, input MergeInput) (*Job, error) {
	j := New(KindMerge)
	j.Inputs = append(j.Inputs, input.Inputs...)
	j.Merge = MergeParams{Method: string(input.Method), OutputName: input.OutputName}

	outputName := s.artifacts.NewName(input.OutputName, "merged_video")

	return s.run(ctx, j, outputName, func(runCtx context.Context, outputPath string) error {
		return s.processor.MergeVideos(runCtx, input.Inputs, input.Method, outputPath)
	})
}

// Convert runs an audio-to-video conversion job to completion.
func (s *Service) Convert(ctx context.Context, input ConvertInput) (*Job, error) {
	j := New(KindConvert)
	j.Inputs = []string{input.Input}
	j.Convert = ConvertParams{
		Width:      input.Width,
		Height:     input.Height,
		FPS:        input.FPS,
		ColorR:     input.ColorR,
		ColorG:     input.ColorG,
		ColorB:     input.ColorB,
		OutputName: input.OutputName,
	}

	stem := strings.TrimSuffix(filepath.Base(input.Input), filepath.Ext(input.Input))
	outputName := s.artifacts.NewName(input.OutputName, stem+"_video")

	opts := media.ConvertOpts{
		Width:  input.Width,
		Height: input.Height,
		FPS:    input.FPS,
		ColorR: input.ColorR,
		ColorG: input.ColorG,
		ColorB: input.ColorB,
	}

	return s.run(ctx, j, outputName, func(runCtx context.Context, outputPath string) error {
		return s.processor.ConvertAudioToVideo(runCtx, input.Input, outputPath, opts)
	})
}

// run drives the job lifecycle around a single processor invocation:
// pending → running → done|failed, then input cleanup.
func (s *Service) run(ctx context.Context, j *Job, outputName string, invoke func(context.Context, string) error) (*Job, error) {
	if err := s.repo.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.logger.Info("job accepted",
		slog.String("job_id", j.ID),
		slog.String("kind", string(j.Kind)),
		slog.Int("inputs", len(j.Inputs)),
	)

	// Wait for a worker slot; the request queues here until one frees up
	// or the caller gives up.
	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		return s.fail(j, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err()))
	}

	if err := j.Start(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	runCtx, cancel := s.timeout(ctx)
	defer cancel()

	outputPath := s.artifacts.Path(outputName)
	err := invoke(runCtx, outputPath)

	// Inputs are single-use; remove them regardless of outcome.
	defer s.cleanupInputs(j)

	if err != nil {
		// No partial output is retained.
		_ = os.Remove(outputPath)

		if runCtx.Err() != nil {
			return s.fail(j, fmt.Errorf("%w: %w", ErrTimeout, runCtx.Err()))
		}
		return s.fail(j, fmt.Errorf("%w: %w", ErrProcessingFailed, err))
	}

	url := s.mirror(j, outputName, outputPath)

	j.SetOutput(outputPath, outputName, url)
	if err := j.Complete(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(context.WithoutCancel(ctx), j); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.logger.Info("job done",
		slog.String("job_id", j.ID),
		slog.String("artifact", outputName),
	)

	return j, nil
}

// fail marks the job failed and persists it. It returns the job alongside
// the error so callers can report the terminal state.
func (s *Service) fail(j *Job, err error) (*Job, error) {
	s.logger.Error("job failed",
		slog.String("job_id", j.ID),
		slog.String("kind", string(j.Kind)),
		slog.String("error", err.Error()),
	)

	if ferr := j.Fail(err.Error()); ferr != nil && !errors.Is(ferr, ErrInvalidTransition) {
		s.logger.Error("mark job failed", slog.String("error", ferr.Error()))
	}
	if serr := s.repo.Save(context.Background(), j); serr != nil {
		s.logger.Error("save failed job", slog.String("error", serr.Error()))
	}
	return j, err
}

// mirror uploads the artifact to S3 when configured. Mirroring failures do
// not fail the job; the local artifact remains downloadable.
func (s *Service) mirror(j *Job, outputName, outputPath string) string {
	ctx := context.Background()

	f, err := s.store.OpenUpload(ctx, outputPath)
	if err != nil {
		s.logger.Warn("open artifact for mirroring",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer func() { _ = f.Close() }()

	url, err := s.store.MirrorArtifact(ctx, outputName, f)
	if err != nil {
		if !errors.Is(err, storage.ErrS3NotConfigured) {
			s.logger.Warn("mirror artifact to S3",
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}

	s.logger.Info("artifact mirrored",
		slog.String("job_id", j.ID),
		slog.String("url", url),
	)
	return url
}

func (s *Service) cleanupInputs(j *Job) {
	if s.keepInputs {
		return
	}
	if err := s.store.RemoveUploads(context.Background(), j.Inputs); err != nil {
		s.logger.Warn("cleanup uploads",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
}
