package job

import "errors"

// Static errors for job execution. Every failure is terminal for its job;
// no retries are attempted anywhere.
var (
	// ErrProcessingFailed wraps a media-library failure (corrupt input,
	// unsupported internal format). The underlying detail is logged and the
	// caller surfaces a generic message.
	ErrProcessingFailed = errors.New("media processing failed")
	// ErrTimeout is returned when a job exceeds the configured wall-clock
	// duration. No partial output is retained.
	ErrTimeout = errors.New("processing timed out")
	// ErrStorageError is returned when a disk write fails (disk full,
	// permission denied).
	ErrStorageError = errors.New("storage error")
)
