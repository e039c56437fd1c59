// Package job provides the Job aggregate for merge and conversion requests,
// the repositories that persist it, and the service that runs exactly one
// media-processor call per validated request.
package job

import (
	"errors"
	"sync"
	"time"
)

// Kind is the type of work a job performs.
type Kind string

const (
	// KindMerge joins multiple video inputs into one output.
	KindMerge Kind = "merge"
	// KindConvert synthesizes a video from an audio input and a solid color.
	KindConvert Kind = "convert"
)

// IsValid returns true if the kind is known.
func (k Kind) IsValid() bool {
	return k == KindMerge || k == KindConvert
}

// Status represents the current state of a Job.
type Status string

const (
	// StatusPending indicates the job has been accepted but not started.
	StatusPending Status = "pending"
	// StatusRunning indicates the media processor is working on the job.
	StatusRunning Status = "running"
	// StatusDone indicates the job finished and its artifact is available.
	StatusDone Status = "done"
	// StatusFailed indicates the job ended with an error.
	StatusFailed Status = "failed"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// Terminal states never transition further; a Job object is not reused.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusFailed},
	StatusRunning: {StatusDone, StatusFailed},
	StatusDone:    {},
	StatusFailed:  {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// MergeParams holds the user-supplied parameters of a merge job.
type MergeParams struct {
	// Method is "concatenate" or "overlay".
	Method string
	// OutputName is the optional requested output file name.
	OutputName string
}

// ConvertParams holds the user-supplied parameters of a conversion job.
type ConvertParams struct {
	// Width and Height are the target resolution, both > 0.
	Width  int
	Height int
	// FPS is the target frame rate, > 0.
	FPS int
	// ColorR, ColorG, ColorB are background channel values in [0,255].
	ColorR int
	ColorG int
	ColorB int
	// OutputName is the optional requested output file name.
	OutputName string
}

// Job represents a single merge or conversion request aggregate.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Kind is merge or convert.
	Kind Kind
	// Status is the current job state.
	Status Status
	// Inputs are the ordered paths of the persisted upload files.
	Inputs []string
	// Merge holds merge parameters when Kind is merge.
	Merge MergeParams
	// Convert holds conversion parameters when Kind is convert.
	Convert ConvertParams
	// Error contains any error message if the job failed.
	Error string
	// OutputPath is the path of the produced artifact when done.
	OutputPath string
	// ArtifactToken is the download token of the produced artifact.
	ArtifactToken string
	// ArtifactURL is the S3 URL of the artifact when mirroring is enabled.
	ArtifactURL string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a Job of the given kind with a generated ID in pending state.
func New(kind Kind) *Job {
	return NewWithID(newID(), kind)
}

// NewWithID creates a Job with the specified ID in pending state.
// Useful for testing or when the ID is generated externally.
func NewWithID(jobID string, kind Kind) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusDone, StatusFailed:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from pending to running.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to done.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusDone)
}

// Fail transitions the job to failed with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetOutput records the produced artifact of a job.
func (j *Job) SetOutput(path, token, url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = path
	j.ArtifactToken = token
	j.ArtifactURL = url
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusDone || j.Status == StatusFailed
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	inputs := make([]string, len(j.Inputs))
	copy(inputs, j.Inputs)

	return &Job{
		ID:            j.ID,
		Kind:          j.Kind,
		Status:        j.Status,
		Inputs:        inputs,
		Merge:         j.Merge,
		Convert:       j.Convert,
		Error:         j.Error,
		OutputPath:    j.OutputPath,
		ArtifactToken: j.ArtifactToken,
		ArtifactURL:   j.ArtifactURL,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
	}
}
