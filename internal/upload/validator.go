// Package upload validates upload metadata before any file is persisted
// or handed to the media processor.
package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// Static errors forming the client-facing rejection taxonomy.
var (
	// ErrUnsupportedFormat is returned when a file extension is outside the allowed set.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge is returned when a single file exceeds the per-file limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrPayloadTooLarge is returned when the aggregate upload size exceeds the total limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInsufficientInputs is returned when a merge request carries fewer than two files.
	ErrInsufficientInputs = errors.New("at least 2 video files are required")
)

// Kind selects the allowed extension set for a request.
type Kind string

const (
	// KindMerge validates video uploads for a merge request.
	KindMerge Kind = "merge"
	// KindConvert validates a single audio upload for a conversion request.
	KindConvert Kind = "convert"
)

// VideoExtensions is the set of accepted video container extensions.
var VideoExtensions = []string{"mp4", "avi", "mov", "mkv", "wmv", "flv", "webm", "m4v"}

// AudioExtensions is the set of accepted audio extensions. mov is included
// because camera recordings frequently carry audio-only tracks in it.
var AudioExtensions = []string{"mov", "mp3", "wav", "aac", "m4a", "flac", "ogg", "wma"}

// FileMeta describes a single upload entry: name and declared byte size.
// No file content is inspected here.
type FileMeta struct {
	Name string
	Size int64
}

// Limits carries the configured size limits.
type Limits struct {
	MaxFileSize  int64
	MaxTotalSize int64
}

// Validator checks upload metadata against extension and size limits.
type Validator struct {
	limits Limits
}

// NewValidator creates a Validator with the given limits.
func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// Validate checks the upload set for the given request kind. Checks run in
// order: extension membership, per-file size, aggregate size, then input
// count for merges. The first failure is returned; nothing is persisted.
func (v *Validator) Validate(kind Kind, files []FileMeta) error {
	allowed := allowedFor(kind)

	var total int64
	for _, f := range files {
		if !extensionAllowed(f.Name, allowed) {
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Name)
		}
		if f.Size > v.limits.MaxFileSize {
			return fmt.Errorf("%w: %s is %s, maximum is %s",
				ErrFileTooLarge, f.Name,
				humanize.IBytes(uint64(f.Size)),
				humanize.IBytes(uint64(v.limits.MaxFileSize)))
		}
		total += f.Size
	}

	if total > v.limits.MaxTotalSize {
		return fmt.Errorf("%w: total size %s exceeds limit %s",
			ErrPayloadTooLarge,
			humanize.IBytes(uint64(total)),
			humanize.IBytes(uint64(v.limits.MaxTotalSize)))
	}

	if kind == KindMerge && len(files) < 2 {
		return fmt.Errorf("%w: got %d", ErrInsufficientInputs, len(files))
	}

	return nil
}

// AllowedExtensions returns the accepted extension set for the kind.
func AllowedExtensions(kind Kind) []string {
	return allowedFor(kind)
}

func allowedFor(kind Kind) []string {
	if kind == KindConvert {
		return AudioExtensions
	}
	return VideoExtensions
}

func extensionAllowed(name string, allowed []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
