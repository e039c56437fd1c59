package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrInvalidFrameRate is returned when the frame rate is not positive.
	ErrInvalidFrameRate = errors.New("invalid frame rate: must be positive")
	// ErrInvalidColor is returned when a color channel is outside [0,255].
	ErrInvalidColor = errors.New("invalid color: channel values must be in [0,255]")
	// ErrNoInputs is returned when no video paths are provided for merging.
	ErrNoInputs = errors.New("no video paths provided")
	// ErrUnknownMethod is returned for an unrecognized merge method.
	ErrUnknownMethod = errors.New("unknown merge method")
	// ErrTooManyOverlays is returned when an overlay merge has more inputs
	// than there are corners to pin them to.
	ErrTooManyOverlays = errors.New("overlay merge supports at most 4 overlay inputs")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// overlayPositions are the corner anchors for picture-in-picture overlays,
// in the order additional inputs are placed. W/H and w/h are ffmpeg overlay
// variables for the base and overlay dimensions.
var overlayPositions = []string{
	"0:0",     // top-left
	"W-w:0",   // top-right
	"0:H-h",   // bottom-left
	"W-w:H-h", // bottom-right
}

// Compile-time check that FFmpegProcessor implements Processor.
var _ Processor = (*FFmpegProcessor)(nil)

// FFmpegProcessor implements Processor using the ffmpeg and ffprobe CLIs.
type FFmpegProcessor struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegProcessor(ffmpegPath, ffprobePath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// MergeVideos combines the ordered inputs into output using the given method.
func (p *FFmpegProcessor) MergeVideos(ctx context.Context, inputs []string, method MergeMethod, output string) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}

	switch method {
	case MethodConcatenate:
		return p.concatenate(ctx, inputs, output)
	case MethodOverlay:
		return p.overlay(ctx, inputs, output)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// concatenate joins videos end-to-end using the concat demuxer. It first
// attempts a fast stream copy and falls back to re-encoding with
// libx264/aac if the copy fails.
func (p *FFmpegProcessor) concatenate(ctx context.Context, inputs []string, output string) error {
	listFile, err := p.createConcatList(inputs)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer func() { _ = os.Remove(listFile) }()

	if err := p.concatWithCopy(ctx, listFile, output); err == nil {
		return nil
	} else if ctx.Err() != nil {
		return err
	}

	return p.concatWithReencode(ctx, listFile, output)
}

// concatWithCopy concatenates videos using stream copy (no re-encoding).
func (p *FFmpegProcessor) concatWithCopy(ctx context.Context, listFile, output string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		output,
	}
	return p.runFFmpeg(ctx, args)
}

// concatWithReencode concatenates videos by re-encoding with libx264/aac.
func (p *FFmpegProcessor) concatWithReencode(ctx context.Context, listFile, output string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		output,
	}
	return p.runFFmpeg(ctx, args)
}

// overlay composites inputs[1:] onto inputs[0] as picture-in-picture.
// Each overlay is scaled to a quarter of the base frame and pinned to a
// corner; overlays shorter than the base simply end (eof_action=pass).
// The base clip's audio is kept.
func (p *FFmpegProcessor) overlay(ctx context.Context, inputs []string, output string) error {
	overlays := len(inputs) - 1
	if overlays < 1 {
		return fmt.Errorf("%w: overlay requires at least 2 inputs", ErrNoInputs)
	}
	if overlays > len(overlayPositions) {
		return fmt.Errorf("%w: got %d", ErrTooManyOverlays, overlays)
	}

	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}

	args = append(args,
		"-filter_complex", buildOverlayFilter(overlays),
		"-map", fmt.Sprintf("[v%d]", overlays-1),
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		output,
	)

	return p.runFFmpeg(ctx, args)
}

// buildOverlayFilter builds the filter_complex graph placing each overlay
// input on the running composite. scale2ref sizes every overlay to a
// quarter of the base frame; in its w/h expressions iw/ih are the
// reference (second) input's dimensions.
func buildOverlayFilter(overlays int) string {
	var b strings.Builder
	base := "[0:v]"
	for i := 0; i < overlays; i++ {
		fmt.Fprintf(&b, "[%d:v]%sscale2ref=w=iw/4:h=ih/4[ovr%d][base%d];", i+1, base, i, i)
		fmt.Fprintf(&b, "[base%d][ovr%d]overlay=%s:eof_action=pass[v%d]", i, i, overlayPositions[i], i)
		if i < overlays-1 {
			b.WriteString(";")
		}
		base = fmt.Sprintf("[v%d]", i)
	}
	return b.String()
}

// ConvertAudioToVideo writes a solid-color video carrying the audio track.
// The lavfi color source runs until the audio ends (-shortest).
func (p *FFmpegProcessor) ConvertAudioToVideo(ctx context.Context, audioPath, output string, opts ConvertOpts) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidFrameRate, opts.FPS)
	}
	for _, c := range []int{opts.ColorR, opts.ColorG, opts.ColorB} {
		if c < 0 || c > 255 {
			return fmt.Errorf("%w: got (%d,%d,%d)", ErrInvalidColor, opts.ColorR, opts.ColorG, opts.ColorB)
		}
	}

	source := fmt.Sprintf("color=c=0x%02X%02X%02X:s=%dx%d:r=%d",
		opts.ColorR, opts.ColorG, opts.ColorB, opts.Width, opts.Height, opts.FPS)

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", source,
		"-i", audioPath,
		"-shortest",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		output,
	}

	return p.runFFmpeg(ctx, args)
}

// createConcatList creates a temporary file containing the list of video
// files in the format required by ffmpeg's concat demuxer. The file is
// removed again when writing it fails partway.
func (p *FFmpegProcessor) createConcatList(inputs []string) (string, error) {
	f, err := os.CreateTemp("", "ffmpeg-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if err := writeConcatEntries(f, inputs); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close concat list: %w", err)
	}

	return f.Name(), nil
}

// writeConcatEntries writes one quoted absolute path per line in the
// concat demuxer's list format.
func writeConcatEntries(w io.Writer, inputs []string) error {
	for _, path := range inputs {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("get absolute path for %s: %w", path, err)
		}
		// Escape single quotes in path
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")
		if _, err := fmt.Fprintf(w, "file '%s'\n", escapedPath); err != nil {
			return fmt.Errorf("write to concat list: %w", err)
		}
	}
	return nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Duration returns the duration in seconds of a media file.
// It uses ffprobe to extract the duration metadata.
func (p *FFmpegProcessor) Duration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}
