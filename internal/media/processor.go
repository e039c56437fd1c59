// Package media wraps the external ffmpeg/ffprobe binaries. All decoding,
// encoding and compositing happens inside those tools; this package only
// builds invocations and surfaces their failures.
package media

import "context"

// MergeMethod selects how multiple videos are combined.
type MergeMethod string

const (
	// MethodConcatenate joins video inputs end-to-end in given order.
	MethodConcatenate MergeMethod = "concatenate"
	// MethodOverlay composites additional inputs as picture-in-picture
	// on top of the first input.
	MethodOverlay MergeMethod = "overlay"
)

// IsValid returns true if the method is known.
func (m MergeMethod) IsValid() bool {
	return m == MethodConcatenate || m == MethodOverlay
}

// ConvertOpts holds the parameters for audio-to-video synthesis.
type ConvertOpts struct {
	// Width and Height are the output resolution.
	Width  int
	Height int
	// FPS is the output frame rate.
	FPS int
	// ColorR, ColorG, ColorB are the background channel values in [0,255].
	ColorR int
	ColorG int
	ColorB int
}

// Processor defines the interface for the media operations this service
// orchestrates. Implementations delegate to ffmpeg or similar tools.
type Processor interface {
	// MergeVideos combines the ordered input videos into output using the
	// given method. Concatenation first attempts a stream copy and falls
	// back to re-encoding with libx264/aac; overlay always re-encodes.
	MergeVideos(ctx context.Context, inputs []string, method MergeMethod, output string) error

	// ConvertAudioToVideo writes a video of a solid background color whose
	// duration matches the audio track, muxing the audio in.
	ConvertAudioToVideo(ctx context.Context, audioPath, output string, opts ConvertOpts) error

	// Duration returns the duration in seconds of a media file.
	Duration(ctx context.Context, path string) (float64, error)
}
