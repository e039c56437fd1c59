package upload

import (
	"errors"
	"testing"
)

func testValidator() *Validator {
	return NewValidator(Limits{
		MaxFileSize:  1000,
		MaxTotalSize: 2500,
	})
}

func TestValidate_Merge(t *testing.T) {
	tests := []struct {
		name    string
		files   []FileMeta
		wantErr error
	}{
		{
			name: "two valid videos",
			files: []FileMeta{
				{Name: "a.mp4", Size: 100},
				{Name: "b.mov", Size: 200},
			},
		},
		{
			name: "extensions are case-insensitive",
			files: []FileMeta{
				{Name: "a.MP4", Size: 100},
				{Name: "b.MkV", Size: 200},
			},
		},
		{
			name: "unsupported extension",
			files: []FileMeta{
				{Name: "a.mp4", Size: 100},
				{Name: "b.txt", Size: 100},
			},
			wantErr: ErrUnsupportedFormat,
		},
		{
			name: "no extension",
			files: []FileMeta{
				{Name: "video", Size: 100},
				{Name: "b.mp4", Size: 100},
			},
			wantErr: ErrUnsupportedFormat,
		},
		{
			name: "single file too large",
			files: []FileMeta{
				{Name: "a.mp4", Size: 1001},
				{Name: "b.mp4", Size: 100},
			},
			wantErr: ErrFileTooLarge,
		},
		{
			name: "aggregate size over limit",
			files: []FileMeta{
				{Name: "a.mp4", Size: 900},
				{Name: "b.mp4", Size: 900},
				{Name: "c.mp4", Size: 900},
			},
			wantErr: ErrPayloadTooLarge,
		},
		{
			name: "fewer than two inputs",
			files: []FileMeta{
				{Name: "a.mp4", Size: 100},
			},
			wantErr: ErrInsufficientInputs,
		},
		{
			name:    "empty upload set",
			files:   nil,
			wantErr: ErrInsufficientInputs,
		},
		{
			// The format check fires before the size checks, so a bad
			// extension wins even when the file is also oversized.
			name: "format rejection precedes size rejection",
			files: []FileMeta{
				{Name: "a.txt", Size: 5000},
			},
			wantErr: ErrUnsupportedFormat,
		},
		{
			// The per-file check fires before the count check.
			name: "size rejection precedes count rejection",
			files: []FileMeta{
				{Name: "a.mp4", Size: 5000},
			},
			wantErr: ErrFileTooLarge,
		},
	}

	v := testValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(KindMerge, tt.files)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Convert(t *testing.T) {
	v := testValidator()

	t.Run("accepts audio extensions", func(t *testing.T) {
		for _, name := range []string{"a.mp3", "a.wav", "a.aac", "a.m4a", "a.flac", "a.ogg", "a.wma", "a.mov"} {
			if err := v.Validate(KindConvert, []FileMeta{{Name: name, Size: 100}}); err != nil {
				t.Errorf("Validate(%s) error = %v, want nil", name, err)
			}
		}
	})

	t.Run("rejects video-only extensions", func(t *testing.T) {
		err := v.Validate(KindConvert, []FileMeta{{Name: "a.mp4", Size: 100}})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("Validate() error = %v, want %v", err, ErrUnsupportedFormat)
		}
	})

	t.Run("single file is enough", func(t *testing.T) {
		if err := v.Validate(KindConvert, []FileMeta{{Name: "a.mp3", Size: 100}}); err != nil {
			t.Fatalf("Validate() error = %v, want nil", err)
		}
	})
}

func TestAllowedExtensions(t *testing.T) {
	if got := AllowedExtensions(KindMerge); len(got) != len(VideoExtensions) {
		t.Errorf("AllowedExtensions(KindMerge) = %v", got)
	}
	if got := AllowedExtensions(KindConvert); len(got) != len(AudioExtensions) {
		t.Errorf("AllowedExtensions(KindConvert) = %v", got)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"video.mp4", "video.mp4"},
		{"my clip.mp4", "my_clip.mp4"},
		{"../../etc/passwd", "passwd"},
		{`..\..\windows\system32`, "system32"},
		{"weird<>:\"|?.mov", "weird______.mov"},
		{"...", "upload"},
		{"", "upload"},
		{"-leading-kept.mp4", "-leading-kept.mp4"},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
