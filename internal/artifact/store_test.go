package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", store.Dir(), dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory")
	}
}

func TestNewName(t *testing.T) {
	store := &Store{dir: "out"}
	namePattern := regexp.MustCompile(`^.+_[0-9a-f]{8}\.mp4$`)

	tests := []struct {
		name       string
		requested  string
		fallback   string
		wantPrefix string
	}{
		{"requested name wins", "holiday.mp4", "merged_video", "holiday_"},
		{"extension is normalized away", "holiday.avi", "merged_video", "holiday_"},
		{"fallback when empty", "", "merged_video", "merged_video_"},
		{"path elements stripped", "../../../etc/passwd", "merged_video", "passwd_"},
		{"both empty", "", "", "output_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.NewName(tt.requested, tt.fallback)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("NewName() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if !namePattern.MatchString(got) {
				t.Errorf("NewName() = %q, want <stem>_<8 hex>.mp4", got)
			}
		})
	}

	t.Run("names do not collide", func(t *testing.T) {
		if store.NewName("same.mp4", "") == store.NewName("same.mp4", "") {
			t.Error("expected unique suffixes for identical requests")
		}
	})
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	artifactPath := filepath.Join(dir, "clip_ab12cd34.mp4")
	if err := os.WriteFile(artifactPath, []byte("video"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("valid token", func(t *testing.T) {
		path, err := store.Resolve("clip_ab12cd34.mp4")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if path != artifactPath {
			t.Errorf("Resolve() = %q, want %q", path, artifactPath)
		}
	})

	t.Run("missing artifact", func(t *testing.T) {
		_, err := store.Resolve("gone.mp4")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("traversal tokens rejected", func(t *testing.T) {
		for _, token := range []string{"", "..", "../secret.mp4", "a/b.mp4", "..mp4..", "dir/../clip_ab12cd34.mp4"} {
			if _, err := store.Resolve(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Resolve(%q) error = %v, want ErrInvalidToken", token, err)
			}
		}
	})

	t.Run("directory is not an artifact", func(t *testing.T) {
		if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Resolve("sub"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(dir) error = %v, want ErrNotFound", err)
		}
	})
}
