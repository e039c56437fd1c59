// Package artifact maps finished outputs to short-lived download tokens and
// reclaims expired files. A token is simply the artifact's file name under
// the output directory; there is no deduplication or content addressing.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Static errors for artifact resolution.
var (
	// ErrNotFound is returned when a token does not resolve to a stored artifact.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidToken is returned when a token is empty or contains path elements.
	ErrInvalidToken = errors.New("invalid artifact token")
)

// Store maps generated output files under a known directory to download
// tokens. Each artifact is exclusively owned by its job until the sweeper
// reclaims it.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory path.
func (s *Store) Dir() string {
	return s.dir
}

// NewName builds a unique mp4 artifact name from the requested output name,
// falling back to fallbackStem when none was given. A short random suffix
// keeps identical requests from colliding.
func (s *Store) NewName(requested, fallbackStem string) string {
	stem := strings.TrimSuffix(filepath.Base(requested), filepath.Ext(requested))
	if stem == "" || stem == "." {
		stem = fallbackStem
	}
	if stem == "" {
		stem = "output"
	}
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s_%s.mp4", stem, suffix)
}

// Path returns the full path for an artifact name inside the store.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Resolve maps a download token to the artifact path, rejecting tokens that
// escape the output directory and tokens for missing (expired) files.
func (s *Store) Resolve(token string) (string, error) {
	if token == "" || token != filepath.Base(token) || strings.Contains(token, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}

	path := filepath.Join(s.dir, token)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, token)
		}
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, token)
	}

	return path, nil
}
