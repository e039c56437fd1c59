package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements the Storage interface using local disk.
// It stages uploads in a configurable directory and does not support
// S3 operations unless wrapped with S3Storage.
type LocalStorage struct {
	uploadDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// If uploadDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(uploadDir string) (*LocalStorage, error) {
	if uploadDir == "" {
		uploadDir = filepath.Join(os.TempDir(), "clipstitch-uploads")
	}

	if err := os.MkdirAll(uploadDir, 0750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	return &LocalStorage{uploadDir: uploadDir}, nil
}

// UploadDir returns the upload staging directory path.
func (s *LocalStorage) UploadDir() string {
	return s.uploadDir
}

// SaveUpload saves data to a staging file and returns the file path.
// The name is used as a base for the filename with a unique suffix,
// preserving the extension so ffmpeg can sniff the container.
func (s *LocalStorage) SaveUpload(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]

	f, err := os.CreateTemp(s.uploadDir, stem+"_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write staging file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close staging file: %w", err)
	}

	return fileName, nil
}

// OpenUpload reads a staged upload and returns a reader.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) OpenUpload(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}

	return f, nil
}

// RemoveUploads removes the specified staged files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered. Missing files are not errors.
func (s *LocalStorage) RemoveUploads(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove staged file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// MirrorArtifact is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) MirrorArtifact(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
