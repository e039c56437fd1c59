// Package storage provides upload staging and optional S3 mirroring.
// The Storage interface is the port; LocalStorage writes to the upload
// directory and S3Storage decorates it with artifact uploads.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for staging uploads during processing and
// optionally mirroring finished artifacts to S3.
type Storage interface {
	// SaveUpload saves data to a staging file under the upload directory
	// and returns the file path. The name parameter is a filename hint.
	SaveUpload(ctx context.Context, name string, data io.Reader) (path string, err error)

	// OpenUpload reads a staged upload and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	OpenUpload(ctx context.Context, path string) (io.ReadCloser, error)

	// RemoveUploads removes the specified staged files.
	// It continues cleanup even if some files fail to delete.
	RemoveUploads(ctx context.Context, paths []string) error

	// MirrorArtifact uploads artifact data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured when S3 is not configured.
	MirrorArtifact(ctx context.Context, key string, data io.Reader) (url string, err error)
}
