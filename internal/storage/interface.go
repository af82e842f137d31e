// Package storage keeps job artifacts in an object store.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned by Download for a missing key.
var ErrNotFound = errors.New("object not found")

// ObjectStorage defines the interface for object storage operations
type ObjectStorage interface {
	// Upload stores size bytes from reader under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens the object stored under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns a location for the object, for logs and clients.
	GetURL(key string) string

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}

// Put uploads data under key.
func Put(ctx context.Context, s ObjectStorage, key string, data []byte, contentType string) error {
	return s.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
}

// Get reads the whole object stored under key.
func Get(ctx context.Context, s ObjectStorage, key string) ([]byte, error) {
	rc, err := s.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// ResultKey is the artifact key of a job.
func ResultKey(jobID, ext string) string {
	return "results/" + jobID + ext
}
