package storage

import (
	"context"
	"fmt"
	"strings"
)

// StorageType selects the backend.
type StorageType string

const (
	StorageTypeLocal        StorageType = "local"
	StorageTypeMinIO        StorageType = "minio"
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
)

// Config holds configuration for every backend.
type Config struct {
	Type      StorageType
	LocalDir  string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	Prefix    string
	PublicURL string
}

// NewStorage creates the backend selected by cfg. An empty type with an
// endpoint is detected from the endpoint; without one it is local.
// Parameters:
//   - ctx: used to ensure the bucket exists for remote backends.
//   - cfg: storage configuration.
//
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(ctx context.Context, cfg Config) (ObjectStorage, error) {
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}

	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalDir)
	case StorageTypeMinIO:
		s, err := NewMinIOStorage(cfg)
		if err != nil {
			return nil, err
		}
		return s, s.EnsureBucket(ctx)
	case StorageTypeS3, StorageTypeR2, StorageTypeS3Compatible:
		s, err := NewS3Storage(cfg)
		if err != nil {
			return nil, err
		}
		return s, s.EnsureBucket(ctx)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case endpoint == "":
		return StorageTypeLocal
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}
