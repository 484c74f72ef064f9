// Package storage abstracts where heap snapshot files come from and where
// produced artifacts go. Local filesystem is the default; Tencent COS serves
// setups where snapshots are collected centrally.
package storage

import (
	"context"
	"io"

	"github.com/heapquery/pkg/config"
	apperrors "github.com/heapquery/pkg/errors"
)

// Source provides access to snapshot files and artifact upload.
type Source interface {
	// Open opens the snapshot at the given key for reading.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Fetch makes the snapshot at key available as a local file under
	// destDir and returns its path. Sources that are already local may
	// return the original path without copying.
	Fetch(ctx context.Context, key string, destDir string) (string, error)

	// Exists checks whether a snapshot exists at the given key.
	Exists(ctx context.Context, key string) (bool, error)

	// PutArtifact stores a produced local file (the companion database)
	// under the given key.
	PutArtifact(ctx context.Context, key string, localPath string) error

	// URL returns where the key resolves to, for log and error messages.
	URL(key string) string
}

// SourceType represents the type of snapshot source.
type SourceType string

const (
	SourceTypeLocal SourceType = "local"
	SourceTypeCOS   SourceType = "cos"
)

// NewSource creates a Source from the storage configuration.
func NewSource(cfg *config.StorageConfig) (Source, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch SourceType(cfg.Type) {
	case SourceTypeCOS:
		return NewCOSSource(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalSource(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return apperrors.New(apperrors.CodeConfigError, "storage config is nil")
	}

	sourceType := SourceType(cfg.Type)
	if sourceType == "" {
		sourceType = SourceTypeLocal
	}

	switch sourceType {
	case SourceTypeLocal:
		// An empty local path defaults to the working directory.
	case SourceTypeCOS:
		if cfg.Bucket == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS bucket is required")
		}
		if cfg.Region == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS credentials are required")
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported storage type: %s", cfg.Type)
	}

	return nil
}
