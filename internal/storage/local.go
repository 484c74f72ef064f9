package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/heapquery/pkg/errors"
)

// LocalSource serves snapshot files from a base directory on the local
// filesystem. Keys are paths relative to the base; absolute keys are used
// as given.
type LocalSource struct {
	basePath string
}

// NewLocalSource creates a LocalSource rooted at basePath.
func NewLocalSource(basePath string) (*LocalSource, error) {
	if basePath == "" {
		basePath = "."
	}
	return &LocalSource{basePath: basePath}, nil
}

// Open opens the snapshot file at the given key.
func (s *LocalSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := s.fullPath(key)
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.CodeDownloadError, "snapshot not found: %s", fullPath)
		}
		return nil, apperrors.Wrap(apperrors.CodeDownloadError, "failed to open snapshot", err)
	}
	return file, nil
}

// Fetch returns the snapshot's own path; local files need no staging copy.
func (s *LocalSource) Fetch(ctx context.Context, key string, destDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath := s.fullPath(key)
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.Newf(apperrors.CodeDownloadError, "snapshot not found: %s", fullPath)
		}
		return "", apperrors.Wrap(apperrors.CodeDownloadError, "failed to stat snapshot", err)
	}
	return fullPath, nil
}

// Exists checks whether a snapshot file exists at the given key.
func (s *LocalSource) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(s.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.CodeDownloadError, "failed to check snapshot existence", err)
	}
	return true, nil
}

// PutArtifact copies a produced file under the base directory.
func (s *LocalSource) PutArtifact(ctx context.Context, key string, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := s.fullPath(key)
	if fullPath == localPath {
		// Already in place.
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return apperrors.Wrap(apperrors.CodeUploadError, "failed to create artifact directory", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUploadError, "failed to open artifact", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUploadError, "failed to create artifact copy", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return apperrors.Wrap(apperrors.CodeUploadError, "failed to copy artifact", err)
	}
	return nil
}

// URL returns the filesystem path the key resolves to.
func (s *LocalSource) URL(key string) string {
	return s.fullPath(key)
}

func (s *LocalSource) fullPath(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(s.basePath, key)
}
