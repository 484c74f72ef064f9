package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/tencentyun/cos-go-sdk-v5"

	apperrors "github.com/heapquery/pkg/errors"
)

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // e.g., "myqcloud.com"
	Scheme    string // e.g., "https" or "http"
}

// COSSource serves snapshots from a Tencent Cloud COS bucket.
type COSSource struct {
	client *cos.Client
	bucket string
	region string
	domain string
	scheme string
}

// NewCOSSource creates a COSSource for the configured bucket.
func NewCOSSource(cfg *COSConfig) (*COSSource, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, apperrors.New(apperrors.CodeConfigError, "bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, apperrors.New(apperrors.CodeConfigError, "credentials are required for COS storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	bucketURL, err := url.Parse(fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to parse bucket URL", err)
	}

	serviceURL, err := url.Parse(fmt.Sprintf("%s://cos.%s.%s", scheme, cfg.Region, domain))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to parse service URL", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL:  bucketURL,
		ServiceURL: serviceURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSSource{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		domain: domain,
		scheme: scheme,
	}, nil
}

// Open streams the snapshot object at the given key.
func (s *COSSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDownloadError, "failed to download snapshot from COS", err)
	}
	return resp.Body, nil
}

// Fetch downloads the snapshot object into destDir and returns the local path.
func (s *COSSource) Fetch(ctx context.Context, key string, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeDownloadError, "failed to create work directory", err)
	}

	localPath := filepath.Join(destDir, filepath.Base(key))
	if _, err := s.client.Object.GetToFile(ctx, key, localPath, nil); err != nil {
		return "", apperrors.Wrap(apperrors.CodeDownloadError, "failed to download snapshot from COS", err)
	}
	return localPath, nil
}

// Exists checks whether an object exists at the given key.
func (s *COSSource) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeDownloadError, "failed to check existence in COS", err)
	}
	return ok, nil
}

// PutArtifact uploads a produced local file to the bucket.
func (s *COSSource) PutArtifact(ctx context.Context, key string, localPath string) error {
	if _, err := s.client.Object.PutFromFile(ctx, key, localPath, nil); err != nil {
		return apperrors.Wrap(apperrors.CodeUploadError, "failed to upload artifact to COS", err)
	}
	return nil
}

// URL returns the public URL for the given key.
func (s *COSSource) URL(key string) string {
	return fmt.Sprintf("%s://%s.cos.%s.%s/%s", s.scheme, s.bucket, s.region, s.domain, key)
}
