// Package s3storage signs direct download links for report objects when the
// portal has its own S3 credentials.
package s3storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
)

// ErrDisabled is returned by New when S3 access is not configured.
var ErrDisabled = errors.New("s3 access is not configured")

const defaultRegion = "us-east-1"

// Storage wraps the MinIO client for one bucket.
type Storage struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// New creates a MinIO client from cfg.
func New(cfg config.S3Config) (*Storage, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{client: client, bucket: cfg.Bucket, ttl: cfg.PresignTTL}, nil
}

// PresignDownload returns a signed GET URL for key that downloads under the
// object's base name.
func (s *Storage) PresignDownload(ctx context.Context, key string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}
