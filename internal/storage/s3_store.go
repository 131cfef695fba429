package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lexiqai/readaloud/internal/config"
)

// objectAPI is the subset of *minio.Client used by S3Store
type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// S3Store uploads audio to an S3-compatible bucket and returns public object URLs
type S3Store struct {
	client objectAPI
	bucket string
	host   string
}

// NewS3Store connects to the configured bucket and checks that it exists
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3Secure,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}

	scheme := "https"
	if !cfg.S3Secure {
		scheme = "http"
	}

	store := newS3Store(client, cfg.S3Bucket, fmt.Sprintf("%s://%s", scheme, cfg.S3Endpoint))
	if _, err := store.Ping(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newS3Store(client objectAPI, bucket, host string) *S3Store {
	return &S3Store{client: client, bucket: bucket, host: host}
}

// Save uploads data as an audio/mpeg object and returns its public URL
func (s *S3Store) Save(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}

	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "audio/mpeg",
		UserMetadata: map[string]string{"uploaded-at": time.Now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.host, s.bucket, url.PathEscape(name)), nil
}

// Ping checks that the bucket exists
func (s *S3Store) Ping(ctx context.Context) (bool, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return false, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return true, nil
}
