package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Location  string
	UseSSL    bool
	// Prefix is stripped from local directories before they become object keys.
	Prefix string
}

// MinioStore mirrors saved results into an S3-compatible bucket.
type MinioStore struct {
	config MinioConfig
	put    func(ctx context.Context, objectName string, data []byte, contentType string) error
}

var _ Store = (*MinioStore)(nil)

// NewMinioStore connects to the bucket, creating it when it does not exist.
func NewMinioStore(ctx context.Context, config MinioConfig) (*MinioStore, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", config.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Location}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", config.Bucket, err)
		}
	}

	return &MinioStore{
		config: config,
		put: func(ctx context.Context, objectName string, data []byte, contentType string) error {
			_, err := client.PutObject(
				ctx,
				config.Bucket,
				objectName,
				bytes.NewReader(data),
				int64(len(data)),
				minio.PutObjectOptions{ContentType: contentType},
			)
			return err
		},
	}, nil
}

func (s *MinioStore) Save(ctx context.Context, dir, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	if err := validateFilename(filename); err != nil {
		return "", err
	}

	objectName := s.objectName(dir, filename)
	contentType := mimetype.Detect(data).String()
	if err := s.put(ctx, objectName, data, contentType); err != nil {
		return "", fmt.Errorf("put object %s: %w", objectName, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, objectName), nil
}

func (s *MinioStore) objectName(dir, filename string) string {
	dir = filepath.ToSlash(filepath.Clean(dir))
	if s.config.Prefix != "" {
		prefix := filepath.ToSlash(filepath.Clean(s.config.Prefix))
		dir = strings.TrimPrefix(strings.TrimPrefix(dir, prefix), "/")
	}
	dir = strings.TrimLeft(dir, "/")
	if dir == "." {
		dir = ""
	}
	return path.Join(dir, filename)
}
