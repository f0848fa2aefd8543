package s3

import (
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/image-resizer/internal/config"
)

const contentType = "image/png"

// Storage mirrors accepted renditions into an S3-compatible bucket (MinIO).
type Storage struct {
	client     *minio.Client
	bucketName string
	prefix     string
	strategy   retry.Strategy
}

// NewStorage creates a new Storage instance connected to the configured MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, cfg config.Storage, strategy retry.Strategy) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
		prefix:     cfg.Prefix,
		strategy:   strategy,
	}, nil
}

// Upload copies the local rendition at localPath to the bucket under name,
// retrying with the configured strategy. Returns the object key.
func (s *Storage) Upload(ctx context.Context, localPath, name string) (string, error) {
	key := objectName(s.prefix, name)

	err := retry.Do(func() error {
		_, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
			ContentType: contentType,
		})
		return err
	}, s.strategy)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return key, nil
}

// objectName joins prefix and name with forward slashes regardless of OS.
func objectName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
