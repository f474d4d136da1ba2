package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"festival-scraper/utils"
)

// MinIOArchive keeps a copy of every run's CSV dataset in object storage.
type MinIOArchive struct {
	client *minio.Client
	bucket string
	logger *utils.Logger
}

// NewMinIOArchive creates the client and makes sure the bucket exists.
func NewMinIOArchive(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, logger *utils.Logger) (*MinIOArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio: create bucket %s: %w", bucket, err)
		}
		logger.Info("[minio] Bucket %s created", bucket)
	}

	return &MinIOArchive{client: client, bucket: bucket, logger: logger}, nil
}

// ArchiveKey is the object name of a run's dataset.
func ArchiveKey(runID string, at time.Time) string {
	return fmt.Sprintf("festivals/%s/%s.csv", at.UTC().Format("2006-01-02"), runID)
}

// Upload stores the file at path under ArchiveKey and returns the key.
func (a *MinIOArchive) Upload(ctx context.Context, path, runID string, at time.Time) (string, error) {
	key := ArchiveKey(runID, at)
	info, err := a.client.FPutObject(ctx, a.bucket, key, path, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("minio: upload %s: %w", key, err)
	}
	a.logger.Info("[minio] Archived %s (%d bytes) as %s/%s", path, info.Size, a.bucket, key)
	return key, nil
}
