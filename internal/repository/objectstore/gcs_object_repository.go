package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
)

// GCSObjectRepository implements ObjectRepository for Google Cloud Storage
type GCSObjectRepository struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// Upload uploads an object to GCS
func (r *GCSObjectRepository) Upload(ctx context.Context, key string, reader io.Reader) (string, error) {
	fullKey := objectKey(r.prefix, key)
	log.Tracef("Uploading to gs://%s/%s", r.bucketName, fullKey)

	writer := r.client.Bucket(r.bucketName).Object(fullKey).NewWriter(ctx)
	writer.ContentType = "application/octet-stream"

	if _, err := io.Copy(writer, reader); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to upload to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to upload to GCS: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", r.bucketName, fullKey), nil
}

// DeletePrefix deletes all objects with the given prefix from GCS
func (r *GCSObjectRepository) DeletePrefix(ctx context.Context, prefix string) error {
	bucket := r.client.Bucket(r.bucketName)
	it := bucket.Objects(ctx, &storage.Query{Prefix: objectKey(r.prefix, prefix)})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to list objects with prefix %s: %w", prefix, err)
		}

		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil {
			log.Warnf("Failed to delete object %s: %v", attrs.Name, err)
		}
	}

	return nil
}

// GetBucketName returns the bucket name
func (r *GCSObjectRepository) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the storage type
func (r *GCSObjectRepository) GetStorageType() string {
	return string(GCSType)
}
