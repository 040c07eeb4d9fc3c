package objectstore

import (
	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3ObjectRepository creates a new S3 object repository
func NewS3ObjectRepository(client *s3.Client, bucketName, prefix string) S3ObjectRepository {
	return S3ObjectRepository{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucketName: bucketName,
		prefix:     prefix,
	}
}

// NewGCSObjectRepository creates a new GCS object repository
func NewGCSObjectRepository(client *storage.Client, bucketName, prefix string) GCSObjectRepository {
	return GCSObjectRepository{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
	}
}

// NewLocalObjectRepository creates a repository writing below dir.
func NewLocalObjectRepository(dir, prefix string) *LocalObjectRepository {
	return &LocalObjectRepository{
		dir:    dir,
		prefix: prefix,
	}
}
