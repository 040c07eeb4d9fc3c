package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

// S3ObjectRepository manages S3 interactions for objects.
type S3ObjectRepository struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucketName string
	prefix     string
}

// GetBucketName returns the bucket name.
func (r *S3ObjectRepository) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the object store type.
func (r *S3ObjectRepository) GetStorageType() string {
	return string(S3Type)
}

// Upload uploads an object below the repository prefix and returns its URI.
func (r *S3ObjectRepository) Upload(ctx context.Context, key string, reader io.Reader) (string, error) {
	fullKey := objectKey(r.prefix, key)
	log.Tracef("Uploading to s3://%s/%s", r.bucketName, fullKey)

	_, err := r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucketName),
		Key:         aws.String(fullKey),
		Body:        reader,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", r.bucketName, fullKey), nil
}

// DeletePrefix removes all objects with the given prefix below the
// repository prefix.
func (r *S3ObjectRepository) DeletePrefix(ctx context.Context, prefix string) error {
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucketName),
		Prefix: aws.String(objectKey(r.prefix, prefix)),
	}

	for {
		result, err := r.client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return err
		}

		for _, obj := range result.Contents {
			_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(r.bucketName),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("failed to delete s3://%s/%s: %w", r.bucketName, aws.ToString(obj.Key), err)
			}
		}

		if result.IsTruncated == nil || !*result.IsTruncated {
			break
		}
		listInput.ContinuationToken = result.NextContinuationToken
	}

	return nil
}
