// Package objectstore provides the sinks chunk exports are written to and a
// factory that builds them from target URIs.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectRepository defines the interface for object storage operations
type ObjectRepository interface {
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
	GetBucketName() string
	GetStorageType() string
}

// RepositoryType represents the type of object storage
type RepositoryType string

const (
	LocalType RepositoryType = "file"
	S3Type    RepositoryType = "s3"
	GCSType   RepositoryType = "gcs"
)

// BucketConfig holds configuration for a storage bucket. For local targets
// Name is the directory.
type BucketConfig struct {
	Name   string
	Prefix string
	Type   RepositoryType
}

// String formats the config back into a target URI.
func (c BucketConfig) String() string {
	scheme := string(c.Type)
	if c.Type == GCSType {
		scheme = "gs"
	}
	if c.Prefix == "" {
		return fmt.Sprintf("%s://%s", scheme, c.Name)
	}
	return fmt.Sprintf("%s://%s/%s", scheme, c.Name, c.Prefix)
}

// ObjectRepositoryFactory creates object repository instances
type ObjectRepositoryFactory struct {
	awsConfig *aws.Config
	gcsClient *storage.Client
}

// NewObjectRepositoryFactory creates a new factory. Either client may be nil
// when no target of that type is used.
func NewObjectRepositoryFactory(awsConfig *aws.Config, gcsClient *storage.Client) *ObjectRepositoryFactory {
	return &ObjectRepositoryFactory{
		awsConfig: awsConfig,
		gcsClient: gcsClient,
	}
}

// CreateRepository creates a repository based on bucket configuration
func (f *ObjectRepositoryFactory) CreateRepository(config BucketConfig) (ObjectRepository, error) {
	switch config.Type {
	case LocalType:
		return NewLocalObjectRepository(config.Name, config.Prefix), nil
	case S3Type:
		if f.awsConfig == nil {
			return nil, fmt.Errorf("AWS config not loaded for %s", config)
		}
		repo := NewS3ObjectRepository(s3.NewFromConfig(*f.awsConfig), config.Name, config.Prefix)
		return &repo, nil
	case GCSType:
		if f.gcsClient == nil {
			return nil, fmt.Errorf("GCS client not configured for %s", config)
		}
		repo := NewGCSObjectRepository(f.gcsClient, config.Name, config.Prefix)
		return &repo, nil
	default:
		return nil, fmt.Errorf("unsupported repository type: %s", config.Type)
	}
}

// ParseBucketConfig parses a target URI.
// Formats: "file://dir", "s3://bucket/prefix", "gs://bucket/prefix", or a
// bare path, which is a local directory.
func ParseBucketConfig(target string) (BucketConfig, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return BucketConfig{}, fmt.Errorf("export target cannot be empty")
	}

	scheme, rest, found := strings.Cut(target, "://")
	if !found {
		return BucketConfig{Name: target, Type: LocalType}, nil
	}

	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "file":
		if rest == "" {
			return BucketConfig{}, fmt.Errorf("directory cannot be empty in %s", target)
		}
		return BucketConfig{Name: rest, Type: LocalType}, nil
	case "s3":
		return parseBucketAndPrefix(S3Type, rest, target)
	case "gs":
		return parseBucketAndPrefix(GCSType, rest, target)
	default:
		return BucketConfig{}, fmt.Errorf("unsupported scheme: %s", scheme)
	}
}

func parseBucketAndPrefix(repoType RepositoryType, rest, target string) (BucketConfig, error) {
	bucket, prefix, _ := strings.Cut(rest, "/")
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return BucketConfig{}, fmt.Errorf("bucket name cannot be empty in %s", target)
	}
	return BucketConfig{
		Name:   bucket,
		Prefix: strings.Trim(prefix, "/"),
		Type:   repoType,
	}, nil
}

func objectKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
