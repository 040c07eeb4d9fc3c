package objectstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	log "github.com/sirupsen/logrus"
)

const s3ArnPrefix = "arn:aws:s3:::"

// TaggingAPI is the subset of the tagging client discovery calls.
type TaggingAPI interface {
	GetResources(ctx context.Context, params *resourcegroupstaggingapi.GetResourcesInput, optFns ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error)
}

// NewTaggingClient creates a tagging client from AWS config.
func NewTaggingClient(awsConfig aws.Config) *resourcegroupstaggingapi.Client {
	return resourcegroupstaggingapi.NewFromConfig(awsConfig)
}

// ParseTag splits a "key=value" filter. A bare key matches any value.
func ParseTag(tag string) (key, value string, err error) {
	key, value, _ = strings.Cut(strings.TrimSpace(tag), "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", fmt.Errorf("tag key cannot be empty in %q", tag)
	}
	return key, strings.TrimSpace(value), nil
}

// DiscoverS3Targets lists the S3 buckets carrying the given tag and returns
// them as export targets under prefix.
func DiscoverS3Targets(ctx context.Context, client TaggingAPI, tagKey, tagValue, prefix string) ([]BucketConfig, error) {
	filter := types.TagFilter{Key: aws.String(tagKey)}
	if tagValue != "" {
		filter.Values = []string{tagValue}
	}

	paginator := resourcegroupstaggingapi.NewGetResourcesPaginator(client, &resourcegroupstaggingapi.GetResourcesInput{
		ResourceTypeFilters: []string{"s3"},
		TagFilters:          []types.TagFilter{filter},
	})

	var targets []BucketConfig
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to discover tagged buckets: %w", err)
		}
		for _, mapping := range page.ResourceTagMappingList {
			arn := aws.ToString(mapping.ResourceARN)
			bucket, ok := strings.CutPrefix(arn, s3ArnPrefix)
			if !ok || bucket == "" || strings.Contains(bucket, "/") {
				log.WithField("arn", arn).Debug("Skipping tagged resource that is not a bucket")
				continue
			}
			targets = append(targets, BucketConfig{
				Name:   bucket,
				Prefix: strings.Trim(prefix, "/"),
				Type:   S3Type,
			})
		}
	}

	log.WithFields(log.Fields{
		"tag":     tagKey,
		"buckets": len(targets),
	}).Info("Discovered export buckets")
	return targets, nil
}
