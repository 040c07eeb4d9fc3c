package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/google/go-cmp/cmp"
)

type mockTaggingAPI struct {
	pages []*resourcegroupstaggingapi.GetResourcesOutput
	calls []*resourcegroupstaggingapi.GetResourcesInput
	err   error
}

func (m *mockTaggingAPI) GetResources(ctx context.Context, params *resourcegroupstaggingapi.GetResourcesInput, optFns ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	page := m.pages[len(m.calls)-1]
	return page, nil
}

func mapping(arn string) types.ResourceTagMapping {
	return types.ResourceTagMapping{ResourceARN: aws.String(arn)}
}

func TestDiscoverS3Targets(t *testing.T) {
	api := &mockTaggingAPI{
		pages: []*resourcegroupstaggingapi.GetResourcesOutput{
			{
				ResourceTagMappingList: []types.ResourceTagMapping{mapping("arn:aws:s3:::chunks-a")},
				PaginationToken:        aws.String("next"),
			},
			{
				ResourceTagMappingList: []types.ResourceTagMapping{
					mapping("arn:aws:s3:::chunks-b"),
					mapping("arn:aws:dynamodb:us-east-1:123:table/uploads"),
				},
			},
		},
	}

	got, err := DiscoverS3Targets(context.Background(), api, "swarm-export", "true", "/exports/")
	if err != nil {
		t.Fatal(err)
	}

	want := []BucketConfig{
		{Name: "chunks-a", Prefix: "exports", Type: S3Type},
		{Name: "chunks-b", Prefix: "exports", Type: S3Type},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DiscoverS3Targets() mismatch (-want +got):\n%s", diff)
	}

	if len(api.calls) != 2 {
		t.Fatalf("GetResources called %d times, want 2", len(api.calls))
	}
	filter := api.calls[0].TagFilters[0]
	if aws.ToString(filter.Key) != "swarm-export" || len(filter.Values) != 1 || filter.Values[0] != "true" {
		t.Errorf("tag filter = %+v", filter)
	}
	if aws.ToString(api.calls[1].PaginationToken) != "next" {
		t.Errorf("second page token = %q, want next", aws.ToString(api.calls[1].PaginationToken))
	}
}

func TestDiscoverS3TargetsError(t *testing.T) {
	api := &mockTaggingAPI{err: errors.New("denied")}
	if _, err := DiscoverS3Targets(context.Background(), api, "k", "", ""); err == nil {
		t.Error("DiscoverS3Targets() succeeded")
	}
	if len(api.calls[0].TagFilters[0].Values) != 0 {
		t.Error("bare key should not filter on values")
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		in        string
		key, val  string
		wantError bool
	}{
		{in: "swarm-export=true", key: "swarm-export", val: "true"},
		{in: " team ", key: "team"},
		{in: "=x", wantError: true},
	}
	for _, tt := range tests {
		key, val, err := ParseTag(tt.in)
		if (err != nil) != tt.wantError || key != tt.key || val != tt.val {
			t.Errorf("ParseTag(%q) = %q, %q, %v", tt.in, key, val, err)
		}
	}
}
