package objectstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseBucketConfig(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		want    BucketConfig
		wantErr bool
	}{
		{
			name:   "bare path",
			target: "out",
			want:   BucketConfig{Name: "out", Type: LocalType},
		},
		{
			name:   "file uri",
			target: "file:///tmp/chunks",
			want:   BucketConfig{Name: "/tmp/chunks", Type: LocalType},
		},
		{
			name:   "s3 bucket",
			target: "s3://my-bucket",
			want:   BucketConfig{Name: "my-bucket", Type: S3Type},
		},
		{
			name:   "s3 bucket with prefix",
			target: "s3://my-bucket/exports/run-1/",
			want:   BucketConfig{Name: "my-bucket", Prefix: "exports/run-1", Type: S3Type},
		},
		{
			name:   "gcs bucket with prefix",
			target: " gs://other/chunks ",
			want:   BucketConfig{Name: "other", Prefix: "chunks", Type: GCSType},
		},
		{
			name:    "empty",
			target:  "  ",
			wantErr: true,
		},
		{
			name:    "missing bucket",
			target:  "s3:///prefix",
			wantErr: true,
		},
		{
			name:    "unknown scheme",
			target:  "ftp://host",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBucketConfig(tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBucketConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseBucketConfig() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBucketConfigString(t *testing.T) {
	tests := []struct {
		config BucketConfig
		want   string
	}{
		{BucketConfig{Name: "out", Type: LocalType}, "file://out"},
		{BucketConfig{Name: "b", Prefix: "p", Type: S3Type}, "s3://b/p"},
		{BucketConfig{Name: "b", Type: GCSType}, "gs://b"},
	}
	for _, tt := range tests {
		if got := tt.config.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestFactoryRequiresClients(t *testing.T) {
	f := NewObjectRepositoryFactory(nil, nil)

	if _, err := f.CreateRepository(BucketConfig{Name: "b", Type: S3Type}); err == nil {
		t.Error("CreateRepository(s3) without AWS config succeeded")
	}
	if _, err := f.CreateRepository(BucketConfig{Name: "b", Type: GCSType}); err == nil {
		t.Error("CreateRepository(gcs) without GCS client succeeded")
	}
	repo, err := f.CreateRepository(BucketConfig{Name: t.TempDir(), Type: LocalType})
	if err != nil {
		t.Fatal(err)
	}
	if repo.GetStorageType() != "file" {
		t.Errorf("GetStorageType() = %s, want file", repo.GetStorageType())
	}
}

func TestLocalObjectRepository(t *testing.T) {
	dir := t.TempDir()
	repo := NewLocalObjectRepository(dir, "run")
	ctx := context.Background()

	uri, err := repo.Upload(ctx, "data-00000-ab.bin", bytes.NewReader([]byte{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "run", "data-00000-ab.bin")
	if uri != "file://"+path {
		t.Errorf("Upload() = %s, want file://%s", uri, path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("file contents = %v", got)
	}

	if _, err := repo.Upload(ctx, "keep.txt", bytes.NewReader(nil)); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeletePrefix(ctx, "data-"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s still exists after DeletePrefix", path)
	}
	if _, err := os.Stat(filepath.Join(dir, "run", "keep.txt")); err != nil {
		t.Errorf("DeletePrefix removed an unrelated file: %v", err)
	}
}

func TestLocalDeletePrefixMissingDirectory(t *testing.T) {
	repo := NewLocalObjectRepository(filepath.Join(t.TempDir(), "missing"), "")
	if err := repo.DeletePrefix(context.Background(), "data-"); err != nil {
		t.Errorf("DeletePrefix() on missing directory = %v", err)
	}
}
