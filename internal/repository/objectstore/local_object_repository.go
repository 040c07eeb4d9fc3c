package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LocalObjectRepository stores objects as files below a directory.
type LocalObjectRepository struct {
	dir    string
	prefix string
}

// Upload writes the object to dir/prefix/key, creating directories as needed.
func (r *LocalObjectRepository) Upload(ctx context.Context, key string, reader io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(r.dir, filepath.FromSlash(objectKey(r.prefix, key)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Tracef("Wrote %s", path)
	return "file://" + path, nil
}

// DeletePrefix removes the files in the repository directory whose names
// start with prefix.
func (r *LocalObjectRepository) DeletePrefix(ctx context.Context, prefix string) error {
	full := filepath.Join(r.dir, filepath.FromSlash(objectKey(r.prefix, prefix)))
	dir, base := filepath.Split(full)
	if strings.HasSuffix(prefix, "/") || prefix == "" {
		dir, base = full, ""
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), base) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// GetBucketName returns the directory
func (r *LocalObjectRepository) GetBucketName() string {
	return r.dir
}

// GetStorageType returns the storage type
func (r *LocalObjectRepository) GetStorageType() string {
	return string(LocalType)
}
