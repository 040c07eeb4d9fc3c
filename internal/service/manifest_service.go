package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/mantaray"
)

// Manifest metadata keys understood by Bee.
const (
	MetadataContentType   = "Content-Type"
	MetadataFilename      = "Filename"
	MetadataIndexDocument = "website-index-document"
)

// DataUploader stores arbitrary blobs on the node.
type DataUploader interface {
	UploadData(ctx context.Context, data []byte) (domain.Address, error)
}

// ManifestService builds the single-file website manifest that makes an
// uploaded file reachable by name.
type ManifestService struct {
	uploader DataUploader
	policy   RetryPolicy
}

// NewManifestService creates a ManifestService that saves every trie node
// through uploader, retrying per policy.
func NewManifestService(uploader DataUploader, policy RetryPolicy) *ManifestService {
	return &ManifestService{
		uploader: uploader,
		policy:   policy,
	}
}

// Build maps /filename to root and / to an index document pointing at
// /filename, saves the trie, and returns its reference.
func (s *ManifestService) Build(ctx context.Context, root domain.Address, filename, contentType string) (domain.Address, error) {
	node := mantaray.New()
	node.AddFork([]byte("/"+filename), root, map[string]string{
		MetadataContentType: contentType,
		MetadataFilename:    filename,
	})
	node.AddFork([]byte("/"), domain.ZeroAddress, map[string]string{
		MetadataIndexDocument: "/" + filename,
	})

	reference, err := node.Save(ctx, s.save)
	if err != nil {
		return domain.Address{}, fmt.Errorf("building manifest for %s: %w", filename, err)
	}
	log.Debugf("Manifest for %s saved as %s", filename, reference)
	return reference, nil
}

func (s *ManifestService) save(ctx context.Context, data []byte) (domain.Address, error) {
	return Retry(ctx, s.policy, func(ctx context.Context) (domain.Address, error) {
		return s.uploader.UploadData(ctx, data)
	}, nil)
}
