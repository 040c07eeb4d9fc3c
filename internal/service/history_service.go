package service

import (
	"context"
	"fmt"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
)

// RecordLister reads stored upload records.
type RecordLister interface {
	GetRecord(ctx context.Context, fileName, rootAddress string) (domain.UploadRecord, error)
	ListRecordsByFilename(ctx context.Context, fileName string) ([]domain.UploadRecord, error)
}

// HistoryService answers questions about earlier uploads.
type HistoryService struct {
	records RecordLister
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(records RecordLister) *HistoryService {
	return &HistoryService{records: records}
}

// Uploads lists every recorded upload of filename, newest first.
func (s *HistoryService) Uploads(ctx context.Context, filename string) ([]domain.UploadRecord, error) {
	records, err := s.records.ListRecordsByFilename(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("listing uploads of %s: %w", filename, err)
	}
	return records, nil
}

// Upload returns the record of one upload of filename.
func (s *HistoryService) Upload(ctx context.Context, filename string, root domain.Address) (domain.UploadRecord, error) {
	return s.records.GetRecord(ctx, filename, root.String())
}
