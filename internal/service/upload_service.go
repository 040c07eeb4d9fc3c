// Package service implements the upload pipeline: splitting a file into
// chunks, stamping and uploading every chunk on a bounded pool, and saving
// the manifest that names the result.
package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
	"github.com/Cafe137/swarm-chunked-upload/internal/postage"
)

// ChunkUploader writes stamped chunks and manifest nodes to the node.
type ChunkUploader interface {
	DataUploader
	UploadChunk(ctx context.Context, stamp postage.Stamp, data []byte) (domain.Address, error)
}

// Stamper issues a postage stamp for a chunk address.
type Stamper interface {
	Stamp(address domain.Address) (postage.Stamp, error)
	Batch() domain.PostageBatch
}

// RecordRepository stores summaries of finished uploads.
type RecordRepository interface {
	CreateRecord(ctx context.Context, record domain.UploadRecord) (domain.UploadRecord, error)
}

// State is a stage of the upload pipeline.
type State int32

const (
	StateIdle State = iota
	StateSplitting
	StateUploadingChunks
	StateBuildingManifest
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSplitting:
		return "splitting"
	case StateUploadingChunks:
		return "uploading chunks"
	case StateBuildingManifest:
		return "building manifest"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// UploadOptions tunes one upload. The zero value uploads with the default
// parallelism, a single attempt per chunk, and a content type derived from
// the filename.
type UploadOptions struct {
	Parallelism int
	Retry       RetryPolicy
	ContentType string
	Observer    Observer
}

// UploadService runs the upload pipeline once.
type UploadService struct {
	uploader  ChunkUploader
	stamper   Stamper
	records   RecordRepository
	manifests *ManifestService
	opts      UploadOptions
	now       func() time.Time

	state atomic.Int32
	used  atomic.Bool
}

// NewUploadService creates a single-shot pipeline. records may be nil, in
// which case nothing is recorded after a successful upload.
func NewUploadService(uploader ChunkUploader, stamper Stamper, records RecordRepository, opts UploadOptions) *UploadService {
	return &UploadService{
		uploader:  uploader,
		stamper:   stamper,
		records:   records,
		manifests: NewManifestService(uploader, opts.Retry),
		opts:      opts,
		now:       time.Now,
	}
}

// State reports the current pipeline stage.
func (s *UploadService) State() State {
	return State(s.state.Load())
}

// Upload splits data, uploads every chunk of every level, and saves a
// manifest exposing the file as /filename. It can be called only once.
func (s *UploadService) Upload(ctx context.Context, filename string, data []byte) (domain.UploadResult, error) {
	if !s.used.CompareAndSwap(false, true) {
		return domain.UploadResult{}, errors.ErrPipelineUsed
	}

	s.setState(StateSplitting)
	if len(data) == 0 {
		return s.fail(errors.ErrEmptyFile)
	}
	levels, err := bmt.Split(data)
	if err != nil {
		return s.fail(fmt.Errorf("splitting %s: %w", filename, err))
	}
	root, err := bmt.Root(levels)
	if err != nil {
		return s.fail(err)
	}
	chunkCount := bmt.Count(levels)
	log.Infof("Uploading %s: %d bytes in %d chunks", filename, len(data), chunkCount)

	s.setState(StateUploadingChunks)
	scheduler := NewScheduler(s.opts.Parallelism, s.opts.Retry, s.opts.Observer)
	if err := scheduler.Run(ctx, s.tasks(levels)); err != nil {
		return s.fail(err)
	}

	s.setState(StateBuildingManifest)
	contentType := s.opts.ContentType
	if contentType == "" {
		contentType = DetectContentType(filename)
	}
	reference, err := s.manifests.Build(ctx, root.Address(), filename, contentType)
	if err != nil {
		return s.fail(err)
	}

	result := domain.UploadResult{
		RootAddress:       root.Address(),
		ManifestReference: reference,
		ChunkCount:        chunkCount,
		Size:              int64(len(data)),
	}
	s.setState(StateDone)
	log.Infof("Uploaded %s: root %s, manifest %s", filename, result.RootAddress, result.ManifestReference)

	s.record(ctx, filename, contentType, result)
	return result, nil
}

// tasks builds one task per chunk, leaves first. Each chunk is stamped once
// and the stamp is reused across retries.
func (s *UploadService) tasks(levels [][]bmt.Chunk) []Task {
	var tasks []Task
	for _, level := range levels {
		for _, chunk := range level {
			var stamp *postage.Stamp
			tasks = append(tasks, Task{
				Chunk: chunk,
				Upload: func(ctx context.Context) error {
					if stamp == nil {
						st, err := s.stamper.Stamp(chunk.Address())
						if err != nil {
							return err
						}
						stamp = &st
					}
					_, err := s.uploader.UploadChunk(ctx, *stamp, chunk.Data())
					return err
				},
			})
		}
	}
	return tasks
}

func (s *UploadService) record(ctx context.Context, filename, contentType string, result domain.UploadResult) {
	if s.records == nil {
		return
	}
	record := domain.NewUploadRecord(filename, contentType, s.stamper.Batch(), result, s.now())
	if _, err := s.records.CreateRecord(ctx, record); err != nil {
		log.Warnf("Failed to record upload of %s: %v", filename, err)
	}
}

func (s *UploadService) setState(state State) {
	log.Debugf("Upload pipeline: %s", state)
	s.state.Store(int32(state))
}

func (s *UploadService) fail(err error) (domain.UploadResult, error) {
	s.setState(StateFailed)
	return domain.UploadResult{}, err
}
