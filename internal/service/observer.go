package service

import (
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
)

// Observer is notified about the progress of individual chunk uploads.
// Implementations must be safe for concurrent use.
type Observer interface {
	ChunkUploaded(chunk bmt.Chunk)
	ChunkFailed(chunk bmt.Chunk, attempt int, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) ChunkUploaded(bmt.Chunk)           {}
func (NopObserver) ChunkFailed(bmt.Chunk, int, error) {}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Uploaded func(chunk bmt.Chunk)
	Failed   func(chunk bmt.Chunk, attempt int, err error)
}

func (o ObserverFuncs) ChunkUploaded(chunk bmt.Chunk) {
	if o.Uploaded != nil {
		o.Uploaded(chunk)
	}
}

func (o ObserverFuncs) ChunkFailed(chunk bmt.Chunk, attempt int, err error) {
	if o.Failed != nil {
		o.Failed(chunk, attempt, err)
	}
}

// LogObserver logs chunk progress through logrus.
type LogObserver struct{}

func (LogObserver) ChunkUploaded(chunk bmt.Chunk) {
	log.WithFields(log.Fields{
		"address": chunk.Address().String(),
		"span":    chunk.Span(),
	}).Debug("Chunk uploaded")
}

func (LogObserver) ChunkFailed(chunk bmt.Chunk, attempt int, err error) {
	log.WithFields(log.Fields{
		"address": chunk.Address().String(),
		"attempt": attempt,
	}).Warnf("Chunk upload failed: %v", err)
}

// ProgressObserver advances a progress bar by one for every uploaded chunk.
type ProgressObserver struct {
	bar *progressbar.ProgressBar
}

// NewProgressObserver creates a bar sized for total chunks.
func NewProgressObserver(total int) *ProgressObserver {
	return &ProgressObserver{bar: progressbar.Default(int64(total), "uploading chunks")}
}

func (p *ProgressObserver) ChunkUploaded(bmt.Chunk) {
	p.bar.Add(1)
}

func (p *ProgressObserver) ChunkFailed(bmt.Chunk, int, error) {}

// Finish completes the bar.
func (p *ProgressObserver) Finish() {
	p.bar.Finish()
}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) ChunkUploaded(chunk bmt.Chunk) {
	for _, o := range m {
		o.ChunkUploaded(chunk)
	}
}

func (m MultiObserver) ChunkFailed(chunk bmt.Chunk, attempt int, err error) {
	for _, o := range m {
		o.ChunkFailed(chunk, attempt, err)
	}
}
