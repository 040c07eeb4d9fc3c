package service

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
)

// DefaultParallelism is the number of chunk uploads kept in flight.
const DefaultParallelism = 8

// Task uploads one chunk. Upload is attempted according to the scheduler's
// retry policy.
type Task struct {
	Chunk  bmt.Chunk
	Upload func(ctx context.Context) error
}

// Scheduler runs chunk uploads on a bounded pool with per-task retry.
type Scheduler struct {
	parallelism int
	policy      RetryPolicy
	observer    Observer
}

// NewScheduler creates a scheduler keeping at most parallelism tasks in
// flight. A nil observer is replaced by NopObserver.
func NewScheduler(parallelism int, policy RetryPolicy, observer Observer) *Scheduler {
	if parallelism < 1 {
		parallelism = DefaultParallelism
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Scheduler{
		parallelism: parallelism,
		policy:      policy,
		observer:    observer,
	}
}

// Run executes tasks in order with bounded concurrency and waits for every
// started task to return. After the first task exhausts its retries no
// further tasks are started; tasks already running are left to finish.
// The first terminal error is returned.
func (s *Scheduler) Run(ctx context.Context, tasks []Task) error {
	var (
		g        errgroup.Group
		failed   atomic.Bool
		once     sync.Once
		firstErr error
		skipped  atomic.Int64
	)
	g.SetLimit(s.parallelism)

	for _, task := range tasks {
		if failed.Load() {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			if failed.Load() {
				skipped.Add(1)
				return nil
			}
			if err := s.run(ctx, task); err != nil {
				once.Do(func() { firstErr = err })
				failed.Store(true)
				return err
			}
			return nil
		})
	}
	g.Wait()

	if firstErr != nil {
		log.Debugf("Chunk upload failed, %d tasks not started", skipped.Load())
	}
	return firstErr
}

func (s *Scheduler) run(ctx context.Context, task Task) error {
	_, err := Retry(ctx, s.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, task.Upload(ctx)
	}, func(attempt int, err error) {
		s.observer.ChunkFailed(task.Chunk, attempt, err)
	})
	if err != nil {
		return err
	}
	s.observer.ChunkUploaded(task.Chunk)
	return nil
}
