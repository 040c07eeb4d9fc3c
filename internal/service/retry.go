package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
)

// RetryPolicy bounds how often an operation is attempted.
type RetryPolicy struct {
	// Attempts is the maximum number of attempts, including the first.
	// Values below one mean a single attempt.
	Attempts int
	// Backoff is the pause between attempts. Zero retries immediately.
	Backoff time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Retry runs fn until it succeeds, fails with an error that is not
// retryable, or the policy runs out of attempts. onFailure, when set, is
// called once for every failed attempt, numbered from 1. The error of the
// last attempt is returned.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error), onFailure func(attempt int, err error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 1; attempt <= policy.attempts(); attempt++ {
		if attempt > 1 {
			if err := wait(ctx, policy.Backoff); err != nil {
				return zero, lastErr
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if !errors.IsRetryable(err) {
			log.Debugf("Attempt %d failed permanently: %v", attempt, err)
			return zero, err
		}
		log.Debugf("Attempt %d/%d failed: %v", attempt, policy.attempts(), err)
	}
	return zero, lastErr
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
