package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// attemptFunc runs one full attempt with a fresh session and accumulator.
type attemptFunc func(ctx context.Context, attempt int) ([]Comment, error)

// retryController restarts failed attempts from scratch with linear backoff.
type retryController struct {
	maxRetries  int
	backoffBase time.Duration
	sleep       sleepFunc
	recorder    Recorder
	logger      *zap.Logger
}

// Backoff returns the wait after the given failed attempt.
func (r *retryController) Backoff(attempt int) time.Duration {
	return r.backoffBase * time.Duration(attempt)
}

// Run calls fn until it succeeds, fails fatally, the context ends, or maxRetries attempts
// have failed. In the last case the final cause is wrapped in ExhaustedRetriesError.
func (r *retryController) Run(ctx context.Context, platform string, fn attemptFunc) ([]Comment, int, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		comments, err := fn(ctx, attempt)
		if err == nil {
			r.recorder.ObserveAttempt(platform, "success")
			return comments, attempt, nil
		}
		lastErr = err
		r.recorder.ObserveAttempt(platform, "failure")
		r.logger.Warn("scrape attempt failed",
			zap.String("platform", platform),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.maxRetries),
			zap.Error(err),
		)
		if !Retryable(err) {
			return nil, attempt, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, attempt, interrupted(attempt, ctxErr, lastErr)
		}
		if attempt == r.maxRetries {
			break
		}
		r.recorder.ObserveRetry(platform)
		delay := r.Backoff(attempt)
		r.logger.Info("retrying scrape", zap.String("platform", platform), zap.Duration("backoff", delay))
		if err := r.sleep(ctx, delay); err != nil {
			return nil, attempt, interrupted(attempt, err, lastErr)
		}
	}
	return nil, r.maxRetries, &ExhaustedRetriesError{Attempts: r.maxRetries, Err: lastErr}
}

func interrupted(attempt int, ctxErr, lastErr error) error {
	return fmt.Errorf("scrape interrupted after %d attempts: %w", attempt, errors.Join(ctxErr, lastErr))
}
