package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// extractionLoop repeatedly snapshots the page, merges drafts and paginates until the result
// set converges or reaches the limit. Passes are strictly sequential.
type extractionLoop struct {
	source    DraftSource
	paginator Paginator
	limit     int
	passDelay time.Duration
	jitter    func(time.Duration) time.Duration
	sleep     sleepFunc
	logger    *zap.Logger
}

// Run drives state through Extracting, Deciding and Paginating and returns the accumulator
// truncated to the limit. An empty accumulator is an ExtractionError.
func (l *extractionLoop) Run(ctx context.Context, s Session, state *AttemptState) ([]Comment, error) {
	state.State = StateExtracting
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction interrupted: %w", err)
		}
		drafts, err := l.source.Drafts(ctx, s)
		if err != nil {
			return nil, asExtractionError(err)
		}
		state.Passes++
		before := state.acc.Len()
		state.acc.Merge(drafts)
		size := state.acc.Len()

		state.State = StateDeciding
		if size == before {
			state.Progress.StallAttempts++
		} else {
			state.Progress.StallAttempts = 0
		}
		state.Progress.PreviousCount = size
		l.logger.Debug("extraction pass",
			zap.Int("attempt", state.Attempt),
			zap.Int("pass", state.Passes),
			zap.Int("drafts", len(drafts)),
			zap.Int("collected", size),
			zap.Int("stall", state.Progress.StallAttempts),
		)
		if state.Progress.Stalled() {
			state.Outcome = StateConverged
			break
		}
		if size >= l.limit {
			state.Outcome = StateLimitReached
			break
		}

		state.State = StatePaginating
		progressed, err := l.paginator.Advance(ctx, s)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("extraction interrupted: %w", ctx.Err())
			}
			l.logger.Debug("pagination failed", zap.Error(err))
			progressed = false
		}
		if !progressed {
			state.Outcome = StateConverged
			break
		}
		if err := l.sleep(ctx, l.jitter(l.passDelay)); err != nil {
			return nil, fmt.Errorf("extraction interrupted: %w", err)
		}
		state.State = StateExtracting
	}
	state.State = StateDone
	if state.acc.Len() == 0 {
		return nil, ExtractionError("no comments found", nil)
	}
	return state.acc.Take(l.limit), nil
}

func asExtractionError(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return ExtractionError("read comments", err)
}
