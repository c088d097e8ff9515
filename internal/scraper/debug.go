package scraper

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Debugger captures page state for post-hoc diagnosis. Capture never fails.
type Debugger interface {
	Capture(ctx context.Context, s Session, platform, stage string)
}

const debugCaptureTimeout = 15 * time.Second

var artifactNameReplacer = strings.NewReplacer(":", "-", ".", "-")

// ArtifactName returns `{stage}-{timestamp}` with the timestamp in ISO 8601 UTC with
// millisecond precision, colons and dots replaced by dashes.
func ArtifactName(stage string, t time.Time) string {
	return stage + "-" + artifactNameReplacer.Replace(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

// DebugRecorder writes a screenshot and the page HTML under `<platform>/<artifact>`.
type DebugRecorder struct {
	store    BlobStore
	clock    Clock
	recorder Recorder
	logger   *zap.Logger
}

// NewDebugRecorder builds a recorder. A nil store yields a recorder that only logs.
func NewDebugRecorder(store BlobStore, clock Clock, recorder Recorder, logger *zap.Logger) *DebugRecorder {
	if clock == nil {
		clock = systemClock{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebugRecorder{store: store, clock: clock, recorder: recorder, logger: logger}
}

// Capture stores the artifacts. Every failure is logged and swallowed.
func (r *DebugRecorder) Capture(ctx context.Context, s Session, platform, stage string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("debug capture panicked", zap.String("stage", stage), zap.Any("panic", rec))
			r.recorder.ObserveDebugCapture(stage, "failed")
		}
	}()
	if r.store == nil {
		r.recorder.ObserveDebugCapture(stage, "disabled")
		return
	}
	if s == nil {
		r.logger.Warn("debug capture skipped, no session", zap.String("platform", platform), zap.String("stage", stage))
		r.recorder.ObserveDebugCapture(stage, "skipped")
		return
	}
	// The triggering failure may be a canceled context; capture on a detached one.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), debugCaptureTimeout)
	defer cancel()

	base := path.Join(platform, ArtifactName(stage, r.clock.Now()))
	result := "ok"
	if shot, err := s.Screenshot(cctx); err != nil {
		r.logger.Warn("debug screenshot failed", zap.String("stage", stage), zap.Error(err))
		result = "failed"
	} else if uri, err := r.store.PutObject(cctx, base+".png", "image/png", bytes.NewReader(shot)); err != nil {
		r.logger.Warn("debug screenshot write failed", zap.String("stage", stage), zap.Error(err))
		result = "failed"
	} else {
		r.logger.Info("debug screenshot saved", zap.String("stage", stage), zap.String("uri", uri))
	}
	if html, err := s.HTML(cctx); err != nil {
		r.logger.Warn("debug html failed", zap.String("stage", stage), zap.Error(err))
		result = "failed"
	} else if uri, err := r.store.PutObject(cctx, base+".html", "text/html; charset=utf-8", strings.NewReader(html)); err != nil {
		r.logger.Warn("debug html write failed", zap.String("stage", stage), zap.Error(err))
		result = "failed"
	} else {
		r.logger.Info("debug html saved", zap.String("stage", stage), zap.String("uri", uri))
	}
	r.recorder.ObserveDebugCapture(stage, result)
}
