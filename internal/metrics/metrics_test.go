package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if scrapeAttemptsTotal == nil || commentsExtractedTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	scrapeAttemptsTotal.WithLabelValues("init-test", "success").Inc()
	if val := testutil.ToFloat64(scrapeAttemptsTotal.WithLabelValues("init-test", "success")); val != 1 {
		t.Errorf("Expected scrapeAttemptsTotal to be 1, got %f", val)
	}
}

func TestScrapeRecorder(t *testing.T) {
	rec := NewScrapeRecorder()
	rec.ObserveAttempt("recorder-test", "failure")
	rec.ObserveAttempt("recorder-test", "success")
	rec.ObserveRetry("recorder-test")
	rec.ObserveComments("recorder-test", 42)
	rec.ObservePasses("recorder-test", 7)
	rec.ObserveDuration("recorder-test", 3*time.Second)
	rec.ObserveDebugCapture("recorder-stage", "ok")

	if val := testutil.ToFloat64(scrapeAttemptsTotal.WithLabelValues("recorder-test", "failure")); val != 1 {
		t.Errorf("Expected one failed attempt, got %f", val)
	}
	if val := testutil.ToFloat64(scrapeRetriesTotal.WithLabelValues("recorder-test")); val != 1 {
		t.Errorf("Expected one retry, got %f", val)
	}
	if val := testutil.ToFloat64(commentsExtractedTotal.WithLabelValues("recorder-test")); val != 42 {
		t.Errorf("Expected 42 comments, got %f", val)
	}
	if val := testutil.ToFloat64(debugCapturesTotal.WithLabelValues("recorder-stage", "ok")); val != 1 {
		t.Errorf("Expected one debug capture, got %f", val)
	}
	if val := testutil.CollectAndCount(extractionPasses); val <= 0 {
		t.Errorf("Expected extraction passes to be observed, got %d", val)
	}
}

func TestObserveHelpersInitLazily(t *testing.T) {
	ObserveProbe("reachable")
	ObserveRateLimited("/v1/comments")
	IncActiveScrapes()
	DecActiveScrapes()
	if val := testutil.ToFloat64(rateLimitedTotal.WithLabelValues("/v1/comments")); val < 1 {
		t.Errorf("Expected rate limited counter to be incremented, got %f", val)
	}
}
