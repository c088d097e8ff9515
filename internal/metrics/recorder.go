package metrics

import (
	"time"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
)

// ScrapeRecorder forwards orchestrator telemetry to the Prometheus collectors.
type ScrapeRecorder struct{}

var _ scraper.Recorder = ScrapeRecorder{}

// NewScrapeRecorder initializes the collectors and returns a recorder.
func NewScrapeRecorder() ScrapeRecorder {
	Init()
	return ScrapeRecorder{}
}

// ObserveAttempt counts a finished attempt.
func (ScrapeRecorder) ObserveAttempt(platform, outcome string) {
	scrapeAttemptsTotal.WithLabelValues(platform, outcome).Inc()
}

// ObserveRetry counts a scheduled retry.
func (ScrapeRecorder) ObserveRetry(platform string) {
	scrapeRetriesTotal.WithLabelValues(platform).Inc()
}

// ObservePasses records how many extraction passes an attempt needed.
func (ScrapeRecorder) ObservePasses(platform string, passes int) {
	extractionPasses.WithLabelValues(platform).Observe(float64(passes))
}

// ObserveComments counts returned comments.
func (ScrapeRecorder) ObserveComments(platform string, count int) {
	commentsExtractedTotal.WithLabelValues(platform).Add(float64(count))
}

// ObserveDuration records the duration of a whole scrape request.
func (ScrapeRecorder) ObserveDuration(platform string, d time.Duration) {
	scrapeDurationSeconds.WithLabelValues(platform).Observe(d.Seconds())
}

// ObserveDebugCapture counts a debug capture.
func (ScrapeRecorder) ObserveDebugCapture(stage, result string) {
	debugCapturesTotal.WithLabelValues(stage, result).Inc()
}
