package scraper

import (
	"context"
	"io"
	"time"
)

// Session is one browser page owned by a single scrape attempt. Implementations never run
// two operations against the page concurrently.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Exists probes for a selector without waiting.
	Exists(ctx context.Context, selector string) (bool, error)
	// WaitVisible blocks until the selector is visible or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	// ClickByText clicks the first element matching selector whose text contains text.
	// An empty selector searches buttons and role=button elements.
	ClickByText(ctx context.Context, selector, text string) (bool, error)
	// ClickAllByText clicks every match and returns how many were clicked.
	ClickAllByText(ctx context.Context, selector, text string) (int, error)
	// ClickByAriaLabel clicks the first button whose aria-label contains label.
	ClickByAriaLabel(ctx context.Context, label string) (bool, error)
	Type(ctx context.Context, selector, text string) error
	// Submit clicks selector and waits for the resulting navigation to settle.
	Submit(ctx context.Context, selector string, timeout time.Duration) error
	ScrollIntoView(ctx context.Context, selector string) error
	// ScrollBy scrolls the container (or the window when container is empty) by px pixels.
	ScrollBy(ctx context.Context, container string, px int) error
	ScrollHeight(ctx context.Context, container string) (int64, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// SessionManager launches and tears down browser sessions.
type SessionManager interface {
	Acquire(ctx context.Context) (Session, error)
	Release(Session) error
}

// Credentials is a username/password pair for one platform.
type Credentials struct {
	Username string
	Password string
}

// CredentialStore looks up stored login credentials.
type CredentialStore interface {
	Lookup(platform string) (Credentials, bool)
}

// StaticCredentials is a map-backed CredentialStore.
type StaticCredentials map[string]Credentials

// Lookup returns the credentials for platform when both fields are set.
func (s StaticCredentials) Lookup(platform string) (Credentials, bool) {
	c, ok := s[platform]
	if !ok || c.Username == "" || c.Password == "" {
		return Credentials{}, false
	}
	return c, true
}

// BlobStore persists debug artifacts.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Prober checks that a target is reachable before a browser is spent on it.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// Recorder receives scrape telemetry.
type Recorder interface {
	ObserveAttempt(platform, outcome string)
	ObserveRetry(platform string)
	ObservePasses(platform string, passes int)
	ObserveComments(platform string, count int)
	ObserveDuration(platform string, d time.Duration)
	ObserveDebugCapture(stage, result string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, string)         {}
func (nopRecorder) ObserveRetry(string)                   {}
func (nopRecorder) ObservePasses(string, int)             {}
func (nopRecorder) ObserveComments(string, int)           {}
func (nopRecorder) ObserveDuration(string, time.Duration) {}
func (nopRecorder) ObserveDebugCapture(string, string)    {}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
