package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSession is an in-memory page. Selectors marked visible exist and can be clicked.
type fakeSession struct {
	mu sync.Mutex

	html          string
	visible       map[string]bool
	textButtons   map[string]bool
	ariaLabels    map[string]bool
	expandable    int
	height        int64
	grow          bool
	navErr        error
	submitErr     error
	screenshotErr error
	htmlErr       error
	onSubmit      func(*fakeSession)

	navigations []string
	clicks      []string
	typed       map[string]string
}

func newFakeSession(visible ...string) *fakeSession {
	s := &fakeSession{
		visible:     map[string]bool{},
		textButtons: map[string]bool{},
		ariaLabels:  map[string]bool{},
		typed:       map[string]string{},
		height:      1000,
		grow:        true,
	}
	for _, sel := range visible {
		s.visible[sel] = true
	}
	return s
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, url)
	return s.navErr
}

func (s *fakeSession) Exists(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible[selector], nil
}

func (s *fakeSession) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible[selector] {
		return fmt.Errorf("wait for %s: %w", selector, context.DeadlineExceeded)
	}
	return nil
}

func (s *fakeSession) Click(_ context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible[selector] {
		return fmt.Errorf("no node for %s", selector)
	}
	s.clicks = append(s.clicks, selector)
	return nil
}

func (s *fakeSession) ClickByText(_ context.Context, _, text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.textButtons[text] {
		return false, nil
	}
	s.clicks = append(s.clicks, "text:"+text)
	return true, nil
}

func (s *fakeSession) ClickAllByText(context.Context, string, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.expandable
	s.expandable = 0
	return n, nil
}

func (s *fakeSession) ClickByAriaLabel(_ context.Context, label string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ariaLabels[label] {
		return false, nil
	}
	s.clicks = append(s.clicks, "aria:"+label)
	return true, nil
}

func (s *fakeSession) Type(_ context.Context, selector, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typed[selector] = text
	return nil
}

func (s *fakeSession) Submit(_ context.Context, selector string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, selector)
	if s.submitErr != nil {
		return s.submitErr
	}
	if s.onSubmit != nil {
		s.onSubmit(s)
	}
	return nil
}

func (s *fakeSession) ScrollIntoView(context.Context, string) error { return nil }

func (s *fakeSession) ScrollBy(_ context.Context, _ string, px int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grow {
		s.height += int64(px)
	}
	return nil
}

func (s *fakeSession) ScrollHeight(context.Context, string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height, nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, s.htmlErr
}

func (s *fakeSession) Screenshot(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screenshotErr != nil {
		return nil, s.screenshotErr
	}
	return []byte("png"), nil
}

// countingManager hands out fresh fake sessions and counts acquire/release calls.
type countingManager struct {
	mu         sync.Mutex
	acquired   int
	released   int
	acquireErr error
	newSession func() *fakeSession
	sessions   []*fakeSession
}

func (m *countingManager) Acquire(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	m.acquired++
	s := newFakeSession()
	if m.newSession != nil {
		s = m.newSession()
	}
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *countingManager) Release(Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	return nil
}

func (m *countingManager) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired, m.released
}

// scriptedSource returns passes[i] on the i-th read and repeats the last entry afterwards.
// Every read allocates fresh drafts.
type scriptedSource struct {
	mu     sync.Mutex
	passes [][]CommentDraft
	calls  int
	err    func(call int) error
}

func (s *scriptedSource) Drafts(context.Context, Session) ([]CommentDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		if err := s.err(s.calls); err != nil {
			return nil, err
		}
	}
	if len(s.passes) == 0 {
		return nil, nil
	}
	i := s.calls - 1
	if i >= len(s.passes) {
		i = len(s.passes) - 1
	}
	out := make([]CommentDraft, len(s.passes[i]))
	copy(out, s.passes[i])
	return out, nil
}

type capture struct {
	platform   string
	stage      string
	hasSession bool
}

type fakeDebugger struct {
	mu       sync.Mutex
	captures []capture
}

func (d *fakeDebugger) Capture(_ context.Context, s Session, platform, stage string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.captures = append(d.captures, capture{platform: platform, stage: stage, hasSession: s != nil})
}

func (d *fakeDebugger) all() []capture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]capture(nil), d.captures...)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type failingProber struct{ err error }

func (p failingProber) Probe(context.Context, string) error { return p.err }

func drafts(prefix string, n int) []CommentDraft {
	out := make([]CommentDraft, n)
	for i := range out {
		out[i] = CommentDraft{
			Username:  fmt.Sprintf("%s_user%d", prefix, i),
			Text:      fmt.Sprintf("%s comment %d", prefix, i),
			Timestamp: "1 day ago",
			Likes:     "3",
		}
	}
	return out
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BackoffBase = time.Millisecond
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg Config, deps Deps, source DraftSource) *Orchestrator {
	t.Helper()
	if deps.Registry == nil {
		deps.Registry = DefaultRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	o, err := New(cfg, deps)
	require.NoError(t, err)
	o.sleep = noSleep
	o.jitter = func(d time.Duration) time.Duration { return d }
	if source != nil {
		o.newSource = func(SelectorConfig) DraftSource { return source }
	}
	return o
}

var errBoom = errors.New("boom")
