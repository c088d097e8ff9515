// Package headless implements scraper sessions on top of headless Chrome via chromedp.
package headless

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
)

// DefaultUserAgent is a current desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config controls browser launches.
type Config struct {
	// MaxParallel caps concurrently open browsers. Zero means unlimited.
	MaxParallel    int
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	// BlockResources lists resource types (image, stylesheet, font, media) aborted at the network layer.
	BlockResources []string
	ExecPath       string
	Headful        bool
	LaunchTimeout  time.Duration
}

// ProxySource hands out the proxy for the next browser launch. An empty string means direct.
type ProxySource interface {
	Next() string
}

// Manager launches one browser process per Acquire and tears it down on Release.
type Manager struct {
	cfg     Config
	limiter chan struct{}
	blocked []network.ResourceType
	proxies ProxySource
	logger  *zap.Logger
	// start performs the first Run on a tab, which allocates the browser.
	start func(ctx context.Context, actions ...chromedp.Action) error
}

var _ scraper.SessionManager = (*Manager)(nil)

// NewManager validates cfg and builds a Manager.
func NewManager(cfg Config, proxies ProxySource, logger *zap.Logger) (*Manager, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1920
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 1080
	}
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = 30 * time.Second
	}
	blocked, err := parseResourceTypes(cfg.BlockResources)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}
	return &Manager{
		cfg:     cfg,
		limiter: limiter,
		blocked: blocked,
		proxies: proxies,
		logger:  logger,
		start:   chromedp.Run,
	}, nil
}

var resourceTypes = map[string]network.ResourceType{
	"image":      network.ResourceTypeImage,
	"stylesheet": network.ResourceTypeStylesheet,
	"font":       network.ResourceTypeFont,
	"media":      network.ResourceTypeMedia,
}

func parseResourceTypes(names []string) ([]network.ResourceType, error) {
	out := make([]network.ResourceType, 0, len(names))
	for _, name := range names {
		rt, ok := resourceTypes[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown resource type %q", name)
		}
		out = append(out, rt)
	}
	return out, nil
}

// Acquire launches a browser with a single page configured for scraping.
func (m *Manager) Acquire(ctx context.Context) (scraper.Session, error) {
	if err := m.acquireSlot(ctx); err != nil {
		return nil, err
	}
	proxy := ""
	if m.proxies != nil {
		proxy = m.proxies.Next()
	}
	// The browser outlives the acquiring call; Release owns its lifetime.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), m.allocatorOptions(proxy)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(m.logger.Sugar().Debugf))
	s := &Session{
		tab:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		release:     m.releaseSlot,
		logger:      m.logger,
	}
	if len(m.blocked) > 0 {
		chromedp.ListenTarget(tabCtx, s.failPaused)
	}

	if err := m.launch(ctx, s); err != nil {
		s.close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	m.logger.Debug("browser launched",
		zap.Bool("proxy", proxy != ""),
		zap.Int("blocked_types", len(m.blocked)),
	)
	return s, nil
}

// launch starts Chrome and configures the page. chromedp binds the browser process to the
// context of the first Run, so it runs on the tab context itself; the launch timeout and the
// caller's cancellation are enforced by closing the session instead.
func (m *Manager) launch(ctx context.Context, s *Session) error {
	done := make(chan error, 1)
	go func() { done <- m.start(s.tab, m.setupAction()) }()

	timer := time.NewTimer(m.cfg.LaunchTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		s.close()
		<-done
		return fmt.Errorf("timed out after %s: %w", m.cfg.LaunchTimeout, context.DeadlineExceeded)
	case <-ctx.Done():
		s.close()
		<-done
		return ctx.Err()
	}
}

// Release kills the browser behind s. Releasing twice is a no-op.
func (m *Manager) Release(s scraper.Session) error {
	hs, ok := s.(*Session)
	if !ok {
		return fmt.Errorf("release: unexpected session type %T", s)
	}
	hs.close()
	return nil
}

func (m *Manager) allocatorOptions(proxy string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoSandbox,
		chromedp.UserAgent(m.cfg.UserAgent),
		chromedp.WindowSize(m.cfg.ViewportWidth, m.cfg.ViewportHeight),
	)
	if m.cfg.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	} else {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if m.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ExecPath))
	}
	if proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}
	return opts
}

func (m *Manager) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := emulation.SetDeviceMetricsOverride(
			int64(m.cfg.ViewportWidth), int64(m.cfg.ViewportHeight), 1, false,
		).Do(ctx); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		if err := emulation.SetUserAgentOverride(m.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		if len(m.blocked) == 0 {
			return nil
		}
		patterns := make([]*fetch.RequestPattern, 0, len(m.blocked))
		for _, rt := range m.blocked {
			patterns = append(patterns, &fetch.RequestPattern{
				URLPattern:   "*",
				ResourceType: rt,
				RequestStage: fetch.RequestStageRequest,
			})
		}
		if err := fetch.Enable().WithPatterns(patterns).Do(ctx); err != nil {
			return fmt.Errorf("enable request blocking: %w", err)
		}
		return nil
	})
}

func (m *Manager) acquireSlot(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	select {
	case m.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (m *Manager) releaseSlot() {
	if m.limiter == nil {
		return
	}
	select {
	case <-m.limiter:
	default:
	}
}

// failPaused aborts every request the fetch domain paused; only blocked types are intercepted.
func (s *Session) failPaused(ev any) {
	paused, ok := ev.(*fetch.EventRequestPaused)
	if !ok {
		return
	}
	go func() {
		c := chromedp.FromContext(s.tab)
		if c == nil || c.Target == nil {
			return
		}
		ctx := cdp.WithExecutor(s.tab, c.Target)
		err := fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("abort blocked request", zap.String("url", paused.Request.URL), zap.Error(err))
		}
	}()
}

// Session is one browser tab. It is used by a single attempt at a time.
type Session struct {
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	release     func()
	logger      *zap.Logger
	closeOnce   sync.Once
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		if s.tabCancel != nil {
			s.tabCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		if s.release != nil {
			s.release()
		}
	})
}

// run executes actions on an already launched tab, bounded by ctx's cancellation and deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		opCtx, cancelDeadline = context.WithDeadline(opCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
	return nil
}
