package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config holds the timing knobs of the orchestrator.
type Config struct {
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	ProbeTimeout      time.Duration
	ContentTimeout    time.Duration
	LoginSettle       time.Duration
	SubmitTimeout     time.Duration
	PassDelay         time.Duration
	ScrollSettle      time.Duration
	ScrollAmount      int
	MaxStallAttempts  int
	MaxRetries        int
	BackoffBase       time.Duration
	// OverallDeadline bounds the whole retry sequence. Zero disables it.
	OverallDeadline time.Duration
	// Checkpoints captures page state after navigation and login, not only on failure.
	Checkpoints bool
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       3 * time.Second,
		ProbeTimeout:      5 * time.Second,
		ContentTimeout:    10 * time.Second,
		LoginSettle:       5 * time.Second,
		SubmitTimeout:     30 * time.Second,
		PassDelay:         2 * time.Second,
		ScrollSettle:      time.Second,
		ScrollAmount:      2000,
		MaxStallAttempts:  5,
		MaxRetries:        3,
		BackoffBase:       5 * time.Second,
		OverallDeadline:   5 * time.Minute,
	}
}

// Validate rejects knobs that would make the loop or the retry sequence degenerate.
func (c Config) Validate() error {
	switch {
	case c.MaxStallAttempts <= 0:
		return errors.New("max stall attempts must be > 0")
	case c.MaxRetries <= 0:
		return errors.New("max retries must be > 0")
	case c.NavigationTimeout <= 0:
		return errors.New("navigation timeout must be > 0")
	case c.ProbeTimeout <= 0:
		return errors.New("probe timeout must be > 0")
	case c.ScrollAmount <= 0:
		return errors.New("scroll amount must be > 0")
	case c.OverallDeadline < 0:
		return errors.New("overall deadline must be >= 0")
	}
	return nil
}

// Deps are the services the orchestrator is built from. Sessions and Registry are required.
type Deps struct {
	Sessions    SessionManager
	Registry    *Registry
	Credentials CredentialStore
	Debug       Debugger
	Prober      Prober
	Recorder    Recorder
	Clock       Clock
	Logger      *zap.Logger
}

// Orchestrator runs scrape requests. It holds no per-request state and is safe for
// concurrent use; every Scrape call gets its own sessions and accumulators.
type Orchestrator struct {
	cfg      Config
	sessions SessionManager
	registry *Registry
	creds    CredentialStore
	debug    Debugger
	prober   Prober
	recorder Recorder
	clock    Clock
	logger   *zap.Logger

	sleep     sleepFunc
	jitter    func(time.Duration) time.Duration
	newSource func(SelectorConfig) DraftSource
}

// New builds an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scraper config: %w", err)
	}
	if deps.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("selector registry is required")
	}
	o := &Orchestrator{
		cfg:       cfg,
		sessions:  deps.Sessions,
		registry:  deps.Registry,
		creds:     deps.Credentials,
		debug:     deps.Debug,
		prober:    deps.Prober,
		recorder:  deps.Recorder,
		clock:     deps.Clock,
		logger:    deps.Logger,
		sleep:     sleepCtx,
		jitter:    jitter,
		newSource: func(c SelectorConfig) DraftSource { return NewExtractor(c) },
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.clock == nil {
		o.clock = systemClock{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.creds == nil {
		o.creds = StaticCredentials{}
	}
	if o.debug == nil {
		o.debug = NewDebugRecorder(nil, o.clock, o.recorder, o.logger)
	}
	return o, nil
}

// Registry returns the selector registry used for validation.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Scrape validates req and runs the retry sequence. The result is non-empty, deduplicated,
// normalized and never longer than req.Limit.
func (o *Orchestrator) Scrape(ctx context.Context, req ScrapeRequest) ([]Comment, error) {
	if err := req.Validate(o.registry); err != nil {
		return nil, err
	}
	sel, err := o.registry.Resolve(req.Platform, req.URL)
	if err != nil {
		return nil, err
	}
	if o.cfg.OverallDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.OverallDeadline)
		defer cancel()
	}
	logger := o.logger.With(
		zap.String("platform", req.Platform),
		zap.String("variant", sel.Variant),
		zap.String("url", req.URL),
		zap.Int("limit", req.Limit),
	)
	logger.Info("scrape started")
	start := o.clock.Now()

	retry := &retryController{
		maxRetries:  o.cfg.MaxRetries,
		backoffBase: o.cfg.BackoffBase,
		sleep:       o.sleep,
		recorder:    o.recorder,
		logger:      logger,
	}
	comments, attempts, err := retry.Run(ctx, req.Platform, func(ctx context.Context, attempt int) ([]Comment, error) {
		return o.attempt(ctx, req, sel, attempt, logger.With(zap.Int("attempt", attempt)))
	})
	o.recorder.ObserveDuration(req.Platform, o.clock.Now().Sub(start))
	if err != nil {
		logger.Error("scrape failed", zap.Int("attempts", attempts), zap.Error(err))
		return nil, err
	}
	o.recorder.ObserveComments(req.Platform, len(comments))
	logger.Info("scrape finished", zap.Int("attempts", attempts), zap.Int("comments", len(comments)))
	return comments, nil
}

// attempt runs one launch-to-extraction pass with a fresh session and accumulator. Every
// failure captures debug state exactly once before the session is released.
func (o *Orchestrator) attempt(
	ctx context.Context,
	req ScrapeRequest,
	sel SelectorConfig,
	attempt int,
	logger *zap.Logger,
) ([]Comment, error) {
	var comments []Comment
	err := withSession(ctx, o.sessions, logger, func(s Session) error {
		state := newAttemptState(attempt, o.cfg.MaxStallAttempts)
		out, stage, err := o.run(ctx, s, req, sel, state, logger)
		if err != nil {
			o.debug.Capture(ctx, s, req.Platform, stageOf(err, stage))
			return err
		}
		o.recorder.ObservePasses(req.Platform, state.Passes)
		logger.Info("attempt finished",
			zap.Stringer("outcome", state.Outcome),
			zap.Int("passes", state.Passes),
			zap.Int("collected", state.Collected()),
		)
		comments = out
		return nil
	})
	var se *Error
	if errors.As(err, &se) && se.Stage == StageLaunch {
		o.debug.Capture(ctx, nil, req.Platform, StageLaunch)
	}
	return comments, err
}

// run is the body of one attempt. It returns the stage that was executing when it failed.
func (o *Orchestrator) run(
	ctx context.Context,
	s Session,
	req ScrapeRequest,
	sel SelectorConfig,
	state *AttemptState,
	logger *zap.Logger,
) ([]Comment, string, error) {
	nav := newNavigator(o.cfg.NavigationTimeout, o.cfg.SettleDelay, o.prober, o.sleep, logger)
	if err := nav.Navigate(ctx, s, req.URL, sel.NavigationTimeout); err != nil {
		return nil, StageNavigation, err
	}
	o.checkpoint(ctx, s, req.Platform, StagePostNavigation)

	auth := &Authenticator{
		creds:         o.creds,
		probeTimeout:  o.cfg.ProbeTimeout,
		submitTimeout: o.cfg.SubmitTimeout,
		settle:        o.cfg.LoginSettle,
		sleep:         o.sleep,
		logger:        logger,
	}
	required, err := auth.LoginRequired(ctx, s, sel)
	if err != nil {
		return nil, StageLogin, err
	}
	if required {
		if err := auth.Login(ctx, s, sel); err != nil {
			return nil, StageLogin, err
		}
		o.checkpoint(ctx, s, req.Platform, StagePostLogin)
		if err := nav.Navigate(ctx, s, req.URL, sel.NavigationTimeout); err != nil {
			return nil, StageNavigation, err
		}
		still, err := auth.LoginRequired(ctx, s, sel)
		if err != nil {
			return nil, StageLogin, err
		}
		if still {
			return nil, StageLogin, AuthError(errors.New("login wall still present after sign-in"))
		}
	}

	if err := o.waitForContent(ctx, s, sel, logger); err != nil {
		return nil, StageContent, err
	}
	if sel.Capabilities.ReplyPanel() {
		opener := &panelOpener{probeTimeout: o.cfg.ProbeTimeout, logger: logger}
		if err := opener.Open(ctx, s, sel); err != nil {
			return nil, StagePanel, err
		}
	}

	loop := &extractionLoop{
		source: o.newSource(sel),
		paginator: newPaginator(sel, paginationOptions{
			scrollAmount: o.cfg.ScrollAmount,
			scrollSettle: o.cfg.ScrollSettle,
			probeTimeout: o.cfg.ProbeTimeout,
			sleep:        o.sleep,
			logger:       logger,
		}),
		limit:     req.Limit,
		passDelay: o.cfg.PassDelay,
		jitter:    o.jitter,
		sleep:     o.sleep,
		logger:    logger,
	}
	comments, err := loop.Run(ctx, s, state)
	if err != nil {
		return nil, StageExtraction, err
	}
	return comments, "", nil
}

// waitForContent blocks until the content landmark is visible. Platforms that render comments
// lazily get the comment list scrolled into view afterwards.
func (o *Orchestrator) waitForContent(ctx context.Context, s Session, sel SelectorConfig, logger *zap.Logger) error {
	landmark := sel.ContentReady
	if landmark == "" {
		landmark = sel.CommentItem
	}
	if err := s.WaitVisible(ctx, landmark, o.cfg.ContentTimeout); err != nil {
		return ContentNotFoundError(StageContent, landmark, err)
	}
	if sel.ContentReady != "" {
		if err := s.ScrollIntoView(ctx, sel.ContentReady); err != nil {
			logger.Debug("scroll into view failed", zap.String("selector", sel.ContentReady), zap.Error(err))
		}
	}
	return nil
}

func (o *Orchestrator) checkpoint(ctx context.Context, s Session, platform, stage string) {
	if o.cfg.Checkpoints {
		o.debug.Capture(ctx, s, platform, stage)
	}
}
