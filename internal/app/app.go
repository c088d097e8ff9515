// Package app builds and holds the long-lived services of the harvester.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/social-comment-harvester/internal/api"
	"github.com/JakeFAU/social-comment-harvester/internal/browser/headless"
	"github.com/JakeFAU/social-comment-harvester/internal/clock/system"
	"github.com/JakeFAU/social-comment-harvester/internal/config"
	"github.com/JakeFAU/social-comment-harvester/internal/hash/sha256"
	"github.com/JakeFAU/social-comment-harvester/internal/id/uuid"
	"github.com/JakeFAU/social-comment-harvester/internal/metrics"
	"github.com/JakeFAU/social-comment-harvester/internal/policy/ratelimit"
	"github.com/JakeFAU/social-comment-harvester/internal/probe"
	"github.com/JakeFAU/social-comment-harvester/internal/proxy"
	memorypublisher "github.com/JakeFAU/social-comment-harvester/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/social-comment-harvester/internal/publisher/pubsub"
	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
	"github.com/JakeFAU/social-comment-harvester/internal/sentiment"
	"github.com/JakeFAU/social-comment-harvester/internal/service"
	"github.com/JakeFAU/social-comment-harvester/internal/storage"
	"github.com/JakeFAU/social-comment-harvester/internal/storage/gcs"
	"github.com/JakeFAU/social-comment-harvester/internal/storage/local"
	memorystorage "github.com/JakeFAU/social-comment-harvester/internal/storage/memory"
	"github.com/JakeFAU/social-comment-harvester/internal/storage/postgres"
	"github.com/JakeFAU/social-comment-harvester/internal/storage/sqlite"
)

// App holds the shared services. It is built once at startup and closed on exit.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Orchestrator *scraper.Orchestrator
	Store        storage.Store
	Publisher    service.Publisher
	Comments     *service.CommentService
	Stats        *service.StatsService

	closers []func() error
}

// New wires every component from cfg. On error, anything already opened is closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("build selector registry: %w", err)
	}
	rotator, err := proxy.NewRotator(cfg.Browser.Proxies)
	if err != nil {
		return nil, fmt.Errorf("build proxy rotator: %w", err)
	}
	sessions, err := headless.NewManager(headless.Config{
		MaxParallel:    cfg.Browser.MaxParallel,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		BlockResources: cfg.Browser.BlockResources,
		ExecPath:       cfg.Browser.ExecPath,
		Headful:        cfg.Browser.Headful,
		LaunchTimeout:  cfg.Browser.LaunchTimeout,
	}, rotator, logger.Named("browser"))
	if err != nil {
		return nil, fmt.Errorf("build session manager: %w", err)
	}

	clock := system.New()
	recorder := metrics.NewScrapeRecorder()
	blobs, err := a.buildBlobStore(ctx, cfg.Debug)
	if err != nil {
		return nil, err
	}

	deps := scraper.Deps{
		Sessions:    sessions,
		Registry:    registry,
		Credentials: cfg.CredentialStore(),
		Debug:       scraper.NewDebugRecorder(blobs, clock, recorder, logger.Named("debug")),
		Recorder:    recorder,
		Clock:       clock,
		Logger:      logger.Named("scraper"),
	}
	if cfg.Scrape.Probe {
		userAgent := cfg.Browser.UserAgent
		if userAgent == "" {
			userAgent = headless.DefaultUserAgent
		}
		deps.Prober = probe.New(probe.Config{UserAgent: userAgent, Timeout: cfg.Scrape.ProbeTimeout})
	}
	a.Orchestrator, err = scraper.New(cfg.ScraperConfig(), deps)
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	a.Store, err = a.buildStore(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	a.Publisher, err = a.buildPublisher(ctx, cfg.PubSub)
	if err != nil {
		return nil, err
	}

	a.Comments, err = service.NewCommentService(service.CommentDeps{
		Scraper:   trackedScraper{a.Orchestrator},
		Analyzer:  sentiment.NewAnalyzer(),
		Repo:      a.Store,
		Publisher: a.Publisher,
		IDs:       uuid.New(),
		Hasher:    sha256.New(),
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build comment service: %w", err)
	}
	a.Stats, err = service.NewStatsService(a.Store)
	if err != nil {
		return nil, fmt.Errorf("build stats service: %w", err)
	}

	logger.Info("application services initialized",
		zap.Strings("platforms", registry.Platforms()),
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("debug_backend", cfg.Debug.Backend),
		zap.Int("proxies", rotator.Len()),
		zap.Bool("probe", cfg.Scrape.Probe),
		zap.Bool("pubsub", cfg.PubSub.Enabled()),
	)
	return a, nil
}

// trackedScraper keeps the active scrapes gauge current.
type trackedScraper struct {
	*scraper.Orchestrator
}

func (t trackedScraper) Scrape(ctx context.Context, req scraper.ScrapeRequest) ([]scraper.Comment, error) {
	metrics.IncActiveScrapes()
	defer metrics.DecActiveScrapes()
	return t.Orchestrator.Scrape(ctx, req)
}

func (a *App) buildBlobStore(ctx context.Context, cfg config.DebugConfig) (scraper.BlobStore, error) {
	switch cfg.Backend {
	case config.DebugBackendLocal:
		store, err := local.New(local.Config{Dir: cfg.Dir})
		if err != nil {
			return nil, fmt.Errorf("init local debug store: %w", err)
		}
		return store, nil
	case config.DebugBackendGCS:
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.GCSPrefix})
		if err != nil {
			return nil, fmt.Errorf("init gcs debug store: %w", err)
		}
		return store, nil
	case config.DebugBackendMemory:
		return memorystorage.NewBlobStore(), nil
	case config.DebugBackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown debug backend: %s", cfg.Backend)
	}
}

func (a *App) buildStore(ctx context.Context, cfg config.DBConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.New(ctx, postgres.Config{DSN: cfg.DSN, Table: cfg.Table, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown db driver: %s", cfg.Driver)
	}
}

func (a *App) buildPublisher(ctx context.Context, cfg config.PubSubConfig) (service.Publisher, error) {
	if !cfg.Enabled() {
		return memorypublisher.New(), nil
	}
	pub, client, err := pubsubpublisher.Open(ctx, cfg.ProjectID, cfg.TopicName)
	if err != nil {
		return nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pub.Stop()
		return client.Close()
	})
	return pub, nil
}

// Handler builds the HTTP API over the app's services.
func (a *App) Handler() http.Handler {
	srv := api.NewServer(a.Comments, a.Stats, api.Options{
		Auth:           a.Config.Auth,
		RequestTimeout: a.Config.Server.RequestTimeout,
		Limiter:        ratelimit.New(ratelimit.Config{RPS: a.Config.RateLimit.RPS, Burst: a.Config.RateLimit.Burst}),
		Ready:          a.Store.Ping,
		RequestIDs:     uuid.New(),
	}, a.Logger)
	return srv.Handler()
}

// Serve runs the HTTP API until ctx is canceled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server started", zap.Int("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("shutdown initiated")
	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	a.Logger.Info("shutdown complete")
	return nil
}

// Close releases clients and connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
