package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/social-comment-harvester/internal/config"
	"github.com/JakeFAU/social-comment-harvester/internal/metrics"
	"github.com/JakeFAU/social-comment-harvester/internal/policy/ratelimit"
	"github.com/JakeFAU/social-comment-harvester/internal/service"
)

// CommentService runs and serves comment analyses.
type CommentService interface {
	Analyze(ctx context.Context, url, platform string, limit int) (service.Analysis, error)
	List(ctx context.Context, url, platform string, limit int) ([]service.AnalyzedComment, error)
}

// StatsService aggregates stored sentiment.
type StatsService interface {
	Summary(ctx context.Context, url, platform string, from, to *time.Time) (service.Summary, error)
	TimeSeries(ctx context.Context, url, platform string, from, to *time.Time) ([]service.DayPoint, error)
	PlatformOverview(ctx context.Context) ([]service.PlatformPoint, error)
}

// IDGenerator issues request IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// ReadinessCheck reports whether downstream dependencies can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Options tune the server. Zero values disable the corresponding middleware.
type Options struct {
	Auth           config.AuthConfig
	RequestTimeout time.Duration
	Limiter        *ratelimit.Limiter
	Ready          ReadinessCheck
	RequestIDs     IDGenerator
}

// Server wires HTTP handlers to the comment and stats services.
type Server struct {
	router   chi.Router
	comments CommentService
	stats    StatsService
	ready    ReadinessCheck
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(comments CommentService, stats StatsService, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		comments: comments,
		stats:    stats,
		ready:    opts.Ready,
		logger:   logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(opts.RequestIDs))
	r.Use(loggingMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(recoverMiddleware(s.logger))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(ratelimit.Middleware(opts.Limiter, ratelimit.ClientIP, tooManyRequests))
		}
		if opts.Auth.Enabled {
			r.Use(apiKeyMiddleware(opts.Auth.APIKey))
		}
		if opts.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(opts.RequestTimeout))
		}
		r.Route("/comments", func(r chi.Router) {
			r.Get("/", s.listComments)
			r.Post("/analyze", s.analyzeComments)
		})
		r.Route("/stats", func(r chi.Router) {
			r.Get("/", s.statsSummary)
			r.Get("/timeseries", s.statsTimeSeries)
			r.Get("/platform-overview", s.platformOverview)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
