// Package service composes the scraper, sentiment scoring, persistence and event
// publication into the operations the API and CLI expose.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/social-comment-harvester/internal/logging"
	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
	"github.com/JakeFAU/social-comment-harvester/internal/sentiment"
	"github.com/JakeFAU/social-comment-harvester/internal/storage"
)

// Default request limits.
const (
	DefaultLimit = 200
	MaxLimit     = 1000
)

// EventCommentsAnalyzed is published after an analysis run is stored.
const EventCommentsAnalyzed = "comments.analyzed"

// Scraper extracts comments from a URL.
type Scraper interface {
	Scrape(ctx context.Context, req scraper.ScrapeRequest) ([]scraper.Comment, error)
}

// Analyzer scores comment text.
type Analyzer interface {
	Analyze(text string) sentiment.Result
}

// Publisher emits analysis events.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) (string, error)
}

// IDGenerator issues run and record IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher derives content hashes.
type Hasher interface {
	HashFields(fields ...string) string
}

// AnalyzedComment is a comment with its sentiment.
type AnalyzedComment struct {
	scraper.Comment
	Platform       string          `json:"platform"`
	ContentURL     string          `json:"content_url"`
	SentimentScore float64         `json:"sentiment_score"`
	SentimentLabel sentiment.Label `json:"sentiment_label"`
}

// Analysis is the result of one analysis run.
type Analysis struct {
	RunID    string            `json:"run_id"`
	Comments []AnalyzedComment `json:"comments"`
	Summary  sentiment.Summary `json:"summary"`
}

// AnalyzedEvent is the payload of EventCommentsAnalyzed.
type AnalyzedEvent struct {
	RunID      string            `json:"run_id"`
	Platform   string            `json:"platform"`
	ContentURL string            `json:"content_url"`
	Count      int               `json:"count"`
	Summary    sentiment.Summary `json:"summary"`
	At         time.Time         `json:"at"`
}

// CommentDeps are the collaborators of CommentService.
type CommentDeps struct {
	Scraper   Scraper
	Analyzer  Analyzer
	Repo      storage.CommentRepository
	Publisher Publisher
	IDs       IDGenerator
	Hasher    Hasher
	Clock     scraper.Clock
	Logger    *zap.Logger
}

// CommentService runs and serves comment analyses.
type CommentService struct {
	deps   CommentDeps
	logger *zap.Logger
}

// NewCommentService validates deps and returns a CommentService.
func NewCommentService(deps CommentDeps) (*CommentService, error) {
	switch {
	case deps.Scraper == nil:
		return nil, fmt.Errorf("scraper is required")
	case deps.Analyzer == nil:
		return nil, fmt.Errorf("analyzer is required")
	case deps.Repo == nil:
		return nil, fmt.Errorf("comment repository is required")
	case deps.IDs == nil:
		return nil, fmt.Errorf("id generator is required")
	case deps.Hasher == nil:
		return nil, fmt.Errorf("hasher is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{deps: deps, logger: logger.Named("comments")}, nil
}

// ClampLimit applies the default and the ceiling to a requested limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Analyze scrapes url, scores every comment, replaces the stored comments for url and
// publishes an event. Clearing old rows and publishing are best effort.
func (s *CommentService) Analyze(ctx context.Context, url, platform string, limit int) (Analysis, error) {
	req := scraper.ScrapeRequest{URL: url, Platform: platform, Limit: ClampLimit(limit)}
	logger := logging.WithTarget(s.logger, platform, url).With(zap.Int("limit", req.Limit))
	logger.Info("analysis started")

	comments, err := s.deps.Scraper.Scrape(ctx, req)
	if err != nil {
		return Analysis{}, fmt.Errorf("scrape comments: %w", err)
	}
	runID, err := s.deps.IDs.NewID()
	if err != nil {
		return Analysis{}, fmt.Errorf("issue run id: %w", err)
	}

	now := s.deps.Clock.Now()
	analyzed := make([]AnalyzedComment, 0, len(comments))
	results := make([]sentiment.Result, 0, len(comments))
	records := make([]storage.CommentRecord, 0, len(comments))
	for i, c := range comments {
		res := s.deps.Analyzer.Analyze(c.Text)
		results = append(results, res)
		ac := AnalyzedComment{
			Comment:        c,
			Platform:       platform,
			ContentURL:     url,
			SentimentScore: res.Score,
			SentimentLabel: res.Label,
		}
		analyzed = append(analyzed, ac)

		id, err := s.deps.IDs.NewID()
		if err != nil {
			return Analysis{}, fmt.Errorf("issue comment id: %w", err)
		}
		// Offset by index so insertion order survives the created_at ordering.
		records = append(records, s.record(id, runID, ac, now.Add(time.Duration(i)*time.Millisecond)))
	}

	if n, err := s.deps.Repo.DeleteByURL(ctx, url, platform); err != nil {
		logger.Warn("clear stored comments failed", zap.Error(err))
	} else {
		logger.Debug("cleared stored comments", zap.Int64("deleted", n))
	}
	stored, err := s.deps.Repo.CreateMany(ctx, records)
	if err != nil {
		return Analysis{}, fmt.Errorf("store comments: %w", err)
	}

	summary := sentiment.Aggregate(results)
	if s.deps.Publisher != nil {
		event := AnalyzedEvent{
			RunID:      runID,
			Platform:   platform,
			ContentURL: url,
			Count:      len(analyzed),
			Summary:    summary,
			At:         now,
		}
		if _, err := s.deps.Publisher.Publish(ctx, EventCommentsAnalyzed, event); err != nil {
			logger.Warn("publish analysis event failed", zap.Error(err))
		}
	}

	logger.Info("analysis finished",
		zap.String("run_id", runID),
		zap.Int("scraped", len(comments)),
		zap.Int("stored", stored),
	)
	return Analysis{RunID: runID, Comments: analyzed, Summary: summary}, nil
}

// List returns stored comments for url. When fewer than limit are stored, a fresh analysis
// replaces them, which also validates the request.
func (s *CommentService) List(ctx context.Context, url, platform string, limit int) ([]AnalyzedComment, error) {
	limit = ClampLimit(limit)
	records, err := s.deps.Repo.FindByURL(ctx, url, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	if len(records) >= limit {
		out := make([]AnalyzedComment, 0, len(records))
		for _, r := range records {
			out = append(out, fromRecord(r))
		}
		return out, nil
	}
	s.logger.Info("stored comments below requested limit, analyzing",
		zap.String("url", url),
		zap.Int("stored", len(records)),
		zap.Int("limit", limit),
	)
	analysis, err := s.Analyze(ctx, url, platform, limit)
	if err != nil {
		return nil, err
	}
	return analysis.Comments, nil
}

func (s *CommentService) record(id, runID string, ac AnalyzedComment, at time.Time) storage.CommentRecord {
	key := ac.Key()
	return storage.CommentRecord{
		ID:              id,
		RunID:           runID,
		Platform:        ac.Platform,
		ContentURL:      ac.ContentURL,
		ContentHash:     s.deps.Hasher.HashFields(key.Username, key.Text, key.Timestamp),
		Username:        ac.Username,
		Text:            ac.Text,
		Timestamp:       ac.Timestamp,
		Likes:           ac.Likes,
		AvatarURL:       ac.AvatarURL,
		IsPinned:        ac.IsPinned,
		HasCreatorHeart: ac.HasCreatorHeart,
		Replies:         ac.Replies,
		SentimentScore:  ac.SentimentScore,
		SentimentLabel:  string(ac.SentimentLabel),
		CreatedAt:       at,
	}
}

func fromRecord(r storage.CommentRecord) AnalyzedComment {
	replies := r.Replies
	if replies == nil {
		replies = []scraper.Comment{}
	}
	return AnalyzedComment{
		Comment: scraper.Comment{
			Username:        r.Username,
			Text:            r.Text,
			Timestamp:       r.Timestamp,
			Likes:           r.Likes,
			AvatarURL:       r.AvatarURL,
			IsPinned:        r.IsPinned,
			HasCreatorHeart: r.HasCreatorHeart,
			Replies:         replies,
		},
		Platform:       r.Platform,
		ContentURL:     r.ContentURL,
		SentimentScore: r.SentimentScore,
		SentimentLabel: sentiment.Label(r.SentimentLabel),
	}
}
