// Package storage defines the persistence contracts for analyzed comments. Postgres and
// SQLite implementations live in subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
)

// ErrInvalidFilter reports an unusable query filter.
var ErrInvalidFilter = errors.New("invalid filter")

// CommentRecord is one stored comment with its sentiment.
type CommentRecord struct {
	ID              string
	RunID           string
	Platform        string
	ContentURL      string
	ContentHash     string
	Username        string
	Text            string
	Timestamp       string
	Likes           int
	AvatarURL       *string
	IsPinned        bool
	HasCreatorHeart bool
	Replies         []scraper.Comment
	SentimentScore  float64
	SentimentLabel  string
	CreatedAt       time.Time
}

// CommentRepository persists comment records.
type CommentRepository interface {
	// CreateMany inserts all records atomically and returns how many were written.
	CreateMany(ctx context.Context, records []CommentRecord) (int, error)
	// DeleteByURL removes every record of a content URL on a platform.
	DeleteByURL(ctx context.Context, url, platform string) (int64, error)
	// FindByURL returns up to limit records in insertion order. limit <= 0 means all.
	FindByURL(ctx context.Context, url, platform string, limit int) ([]CommentRecord, error)
}

// StatsFilter narrows statistics to one content URL and an optional [From, To) window.
type StatsFilter struct {
	URL      string
	Platform string
	From     *time.Time
	To       *time.Time
}

// Validate checks the filter.
func (f StatsFilter) Validate() error {
	if f.URL == "" || f.Platform == "" {
		return errors.Join(ErrInvalidFilter, errors.New("url and platform are required"))
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return errors.Join(ErrInvalidFilter, errors.New("start date is after end date"))
	}
	return nil
}

// Counts is the sentiment breakdown of a set of records.
type Counts struct {
	Total            int
	Positive         int
	Neutral          int
	Negative         int
	AverageSentiment float64
}

// DayCounts is Counts for one UTC day (YYYY-MM-DD).
type DayCounts struct {
	Date string
	Counts
}

// PlatformCounts is Counts for one platform.
type PlatformCounts struct {
	Platform string
	Counts
}

// StatsRepository computes aggregates over stored records.
type StatsRepository interface {
	Summary(ctx context.Context, f StatsFilter) (Counts, error)
	TimeSeries(ctx context.Context, f StatsFilter) ([]DayCounts, error)
	PlatformOverview(ctx context.Context) ([]PlatformCounts, error)
}

// Store is a repository implementing both contracts.
type Store interface {
	CommentRepository
	StatsRepository
	Ping(ctx context.Context) error
	Close() error
}
