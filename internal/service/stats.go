package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/JakeFAU/social-comment-harvester/internal/storage"
)

// Breakdown is a per-label count.
type Breakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Percentages is a per-label share in the 0..100 range, rounded to two decimals.
type Percentages struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// Overall is the headline of a Summary.
type Overall struct {
	TotalComments         int         `json:"total_comments"`
	AverageSentiment      float64     `json:"average_sentiment"`
	SentimentDistribution Percentages `json:"sentiment_distribution"`
}

// Summary is the statistics of one content URL.
type Summary struct {
	Overall Overall   `json:"overall"`
	Details Breakdown `json:"details"`
}

// Metrics is the per-bucket aggregate of a time series or platform overview.
type Metrics struct {
	CommentCount       int       `json:"comment_count"`
	AverageSentiment   float64   `json:"average_sentiment"`
	SentimentBreakdown Breakdown `json:"sentiment_breakdown"`
}

// DayPoint is one day of a time series.
type DayPoint struct {
	Date    string  `json:"date"`
	Metrics Metrics `json:"metrics"`
}

// PlatformPoint is one platform of the overview.
type PlatformPoint struct {
	Platform string  `json:"platform"`
	Metrics  Metrics `json:"metrics"`
}

// StatsService reads aggregates from the stats repository.
type StatsService struct {
	repo storage.StatsRepository
}

// NewStatsService returns a StatsService.
func NewStatsService(repo storage.StatsRepository) (*StatsService, error) {
	if repo == nil {
		return nil, errors.New("stats repository is required")
	}
	return &StatsService{repo: repo}, nil
}

// Summary returns totals, average and distribution for url within [from, to).
func (s *StatsService) Summary(ctx context.Context, url, platform string, from, to *time.Time) (Summary, error) {
	f := storage.StatsFilter{URL: url, Platform: platform, From: from, To: to}
	if err := f.Validate(); err != nil {
		return Summary{}, err
	}
	c, err := s.repo.Summary(ctx, f)
	if err != nil {
		return Summary{}, fmt.Errorf("load summary: %w", err)
	}
	return Summary{
		Overall: Overall{
			TotalComments:    c.Total,
			AverageSentiment: round2(c.AverageSentiment),
			SentimentDistribution: Percentages{
				Positive: percent(c.Positive, c.Total),
				Neutral:  percent(c.Neutral, c.Total),
				Negative: percent(c.Negative, c.Total),
			},
		},
		Details: Breakdown{Positive: c.Positive, Neutral: c.Neutral, Negative: c.Negative},
	}, nil
}

// TimeSeries returns per-day metrics for url within [from, to).
func (s *StatsService) TimeSeries(ctx context.Context, url, platform string, from, to *time.Time) ([]DayPoint, error) {
	f := storage.StatsFilter{URL: url, Platform: platform, From: from, To: to}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	days, err := s.repo.TimeSeries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load time series: %w", err)
	}
	out := make([]DayPoint, 0, len(days))
	for _, d := range days {
		out = append(out, DayPoint{Date: d.Date, Metrics: metricsOf(d.Counts)})
	}
	return out, nil
}

// PlatformOverview returns metrics for every platform with stored comments.
func (s *StatsService) PlatformOverview(ctx context.Context) ([]PlatformPoint, error) {
	platforms, err := s.repo.PlatformOverview(ctx)
	if err != nil {
		return nil, fmt.Errorf("load platform overview: %w", err)
	}
	out := make([]PlatformPoint, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, PlatformPoint{Platform: p.Platform, Metrics: metricsOf(p.Counts)})
	}
	return out, nil
}

func metricsOf(c storage.Counts) Metrics {
	return Metrics{
		CommentCount:       c.Total,
		AverageSentiment:   round2(c.AverageSentiment),
		SentimentBreakdown: Breakdown{Positive: c.Positive, Neutral: c.Neutral, Negative: c.Negative},
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
