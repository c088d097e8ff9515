package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
	"github.com/JakeFAU/social-comment-harvester/internal/storage"
)

// MockScraper is a mock implementation of the Scraper interface.
type MockScraper struct {
	mock.Mock
}

func (m *MockScraper) Scrape(ctx context.Context, req scraper.ScrapeRequest) ([]scraper.Comment, error) {
	args := m.Called(ctx, req)
	comments, _ := args.Get(0).([]scraper.Comment)
	return comments, args.Error(1)
}

// MockCommentRepo is a mock implementation of storage.CommentRepository.
type MockCommentRepo struct {
	mock.Mock
}

func (m *MockCommentRepo) CreateMany(ctx context.Context, records []storage.CommentRecord) (int, error) {
	args := m.Called(ctx, records)
	return args.Int(0), args.Error(1)
}

func (m *MockCommentRepo) DeleteByURL(ctx context.Context, url, platform string) (int64, error) {
	args := m.Called(ctx, url, platform)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommentRepo) FindByURL(ctx context.Context, url, platform string, limit int) ([]storage.CommentRecord, error) {
	args := m.Called(ctx, url, platform, limit)
	records, _ := args.Get(0).([]storage.CommentRecord)
	return records, args.Error(1)
}

// MockStatsRepo is a mock implementation of storage.StatsRepository.
type MockStatsRepo struct {
	mock.Mock
}

func (m *MockStatsRepo) Summary(ctx context.Context, f storage.StatsFilter) (storage.Counts, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(storage.Counts), args.Error(1)
}

func (m *MockStatsRepo) TimeSeries(ctx context.Context, f storage.StatsFilter) ([]storage.DayCounts, error) {
	args := m.Called(ctx, f)
	days, _ := args.Get(0).([]storage.DayCounts)
	return days, args.Error(1)
}

func (m *MockStatsRepo) PlatformOverview(ctx context.Context) ([]storage.PlatformCounts, error) {
	args := m.Called(ctx)
	platforms, _ := args.Get(0).([]storage.PlatformCounts)
	return platforms, args.Error(1)
}

// MockPublisher is a mock implementation of the Publisher interface.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event string, payload any) (string, error) {
	args := m.Called(ctx, event, payload)
	return args.String(0), args.Error(1)
}

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("id-%03d", s.n), nil
}

type joinHasher struct{}

func (joinHasher) HashFields(fields ...string) string { return fmt.Sprint(fields) }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
