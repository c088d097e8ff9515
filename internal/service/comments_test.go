package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
	"github.com/JakeFAU/social-comment-harvester/internal/sentiment"
	"github.com/JakeFAU/social-comment-harvester/internal/storage"
)

const (
	testURL      = "https://www.youtube.com/watch?v=abc"
	testPlatform = scraper.PlatformYouTube
)

var testNow = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

type fixture struct {
	scraper   *MockScraper
	repo      *MockCommentRepo
	publisher *MockPublisher
	svc       *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		scraper:   &MockScraper{},
		repo:      &MockCommentRepo{},
		publisher: &MockPublisher{},
	}
	svc, err := NewCommentService(CommentDeps{
		Scraper:   f.scraper,
		Analyzer:  sentiment.NewAnalyzer(),
		Repo:      f.repo,
		Publisher: f.publisher,
		IDs:       &seqIDs{},
		Hasher:    joinHasher{},
		Clock:     fixedClock{t: testNow},
	})
	require.NoError(t, err)
	f.svc = svc
	t.Cleanup(func() {
		f.scraper.AssertExpectations(t)
		f.repo.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})
	return f
}

func scraped() []scraper.Comment {
	return []scraper.Comment{
		{Username: "alice", Text: "I love this", Likes: 3, Replies: []scraper.Comment{}},
		{Username: "bob", Text: "worst take ever", Replies: []scraper.Comment{}},
	}
}

func TestAnalyzeScoresStoresAndPublishes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := scraper.ScrapeRequest{URL: testURL, Platform: testPlatform, Limit: 50}
	f.scraper.On("Scrape", mock.Anything, req).Return(scraped(), nil)
	f.repo.On("DeleteByURL", mock.Anything, testURL, testPlatform).Return(int64(7), nil)
	f.repo.On("CreateMany", mock.Anything, mock.MatchedBy(func(recs []storage.CommentRecord) bool {
		return len(recs) == 2 &&
			recs[0].RunID == "id-001" &&
			recs[0].ContentHash == "[alice I love this ]" &&
			recs[0].SentimentLabel == "positive" &&
			recs[1].SentimentLabel == "negative" &&
			recs[1].CreatedAt.After(recs[0].CreatedAt)
	})).Return(2, nil)
	f.publisher.On("Publish", mock.Anything, EventCommentsAnalyzed, mock.MatchedBy(func(e AnalyzedEvent) bool {
		return e.RunID == "id-001" && e.Count == 2 && e.ContentURL == testURL
	})).Return("msg-1", nil)

	res, err := f.svc.Analyze(context.Background(), testURL, testPlatform, 50)
	require.NoError(t, err)
	assert.Equal(t, "id-001", res.RunID)
	require.Len(t, res.Comments, 2)
	assert.Equal(t, sentiment.Positive, res.Comments[0].SentimentLabel)
	assert.Equal(t, testPlatform, res.Comments[0].Platform)
	assert.InDelta(t, 0.5, res.Summary.Distribution.Positive, 1e-9)
}

func TestAnalyzeClampsLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-4))
	assert.Equal(t, MaxLimit, ClampLimit(5000))
	assert.Equal(t, 25, ClampLimit(25))

	f := newFixture(t)
	f.scraper.On("Scrape", mock.Anything, scraper.ScrapeRequest{URL: testURL, Platform: testPlatform, Limit: MaxLimit}).
		Return([]scraper.Comment{}, nil)
	f.repo.On("DeleteByURL", mock.Anything, testURL, testPlatform).Return(int64(0), nil)
	f.repo.On("CreateMany", mock.Anything, []storage.CommentRecord{}).Return(0, nil)
	f.publisher.On("Publish", mock.Anything, EventCommentsAnalyzed, mock.Anything).Return("msg", nil)

	res, err := f.svc.Analyze(context.Background(), testURL, testPlatform, 5000)
	require.NoError(t, err)
	assert.Empty(t, res.Comments)
}

func TestAnalyzePropagatesScrapeErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cause := scraper.UnsupportedPlatformError(scraper.PlatformReddit)
	f.scraper.On("Scrape", mock.Anything, mock.Anything).Return(nil, cause)

	_, err := f.svc.Analyze(context.Background(), "https://reddit.com/r/x", scraper.PlatformReddit, 10)
	require.Error(t, err)
	assert.Equal(t, 501, scraper.StatusOf(err))
}

func TestAnalyzeToleratesDeleteAndPublishFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.scraper.On("Scrape", mock.Anything, mock.Anything).Return(scraped(), nil)
	f.repo.On("DeleteByURL", mock.Anything, testURL, testPlatform).Return(int64(0), errors.New("locked"))
	f.repo.On("CreateMany", mock.Anything, mock.Anything).Return(2, nil)
	f.publisher.On("Publish", mock.Anything, EventCommentsAnalyzed, mock.Anything).Return("", errors.New("unavailable"))

	res, err := f.svc.Analyze(context.Background(), testURL, testPlatform, 10)
	require.NoError(t, err)
	assert.Len(t, res.Comments, 2)
}

func TestAnalyzeFailsWhenStoreFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.scraper.On("Scrape", mock.Anything, mock.Anything).Return(scraped(), nil)
	f.repo.On("DeleteByURL", mock.Anything, testURL, testPlatform).Return(int64(0), nil)
	f.repo.On("CreateMany", mock.Anything, mock.Anything).Return(0, errors.New("disk full"))

	_, err := f.svc.Analyze(context.Background(), testURL, testPlatform, 10)
	require.ErrorContains(t, err, "store comments")
	assert.Equal(t, 500, scraper.StatusOf(err))
}

func TestListServesStoredComments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	stored := []storage.CommentRecord{
		{Username: "alice", Text: "hi", Platform: testPlatform, ContentURL: testURL, SentimentLabel: "neutral"},
		{Username: "bob", Text: "yo", Platform: testPlatform, ContentURL: testURL, SentimentLabel: "neutral"},
	}
	f.repo.On("FindByURL", mock.Anything, testURL, testPlatform, 2).Return(stored, nil)

	got, err := f.svc.List(context.Background(), testURL, testPlatform, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[1].Username)
	assert.NotNil(t, got[0].Replies)
}

func TestListAnalyzesWhenBelowLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.On("FindByURL", mock.Anything, testURL, testPlatform, 10).
		Return([]storage.CommentRecord{{Username: "old", Text: "stale"}}, nil)
	f.scraper.On("Scrape", mock.Anything, scraper.ScrapeRequest{URL: testURL, Platform: testPlatform, Limit: 10}).
		Return(scraped(), nil)
	f.repo.On("DeleteByURL", mock.Anything, testURL, testPlatform).Return(int64(1), nil)
	f.repo.On("CreateMany", mock.Anything, mock.Anything).Return(2, nil)
	f.publisher.On("Publish", mock.Anything, EventCommentsAnalyzed, mock.Anything).Return("msg", nil)

	got, err := f.svc.List(context.Background(), testURL, testPlatform, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Username)
}

func TestNewCommentServiceRequiresDeps(t *testing.T) {
	t.Parallel()

	_, err := NewCommentService(CommentDeps{})
	require.Error(t, err)
}
