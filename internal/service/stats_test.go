package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/social-comment-harvester/internal/storage"
)

func TestStatsSummaryRoundsAndComputesPercentages(t *testing.T) {
	t.Parallel()

	repo := &MockStatsRepo{}
	svc, err := NewStatsService(repo)
	require.NoError(t, err)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	repo.On("Summary", mock.Anything, storage.StatsFilter{URL: testURL, Platform: testPlatform, From: &from, To: &to}).
		Return(storage.Counts{Total: 3, Positive: 2, Neutral: 1, AverageSentiment: 0.123456}, nil)

	got, err := svc.Summary(context.Background(), testURL, testPlatform, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Overall.TotalComments)
	assert.InDelta(t, 0.12, got.Overall.AverageSentiment, 1e-9)
	assert.InDelta(t, 66.67, got.Overall.SentimentDistribution.Positive, 1e-9)
	assert.InDelta(t, 33.33, got.Overall.SentimentDistribution.Neutral, 1e-9)
	assert.Zero(t, got.Overall.SentimentDistribution.Negative)
	assert.Equal(t, Breakdown{Positive: 2, Neutral: 1}, got.Details)
	repo.AssertExpectations(t)
}

func TestStatsSummaryEmptyHasNoNaN(t *testing.T) {
	t.Parallel()

	repo := &MockStatsRepo{}
	svc, err := NewStatsService(repo)
	require.NoError(t, err)
	repo.On("Summary", mock.Anything, mock.Anything).Return(storage.Counts{}, nil)

	got, err := svc.Summary(context.Background(), testURL, testPlatform, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Percentages{}, got.Overall.SentimentDistribution)
}

func TestStatsRejectsInvertedRange(t *testing.T) {
	t.Parallel()

	svc, err := NewStatsService(&MockStatsRepo{})
	require.NoError(t, err)
	from := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err = svc.Summary(context.Background(), testURL, testPlatform, &from, &to)
	require.ErrorIs(t, err, storage.ErrInvalidFilter)
	_, err = svc.TimeSeries(context.Background(), testURL, testPlatform, &from, &to)
	require.ErrorIs(t, err, storage.ErrInvalidFilter)
}

func TestStatsTimeSeriesAndOverview(t *testing.T) {
	t.Parallel()

	repo := &MockStatsRepo{}
	svc, err := NewStatsService(repo)
	require.NoError(t, err)
	repo.On("TimeSeries", mock.Anything, mock.Anything).Return([]storage.DayCounts{
		{Date: "2024-03-01", Counts: storage.Counts{Total: 2, Positive: 1, Negative: 1, AverageSentiment: 0.015}},
	}, nil)
	repo.On("PlatformOverview", mock.Anything).Return([]storage.PlatformCounts(nil), errors.New("down"))

	days, err := svc.TimeSeries(context.Background(), testURL, testPlatform, nil, nil)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 2, days[0].Metrics.CommentCount)
	assert.Equal(t, Breakdown{Positive: 1, Negative: 1}, days[0].Metrics.SentimentBreakdown)

	_, err = svc.PlatformOverview(context.Background())
	require.ErrorContains(t, err, "platform overview")
	repo.AssertExpectations(t)
}
