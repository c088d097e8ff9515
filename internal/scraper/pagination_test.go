package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPaginationOptions() paginationOptions {
	return paginationOptions{
		scrollAmount: 2000,
		probeTimeout: time.Second,
		sleep:        noSleep,
		logger:       zap.NewNop(),
	}
}

func TestScrollPaginatorMeasuresHeight(t *testing.T) {
	t.Parallel()

	p := newPaginator(SelectorConfig{}, testPaginationOptions())
	s := newFakeSession()
	ok, err := p.Advance(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3000), s.height)

	s.grow = false
	ok, err = p.Advance(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestButtonPaginatorClicksFirstPresentControl(t *testing.T) {
	t.Parallel()

	cfg := SelectorConfig{
		Capabilities: Capabilities{Pagination: PaginationButton},
		LoadMore:     []string{"button.missing", "button.more"},
		LoadMoreText: "Load more comments",
	}
	p := newPaginator(cfg, testPaginationOptions())
	s := newFakeSession("button.more")
	ok, err := p.Advance(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"button.more"}, s.clicks)
}

func TestButtonPaginatorFallsBackToText(t *testing.T) {
	t.Parallel()

	cfg := SelectorConfig{
		Capabilities: Capabilities{Pagination: PaginationButton},
		LoadMore:     []string{"button.missing"},
		LoadMoreText: "Load more comments",
	}
	p := newPaginator(cfg, testPaginationOptions())

	s := newFakeSession()
	ok, err := p.Advance(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, ok, "no control anywhere means no progress")

	s.textButtons["Load more comments"] = true
	ok, err = p.Advance(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"text:Load more comments"}, s.clicks)
}

func TestHybridPaginatorScrollsWhenNoButton(t *testing.T) {
	t.Parallel()

	cfg := SelectorConfig{
		Capabilities: Capabilities{Pagination: PaginationHybrid},
		LoadMoreText: "Show more replies",
	}
	p := newPaginator(cfg, testPaginationOptions())
	s := newFakeSession()
	ok, err := p.Advance(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, s.clicks)
	assert.Equal(t, int64(3000), s.height)
}

func TestNoopPaginatorNeverProgresses(t *testing.T) {
	t.Parallel()

	p := newPaginator(SelectorConfig{Capabilities: Capabilities{Pagination: PaginationNone}}, testPaginationOptions())
	ok, err := p.Advance(context.Background(), newFakeSession())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplyExpanderCountsAsProgress(t *testing.T) {
	t.Parallel()

	cfg := SelectorConfig{
		Capabilities:      Capabilities{Pagination: PaginationNone},
		ExpandRepliesText: "replies",
	}
	p := newPaginator(cfg, testPaginationOptions())
	s := newFakeSession()
	s.expandable = 2
	ok, err := p.Advance(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Advance(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPanelOpenerTriesCandidatesInOrder(t *testing.T) {
	t.Parallel()

	cfg := SelectorConfig{
		PanelOpeners: []string{"button.a", "button.b", "button.c"},
		PanelReady:   []string{"div.panel"},
	}
	s := newFakeSession("button.b", "button.c", "div.panel")
	opener := &panelOpener{probeTimeout: time.Second, logger: zap.NewNop()}
	require.NoError(t, opener.Open(context.Background(), s, cfg))
	assert.Equal(t, []string{"button.b"}, s.clicks)
}

func TestPanelOpenerFallsBackToAriaLabel(t *testing.T) {
	t.Parallel()

	cfg := SelectorConfig{
		PanelOpeners:   []string{"button.a"},
		PanelReady:     []string{"div.panel"},
		PanelAriaLabel: "Comment",
	}
	s := newFakeSession("div.panel")
	s.ariaLabels["Comment"] = true
	opener := &panelOpener{probeTimeout: time.Second, logger: zap.NewNop()}
	require.NoError(t, opener.Open(context.Background(), s, cfg))
	assert.Equal(t, []string{"aria:Comment"}, s.clicks)
}

func TestPanelOpenerFailsWithContentNotFound(t *testing.T) {
	t.Parallel()

	cfg := SelectorConfig{
		PanelOpeners:   []string{"button.a"},
		PanelReady:     []string{"div.panel"},
		PanelAriaLabel: "Comment",
	}
	// The opener is clickable but the panel never renders.
	s := newFakeSession("button.a")
	opener := &panelOpener{probeTimeout: time.Second, logger: zap.NewNop()}
	err := opener.Open(context.Background(), s, cfg)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindContentNotFound, se.Kind)
	assert.Equal(t, StagePanel, se.Stage)
}
