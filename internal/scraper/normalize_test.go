package scraper

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaultsMissingFields(t *testing.T) {
	t.Parallel()

	got := Normalize(CommentDraft{Text: "  hi  ", Likes: "12 likes"})
	want := &Comment{
		Username:  "Anonymous",
		Text:      "hi",
		Timestamp: "Unknown",
		Likes:     0,
		Replies:   []Comment{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeDropsEmptyText(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "\x00\x07\t\n", "\u0085 \r"} {
		assert.Nil(t, Normalize(CommentDraft{Username: "alice", Text: text}), "text %q", text)
	}
}

func TestNormalizeCleansFields(t *testing.T) {
	t.Parallel()

	got := Normalize(CommentDraft{
		Username:     " @jo.hn_doe-99! ",
		Text:         "\tnice\x00 one\x1b ",
		Timestamp:    "  2 hours ago ",
		Likes:        "1,204",
		AvatarURL:    " https://cdn.example/a.png ",
		Pinned:       true,
		CreatorHeart: true,
		Replies: []CommentDraft{
			{Username: "bob", Text: "agreed"},
			{Username: "ghost", Text: "   "},
			{Text: "ünïcödé ✓"},
		},
	})
	require.NotNil(t, got)
	assert.Equal(t, "john_doe-99", got.Username)
	assert.Equal(t, "nice one", got.Text)
	assert.Equal(t, "2 hours ago", got.Timestamp)
	assert.Equal(t, 1204, got.Likes)
	require.NotNil(t, got.AvatarURL)
	assert.Equal(t, "https://cdn.example/a.png", *got.AvatarURL)
	assert.True(t, got.IsPinned)
	assert.True(t, got.HasCreatorHeart)
	require.Len(t, got.Replies, 2)
	assert.Equal(t, "agreed", got.Replies[0].Text)
	assert.Equal(t, "Anonymous", got.Replies[1].Username)
	assert.Equal(t, "ünïcödé ✓", got.Replies[1].Text)
}

func TestNormalizeKeepsUnicodeUsernames(t *testing.T) {
	t.Parallel()

	got := Normalize(CommentDraft{Username: "José Müller 山田", Text: "hola"})
	require.NotNil(t, got)
	assert.Equal(t, "José Müller 山田", got.Username)

	got = Normalize(CommentDraft{Username: "!!!", Text: "hola"})
	require.NotNil(t, got)
	assert.Equal(t, "Anonymous", got.Username)
}

func TestParseLikes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"12", 12},
		{" 42 ", 42},
		{"1,204", 1204},
		{"1.2K", 1200},
		{"15k", 15000},
		{"3M", 3000000},
		{"2.5m", 2500000},
		{"5B", math.MaxInt32},
		{"12 likes", 0},
		{"Like", 0},
		{"-5", 0},
		{"1.2", 0},
		{"1.2.3K", 0},
		{"K", 0},
		{".K", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLikes(tt.in), "parseLikes(%q)", tt.in)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []CommentDraft{
		{Text: "  hi  ", Likes: "12 likes"},
		{Username: "@alice!!", Text: "first\x00", Timestamp: "2024-01-02T03:04:05Z", Likes: "1.2K"},
		{Username: "\t", Text: "x", AvatarURL: "https://a/b.png", Pinned: true, CreatorHeart: true},
		{Username: "Zoë", Text: "outer", Likes: "5B", Replies: []CommentDraft{
			{Username: "r1", Text: " inner ", Likes: "7"},
			{Text: ""},
			{Username: "r2", Text: "deep", Replies: []CommentDraft{{Text: "nested"}}},
		}},
	}
	for _, d := range inputs {
		first := Normalize(d)
		require.NotNil(t, first)
		second := Normalize(first.Draft())
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("normalize not idempotent for %+v (-first +second):\n%s", d, diff)
		}
	}
}

func TestNormalizeRepliesNeverEmpty(t *testing.T) {
	t.Parallel()

	got := Normalize(CommentDraft{Text: "root", Replies: []CommentDraft{
		{Text: " "},
		{Text: "ok", Replies: []CommentDraft{{Text: "\x00"}, {Text: "leaf"}}},
	}})
	require.NotNil(t, got)
	assertNonEmptyText(t, []Comment{*got})
	require.Len(t, got.Replies, 1)
	require.Len(t, got.Replies[0].Replies, 1)
}

func assertNonEmptyText(t *testing.T, comments []Comment) {
	t.Helper()
	for _, c := range comments {
		if c.Text == "" {
			t.Fatalf("comment with empty text: %+v", c)
		}
		assertNonEmptyText(t, c.Replies)
	}
}

func TestAccumulatorDedupesByContent(t *testing.T) {
	t.Parallel()

	acc := newAccumulator()
	a := CommentDraft{Username: "alice", Text: "same", Timestamp: "1h"}
	b := CommentDraft{Username: "alice", Text: "same", Timestamp: "1h"}
	require.Equal(t, 1, acc.Merge([]CommentDraft{a}))
	require.Equal(t, 0, acc.Merge([]CommentDraft{b}))
	require.Equal(t, 1, acc.Len())

	// Differences that normalize away collapse too.
	require.Equal(t, 0, acc.Merge([]CommentDraft{{Username: " alice ", Text: "same\x00 ", Timestamp: " 1h"}}))
	require.Equal(t, 1, acc.Len())

	require.Equal(t, 1, acc.Merge([]CommentDraft{{Username: "alice", Text: "same", Timestamp: "2h"}}))
	require.Equal(t, 2, acc.Len())
}

func TestAccumulatorKeepsRicherReplies(t *testing.T) {
	t.Parallel()

	acc := newAccumulator()
	acc.Merge([]CommentDraft{{Username: "a", Text: "root"}})
	acc.Merge([]CommentDraft{{Username: "a", Text: "root", Replies: []CommentDraft{{Text: "r1"}, {Text: "r2"}}}})
	acc.Merge([]CommentDraft{{Username: "a", Text: "root", Replies: []CommentDraft{{Text: "r1"}}}})

	got := acc.Take(10)
	require.Len(t, got, 1)
	require.Len(t, got[0].Replies, 2)
}

func TestAccumulatorTakePreservesOrder(t *testing.T) {
	t.Parallel()

	acc := newAccumulator()
	acc.Merge(drafts("p", 4))
	got := acc.Take(3)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, drafts("p", 4)[i].Text, c.Text)
	}
	assert.Len(t, acc.Take(0), 4)
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	in := []Comment{
		{Username: "a", Text: "x", Timestamp: "t"},
		{Username: "b", Text: "x", Timestamp: "t"},
		{Username: "a", Text: "x", Timestamp: "t", Likes: 9},
	}
	got := Dedupe(in)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Likes)
}
