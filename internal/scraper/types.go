package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Platform names accepted by the harvester.
const (
	PlatformYouTube   = "youtube"
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformTwitter   = "twitter"
	PlatformReddit    = "reddit"
	PlatformLinkedIn  = "linkedin"
	PlatformThreads   = "threads"
	PlatformSnapchat  = "snapchat"
)

// KnownPlatforms lists every platform name a request may carry. Only some of them have a
// registered SelectorConfig; the rest are rejected as unsupported.
var KnownPlatforms = []string{
	PlatformYouTube,
	PlatformInstagram,
	PlatformFacebook,
	PlatformTwitter,
	PlatformReddit,
	PlatformLinkedIn,
	PlatformThreads,
	PlatformSnapchat,
}

// IsKnownPlatform reports whether name is one of KnownPlatforms.
func IsKnownPlatform(name string) bool {
	for _, p := range KnownPlatforms {
		if p == name {
			return true
		}
	}
	return false
}

// ScrapeRequest is the immutable input of one top-level scrape.
type ScrapeRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
	Limit    int    `json:"limit"`
}

// Validate checks the request against the registry.
func (r ScrapeRequest) Validate(reg *Registry) error {
	if strings.TrimSpace(r.URL) == "" {
		return BadInputError("url is required")
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return BadInputError("invalid url format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return BadInputError("url scheme must be http or https")
	}
	if r.Limit <= 0 {
		return BadInputError("limit must be > 0")
	}
	if !IsKnownPlatform(r.Platform) {
		return BadInputError(fmt.Sprintf(
			"invalid platform %q, must be one of: %s", r.Platform, strings.Join(KnownPlatforms, ", "),
		))
	}
	if reg == nil || !reg.Has(r.Platform) {
		return UnsupportedPlatformError(r.Platform)
	}
	return nil
}

// CommentDraft holds raw fields read from the DOM. Empty strings mean the field was absent.
type CommentDraft struct {
	Username     string
	Text         string
	Timestamp    string
	Likes        string
	AvatarURL    string
	Pinned       bool
	CreatorHeart bool
	Replies      []CommentDraft
}

// Comment is the normalized output record.
type Comment struct {
	Username        string    `json:"username"`
	Text            string    `json:"comment_text"`
	Timestamp       string    `json:"timestamp"`
	Likes           int       `json:"likes"`
	AvatarURL       *string   `json:"avatar_url"`
	IsPinned        bool      `json:"is_pinned"`
	HasCreatorHeart bool      `json:"has_creator_heart"`
	Replies         []Comment `json:"replies"`
}

// CommentKey identifies a comment by content.
type CommentKey struct {
	Username  string
	Text      string
	Timestamp string
}

// Key returns the content identity of the comment.
func (c Comment) Key() CommentKey {
	return CommentKey{Username: c.Username, Text: c.Text, Timestamp: c.Timestamp}
}

// Draft converts a comment back into its raw form.
func (c Comment) Draft() CommentDraft {
	d := CommentDraft{
		Username:     c.Username,
		Text:         c.Text,
		Timestamp:    c.Timestamp,
		Likes:        strconv.Itoa(c.Likes),
		Pinned:       c.IsPinned,
		CreatorHeart: c.HasCreatorHeart,
	}
	if c.AvatarURL != nil {
		d.AvatarURL = *c.AvatarURL
	}
	for _, r := range c.Replies {
		d.Replies = append(d.Replies, r.Draft())
	}
	return d
}

// PaginationProgress tracks whether extraction passes still grow the result set.
type PaginationProgress struct {
	PreviousCount    int
	StallAttempts    int
	MaxStallAttempts int
}

// Stalled reports whether the stall budget is spent.
func (p PaginationProgress) Stalled() bool {
	return p.StallAttempts >= p.MaxStallAttempts
}

// State is a step of the per-attempt state machine.
type State int

// Attempt states.
const (
	StateWaitingForContent State = iota
	StateExtracting
	StateDeciding
	StatePaginating
	StateConverged
	StateLimitReached
	StateDone
)

func (s State) String() string {
	switch s {
	case StateWaitingForContent:
		return "waiting_for_content"
	case StateExtracting:
		return "extracting"
	case StateDeciding:
		return "deciding"
	case StatePaginating:
		return "paginating"
	case StateConverged:
		return "converged"
	case StateLimitReached:
		return "limit_reached"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// AttemptState is owned by a single retry attempt and discarded with it.
type AttemptState struct {
	Attempt  int
	State    State
	Outcome  State
	Passes   int
	Progress PaginationProgress
	acc      *accumulator
}

func newAttemptState(attempt, maxStall int) *AttemptState {
	return &AttemptState{
		Attempt:  attempt,
		State:    StateWaitingForContent,
		Progress: PaginationProgress{MaxStallAttempts: maxStall},
		acc:      newAccumulator(),
	}
}

// Collected returns the number of unique comments gathered so far.
func (s *AttemptState) Collected() int {
	if s.acc == nil {
		return 0
	}
	return s.acc.Len()
}
