package scraper

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

const (
	anonymousUsername = "Anonymous"
	unknownTimestamp  = "Unknown"
)

// Normalize cleans a draft. It returns nil when the text is empty after cleaning.
// Normalize(Normalize(d).Draft()) equals Normalize(d).
func Normalize(d CommentDraft) *Comment {
	text := cleanText(d.Text)
	if text == "" {
		return nil
	}
	c := &Comment{
		Username:        cleanUsername(d.Username),
		Text:            text,
		Timestamp:       cleanTimestamp(d.Timestamp),
		Likes:           parseLikes(d.Likes),
		IsPinned:        d.Pinned,
		HasCreatorHeart: d.CreatorHeart,
		Replies:         make([]Comment, 0, len(d.Replies)),
	}
	if avatar := strings.TrimSpace(d.AvatarURL); avatar != "" {
		c.AvatarURL = &avatar
	}
	for _, r := range d.Replies {
		if reply := Normalize(r); reply != nil {
			c.Replies = append(c.Replies, *reply)
		}
	}
	return c
}

func isControl(r rune) bool {
	return r <= 0x1f || (r >= 0x7f && r <= 0x9f)
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, s))
}

func cleanUsername(s string) string {
	out := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case r == '_' || r == '-':
			return r
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			return r
		case unicode.IsSpace(r) && !isControl(r):
			return r
		default:
			return -1
		}
	}, s))
	if out == "" {
		return anonymousUsername
	}
	return out
}

func cleanTimestamp(s string) string {
	out := strings.TrimSpace(s)
	if out == "" {
		return unknownTimestamp
	}
	return out
}

// parseLikes accepts plain counts ("12", "1,204") and compact counts ("1.2K", "3M").
// Anything else, including counts followed by words, yields 0.
func parseLikes(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1e3
	case 'm', 'M':
		mult = 1e6
	case 'b', 'B':
		mult = 1e9
	}
	if mult > 1 {
		s = s[:len(s)-1]
	}
	if !numeric(s, mult > 1) {
		return 0
	}
	if mult == 1 {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	v := math.Round(f * mult)
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

func numeric(s string, allowDot bool) bool {
	if s == "" {
		return false
	}
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && allowDot:
			dots++
		default:
			return false
		}
	}
	return dots <= 1 && s != "."
}

// accumulator collects unique comments across extraction passes, keyed by content.
type accumulator struct {
	index map[CommentKey]int
	items []Comment
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[CommentKey]int)}
}

// Merge normalizes drafts and appends unseen ones. A repeat sighting carrying more replies
// replaces the stored replies without changing the size.
func (a *accumulator) Merge(drafts []CommentDraft) int {
	added := 0
	for _, d := range drafts {
		c := Normalize(d)
		if c == nil {
			continue
		}
		key := c.Key()
		if i, ok := a.index[key]; ok {
			if len(c.Replies) > len(a.items[i].Replies) {
				a.items[i].Replies = c.Replies
			}
			continue
		}
		a.index[key] = len(a.items)
		a.items = append(a.items, *c)
		added++
	}
	return added
}

func (a *accumulator) Len() int { return len(a.items) }

// Take returns at most limit comments in first-seen order.
func (a *accumulator) Take(limit int) []Comment {
	n := len(a.items)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]Comment, n)
	copy(out, a.items[:n])
	return out
}

// Dedupe collapses comments sharing a content key, keeping the first occurrence.
func Dedupe(comments []Comment) []Comment {
	seen := make(map[CommentKey]struct{}, len(comments))
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.Key()]; ok {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	return out
}
