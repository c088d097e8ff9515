package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DraftSource yields the comments currently rendered on the page.
type DraftSource interface {
	Drafts(ctx context.Context, s Session) ([]CommentDraft, error)
}

// Extractor maps a page snapshot to drafts using a SelectorConfig.
type Extractor struct {
	cfg SelectorConfig
}

// NewExtractor returns an Extractor for cfg.
func NewExtractor(cfg SelectorConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Drafts reads the rendered HTML once and parses every comment element in it.
func (e *Extractor) Drafts(ctx context.Context, s Session) ([]CommentDraft, error) {
	html, err := s.HTML(ctx)
	if err != nil {
		return nil, ExtractionError("read page html", err)
	}
	return e.Parse(html)
}

// Parse extracts drafts from an HTML document. Elements with neither username nor text are
// not comments and are skipped.
func (e *Extractor) Parse(html string) ([]CommentDraft, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, ExtractionError("parse page html", err)
	}
	var drafts []CommentDraft
	doc.Find(e.cfg.CommentItem).Each(func(_ int, item *goquery.Selection) {
		d := e.draft(item, true)
		if d.Username == "" && d.Text == "" {
			return
		}
		drafts = append(drafts, d)
	})
	return drafts, nil
}

func (e *Extractor) draft(item *goquery.Selection, withReplies bool) CommentDraft {
	d := CommentDraft{
		Username:  firstText(item, e.cfg.Username),
		Text:      firstText(item, e.cfg.Text),
		Timestamp: e.timestamp(item),
		Likes:     firstText(item, e.cfg.Likes),
	}
	if e.cfg.Avatar != "" {
		if src, ok := item.Find(e.cfg.Avatar).First().Attr("src"); ok {
			d.AvatarURL = src
		}
	}
	if e.cfg.Pinned != "" {
		d.Pinned = item.Find(e.cfg.Pinned).Length() > 0
	}
	if e.cfg.CreatorHeart != "" {
		d.CreatorHeart = item.Find(e.cfg.CreatorHeart).Filter(`[aria-pressed="true"]`).Length() > 0
	}
	if !withReplies || e.cfg.ReplyItem == "" {
		return d
	}
	scope := item
	if e.cfg.Replies != "" {
		scope = item.Find(e.cfg.Replies)
	}
	scope.Find(e.cfg.ReplyItem).Each(func(_ int, reply *goquery.Selection) {
		r := e.draft(reply, false)
		if r.Username == "" && r.Text == "" {
			return
		}
		d.Replies = append(d.Replies, r)
	})
	return d
}

func (e *Extractor) timestamp(item *goquery.Selection) string {
	if e.cfg.Timestamp == "" {
		return ""
	}
	node := item.Find(e.cfg.Timestamp).First()
	if e.cfg.TimestampAttr != "" {
		if v, ok := node.Attr(e.cfg.TimestampAttr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(node.Text())
}

func firstText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
}
