package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Paginator reveals more comments. It reports whether any progress was possible.
type Paginator interface {
	Advance(ctx context.Context, s Session) (bool, error)
}

type paginationOptions struct {
	scrollAmount int
	scrollSettle time.Duration
	probeTimeout time.Duration
	sleep        sleepFunc
	logger       *zap.Logger
}

// newPaginator assembles the strategy for a selector config.
func newPaginator(cfg SelectorConfig, opts paginationOptions) Paginator {
	var p Paginator
	scroll := &scrollPaginator{
		container: cfg.ScrollContainer,
		amount:    opts.scrollAmount,
		settle:    opts.scrollSettle,
		sleep:     opts.sleep,
	}
	button := &buttonPaginator{
		selectors:    cfg.LoadMore,
		text:         cfg.LoadMoreText,
		probeTimeout: opts.probeTimeout,
		logger:       opts.logger,
	}
	switch cfg.Capabilities.Pagination {
	case PaginationButton:
		p = button
	case PaginationHybrid:
		p = chainPaginator{button, scroll}
	case PaginationNone:
		p = noopPaginator{}
	default:
		p = scroll
	}
	if cfg.ExpandReplies != "" || cfg.ExpandRepliesText != "" {
		p = &replyExpander{
			selector: cfg.ExpandReplies,
			text:     cfg.ExpandRepliesText,
			next:     p,
			logger:   opts.logger,
		}
	}
	return p
}

// scrollPaginator scrolls the window or a container; progress is a height change.
type scrollPaginator struct {
	container string
	amount    int
	settle    time.Duration
	sleep     sleepFunc
}

func (p *scrollPaginator) Advance(ctx context.Context, s Session) (bool, error) {
	before, err := s.ScrollHeight(ctx, p.container)
	if err != nil {
		return false, fmt.Errorf("read scroll height: %w", err)
	}
	if err := s.ScrollBy(ctx, p.container, p.amount); err != nil {
		return false, fmt.Errorf("scroll: %w", err)
	}
	if err := p.sleep(ctx, p.settle); err != nil {
		return false, err
	}
	after, err := s.ScrollHeight(ctx, p.container)
	if err != nil {
		return false, fmt.Errorf("read scroll height: %w", err)
	}
	return after > before, nil
}

// buttonPaginator clicks a load-more control, falling back to a text search.
type buttonPaginator struct {
	selectors    []string
	text         string
	probeTimeout time.Duration
	logger       *zap.Logger
}

func (p *buttonPaginator) Advance(ctx context.Context, s Session) (bool, error) {
	for _, sel := range p.selectors {
		probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
		found, err := s.Exists(probeCtx, sel)
		cancel()
		if err != nil || !found {
			continue
		}
		if err := s.Click(ctx, sel); err != nil {
			p.logger.Debug("load more click failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.text == "" {
		return false, nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()
	clicked, err := s.ClickByText(probeCtx, "", p.text)
	if err != nil {
		return false, fmt.Errorf("click %q: %w", p.text, err)
	}
	return clicked, nil
}

// chainPaginator tries each strategy in order until one progresses.
type chainPaginator []Paginator

func (c chainPaginator) Advance(ctx context.Context, s Session) (bool, error) {
	var lastErr error
	for _, p := range c {
		ok, err := p.Advance(ctx, s)
		if err != nil {
			if ctx.Err() != nil {
				return false, err
			}
			lastErr = err
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, lastErr
}

type noopPaginator struct{}

func (noopPaginator) Advance(context.Context, Session) (bool, error) { return false, nil }

// replyExpander opens collapsed reply threads before delegating to the next strategy.
type replyExpander struct {
	selector string
	text     string
	next     Paginator
	logger   *zap.Logger
}

func (r *replyExpander) Advance(ctx context.Context, s Session) (bool, error) {
	expanded, err := s.ClickAllByText(ctx, r.selector, r.text)
	if err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		r.logger.Debug("reply expansion failed", zap.Error(err))
	}
	progressed, err := r.next.Advance(ctx, s)
	if err != nil {
		return expanded > 0, err
	}
	return progressed || expanded > 0, nil
}

// panelOpener runs the one-time precondition for platforms that show comments in an overlay.
type panelOpener struct {
	probeTimeout time.Duration
	logger       *zap.Logger
}

func (p *panelOpener) Open(ctx context.Context, s Session, cfg SelectorConfig) error {
	for _, sel := range cfg.PanelOpeners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.WaitVisible(ctx, sel, p.probeTimeout); err != nil {
			p.logger.Debug("panel opener not found", zap.String("selector", sel))
			continue
		}
		if err := s.Click(ctx, sel); err != nil {
			p.logger.Debug("panel opener click failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		if p.ready(ctx, s, cfg) {
			return nil
		}
	}
	if cfg.PanelAriaLabel != "" {
		clicked, err := s.ClickByAriaLabel(ctx, cfg.PanelAriaLabel)
		if err == nil && clicked && p.ready(ctx, s, cfg) {
			p.logger.Debug("panel opened by aria-label", zap.String("label", cfg.PanelAriaLabel))
			return nil
		}
	}
	return ContentNotFoundError(StagePanel, "comment panel", ctx.Err())
}

func (p *panelOpener) ready(ctx context.Context, s Session, cfg SelectorConfig) bool {
	if len(cfg.PanelReady) == 0 {
		return true
	}
	for _, sel := range cfg.PanelReady {
		if err := s.WaitVisible(ctx, sel, p.probeTimeout); err == nil {
			return true
		}
	}
	return false
}
