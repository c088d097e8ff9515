package headless

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
)

var _ scraper.Session = (*Session)(nil)

// defaultClickables is searched when a text lookup gives no selector.
const defaultClickables = `button, [role="button"], a`

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// Exists reports whether selector matches any node right now.
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	if err := s.eval(ctx, existsScript(selector), &found); err != nil {
		return false, err
	}
	return found, nil
}

// WaitVisible waits up to timeout for selector to become visible.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible %q: %w", selector, err)
	}
	return nil
}

// Click clicks the first visible node matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// ClickByText clicks the first clickable whose text contains text.
func (s *Session) ClickByText(ctx context.Context, selector, text string) (bool, error) {
	var clicked int
	if err := s.eval(ctx, clickTextScript(selector, text, false), &clicked); err != nil {
		return false, err
	}
	return clicked > 0, nil
}

// ClickAllByText clicks every clickable whose text contains text.
func (s *Session) ClickAllByText(ctx context.Context, selector, text string) (int, error) {
	var clicked int
	if err := s.eval(ctx, clickTextScript(selector, text, true), &clicked); err != nil {
		return 0, err
	}
	return clicked, nil
}

// ClickByAriaLabel clicks the first button whose aria-label contains label, ignoring case.
func (s *Session) ClickByAriaLabel(ctx context.Context, label string) (bool, error) {
	var clicked bool
	if err := s.eval(ctx, clickAriaScript(label), &clicked); err != nil {
		return false, err
	}
	return clicked, nil
}

// Type focuses selector and types text into it.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return nil
}

// Submit clicks selector and waits up to timeout for the resulting document to be ready.
func (s *Session) Submit(ctx context.Context, selector string, timeout time.Duration) error {
	submitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := s.run(submitCtx,
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("submit %q: %w", selector, err)
	}
	return nil
}

// ScrollIntoView scrolls the first node matching selector into the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.ScrollIntoView(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("scroll into view %q: %w", selector, err)
	}
	return nil
}

// ScrollBy scrolls container (the window when empty) down by px pixels.
func (s *Session) ScrollBy(ctx context.Context, container string, px int) error {
	var ok bool
	if err := s.eval(ctx, scrollByScript(container, px), &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("scroll container %q not found", container)
	}
	return nil
}

// ScrollHeight returns the scroll height of container, or of the document when empty.
func (s *Session) ScrollHeight(ctx context.Context, container string) (int64, error) {
	var height int64
	if err := s.eval(ctx, scrollHeightScript(container), &height); err != nil {
		return 0, err
	}
	return height, nil
}

// HTML returns the current serialized DOM.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

func (s *Session) eval(ctx context.Context, script string, out any) error {
	if err := s.run(ctx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func jsString(v string) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

func existsScript(selector string) string {
	return fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
}

func clickTextScript(selector, text string, all bool) string {
	if selector == "" {
		selector = defaultClickables
	}
	return fmt.Sprintf(`(() => {
  const needle = %s;
  let clicked = 0;
  for (const el of document.querySelectorAll(%s)) {
    if (!(el.textContent || "").includes(needle)) continue;
    el.click();
    clicked++;
    if (!%t) break;
  }
  return clicked;
})()`, jsString(text), jsString(selector), all)
}

func clickAriaScript(label string) string {
	return fmt.Sprintf(`(() => {
  const needle = %s.toLowerCase();
  for (const el of document.querySelectorAll('button[aria-label], [role="button"][aria-label], svg[aria-label]')) {
    if (!el.getAttribute("aria-label").toLowerCase().includes(needle)) continue;
    (el.closest("button, [role=button]") || el).click();
    return true;
  }
  return false;
})()`, jsString(label))
}

func scrollByScript(container string, px int) string {
	if container == "" {
		return fmt.Sprintf(`(() => { window.scrollBy(0, %d); return true; })()`, px)
	}
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return false;
  el.scrollTop += %d;
  return true;
})()`, jsString(container), px)
}

func scrollHeightScript(container string) string {
	if container == "" {
		return `Math.max(document.body ? document.body.scrollHeight : 0, document.documentElement.scrollHeight)`
	}
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  return el ? el.scrollHeight : 0;
})()`, jsString(container))
}
