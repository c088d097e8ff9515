// Package probe checks that a scrape target answers before a browser is spent on it.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/social-comment-harvester/internal/metrics"
)

// ErrNotFound reports a target that answered 404 or 410.
var ErrNotFound = errors.New("target not found")

// Config controls probe requests.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodySize caps how much of the body is read; the probe only needs the status.
	MaxBodySize int
}

// Prober issues a single GET through colly and classifies the outcome.
type Prober struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type outcome struct {
	status int
	err    error
}

// New builds a Prober.
func New(cfg Config) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 64 * 1024
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	transport := &retryTransport{base: newHTTPTransport()}
	c.WithTransport(transport)
	return &Prober{cfg: cfg, transport: transport, baseCollector: c}
}

// Probe returns nil when the target answered with anything other than 404/410 (platforms
// routinely answer bots with 403 or 429 while the browser still gets through). DNS and
// connection failures are returned as errors.
func (p *Prober) Probe(ctx context.Context, target string) error {
	collector := p.buildCollector()
	var out outcome
	p.configureHooks(collector, &out)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()
	var visitErr error
	select {
	case <-ctx.Done():
		metrics.ObserveProbe("canceled")
		return fmt.Errorf("probe canceled: %w", ctx.Err())
	case visitErr = <-done:
	}
	return classify(out, visitErr)
}

func (p *Prober) buildCollector() *colly.Collector {
	collector := p.baseCollector.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.MaxBodySize = p.cfg.MaxBodySize
	collector.SetRequestTimeout(p.cfg.Timeout)
	collector.WithTransport(p.transport)
	return collector
}

func (p *Prober) configureHooks(hooks collectorHooks, out *outcome) {
	hooks.OnResponse(func(r *colly.Response) {
		out.status = r.StatusCode
	})
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			out.status = r.StatusCode
		}
		out.err = err
	})
}

func classify(out outcome, visitErr error) error {
	switch {
	case out.status == http.StatusNotFound || out.status == http.StatusGone:
		metrics.ObserveProbe("not_found")
		return fmt.Errorf("%w: status %d", ErrNotFound, out.status)
	case out.status > 0:
		metrics.ObserveProbe("reachable")
		return nil
	case errors.Is(visitErr, errIndeterminate) || errors.Is(out.err, errIndeterminate):
		metrics.ObserveProbe("indeterminate")
		return nil
	case visitErr != nil:
		metrics.ObserveProbe("unreachable")
		return fmt.Errorf("probe visit failed: %w", visitErr)
	case out.err != nil:
		metrics.ObserveProbe("unreachable")
		return fmt.Errorf("probe response failed: %w", out.err)
	default:
		metrics.ObserveProbe("reachable")
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
