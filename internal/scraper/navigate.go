package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Navigator drives a session to a target URL. It never retries.
type Navigator struct {
	timeout time.Duration
	settle  time.Duration
	prober  Prober
	sleep   sleepFunc
	logger  *zap.Logger
}

func newNavigator(timeout, settle time.Duration, prober Prober, sleep sleepFunc, logger *zap.Logger) *Navigator {
	return &Navigator{timeout: timeout, settle: settle, prober: prober, sleep: sleep, logger: logger}
}

// Navigate loads target within timeout (the default applies when timeout is zero) and then
// waits the settle delay for client-side rendering.
func (n *Navigator) Navigate(ctx context.Context, s Session, target string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = n.timeout
	}
	if n.prober != nil {
		if err := n.prober.Probe(ctx, target); err != nil {
			return NavigationError(target, err)
		}
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	if err := s.Navigate(navCtx, target); err != nil {
		return NavigationError(target, err)
	}
	n.logger.Debug("page loaded",
		zap.String("url", target),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err := n.sleep(ctx, n.settle); err != nil {
		return NavigationError(target, err)
	}
	return nil
}
