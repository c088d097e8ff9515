package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// errIndeterminate marks a target whose TLS handshake kept timing out. The probe lets the
// browser decide in that case.
var errIndeterminate = errors.New("probe indeterminate: tls handshake timeout")

var retryBackoff = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// retryTransport retries transient TLS handshake timeouts.
type retryTransport struct {
	base  http.RoundTripper
	sleep func(context.Context, time.Duration) error
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("probe transport received nil request")
	}
	sleep := t.sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	maxAttempts := len(retryBackoff) + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := t.base.RoundTrip(cloneRequest(req))
		if err == nil {
			return resp, nil
		}
		if !isTransientTLSError(err) {
			return nil, fmt.Errorf("probe roundtrip: %w", err)
		}
		if attempt == maxAttempts-1 {
			return nil, fmt.Errorf("%w: %w", errIndeterminate, err)
		}
		if err := sleep(req.Context(), retryBackoff[attempt]); err != nil {
			return nil, fmt.Errorf("probe backoff sleep: %w", err)
		}
	}
	return nil, errors.New("probe roundtrip exhausted retries")
}

func cloneRequest(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	clone.Body = req.Body
	return clone
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("probe backoff sleep context: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isTransientTLSError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "tls: handshake timeout")
}
