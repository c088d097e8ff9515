// Package ratelimit throttles API clients with per-key token buckets.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/social-comment-harvester/internal/metrics"
)

// Config holds rate limiter configuration.
type Config struct {
	// RPS is the sustained rate per key; <= 0 disables limiting.
	RPS   float64
	Burst int
	// IdleTTL is how long an unused key keeps its bucket.
	IdleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages one token bucket per key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    r,
		burst:   burst,
		idleTTL: ttl,
		now:     time.Now,
	}
}

func (l *Limiter) bucketFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		l.pruneLocked(now)
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// pruneLocked drops buckets idle longer than the TTL. Callers hold l.mu.
func (l *Limiter) pruneLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, k)
		}
	}
}

// Allow reports whether key may proceed now, consuming a token when it may.
func (l *Limiter) Allow(key string) bool {
	return l.bucketFor(key).AllowN(l.now(), 1)
}

// Wait blocks until key has a token or ctx ends.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if err := l.bucketFor(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Len reports how many keys currently hold a bucket.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// ClientIP keys requests by remote address without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit with rejected, which must write a 429.
func Middleware(l *Limiter, key func(*http.Request) string, rejected http.HandlerFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(key(r)) {
				metrics.ObserveRateLimited(r.URL.Path)
				w.Header().Set("Retry-After", "1")
				rejected(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
