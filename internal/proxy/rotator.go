// Package proxy hands out outbound proxies for browser sessions.
package proxy

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Rotator cycles through a fixed proxy list in order.
type Rotator struct {
	mu      sync.Mutex
	proxies []string
	next    int
}

// NewRotator validates the list and returns a Rotator. Blank entries are skipped.
func NewRotator(proxies []string) (*Rotator, error) {
	cleaned := make([]string, 0, len(proxies))
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		u, err := url.Parse(p)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", p)
		}
		cleaned = append(cleaned, p)
	}
	return &Rotator{proxies: cleaned}, nil
}

// Next returns the next proxy, or "" when the list is empty (direct connection).
func (r *Rotator) Next() string {
	if r == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.proxies) == 0 {
		return ""
	}
	p := r.proxies[r.next]
	r.next = (r.next + 1) % len(r.proxies)
	return p
}

// Len reports how many proxies are configured.
func (r *Rotator) Len() int {
	if r == nil {
		return 0
	}
	return len(r.proxies)
}
