// Package memory records published events in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Message is one recorded publish call.
type Message struct {
	Event   string
	Payload any
}

// Retained is how many recent events a Publisher keeps.
const Retained = 1000

// Publisher keeps the most recent events it is given. It is the default when Pub/Sub is
// not configured.
type Publisher struct {
	mu       sync.RWMutex
	messages []Message
	total    int
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns a sequential pseudo ID.
func (p *Publisher) Publish(_ context.Context, event string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total++
	p.messages = append(p.messages, Message{Event: event, Payload: payload})
	if len(p.messages) > Retained {
		p.messages = append([]Message(nil), p.messages[len(p.messages)-Retained:]...)
	}
	return fmt.Sprintf("memory-%d", p.total), nil
}

// Messages returns a copy of the retained events, oldest first.
func (p *Publisher) Messages() []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}
