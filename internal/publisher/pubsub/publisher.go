// Package pubsub publishes analysis events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// EventAttribute carries the event name on every message.
const EventAttribute = "event"

// Publisher publishes JSON payloads to one topic.
type Publisher struct {
	topic *pubsub.Topic
}

// New wraps topic.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Open creates a client for projectID and returns a Publisher for topicID along with the
// client, which the caller must close.
func Open(ctx context.Context, projectID, topicID string) (*Publisher, *pubsub.Client, error) {
	if projectID == "" || topicID == "" {
		return nil, nil, errors.New("pubsub project id and topic name are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return New(client.Topic(topicID)), client, nil
}

// Publish marshals payload to JSON, tags it with event, and waits for the server ID.
func (p *Publisher) Publish(ctx context.Context, event string, payload any) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{EventAttribute: event},
	}
	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *Publisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}
