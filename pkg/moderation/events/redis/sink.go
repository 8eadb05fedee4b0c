// Package redis publishes moderation events on a Redis pub/sub channel.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tendant/simple-moderation/pkg/moderation"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "moderation.events"

const (
	TypeContentModerated = "content.moderated"
	TypeContentPublished = "content.published"
)

// Publisher is the subset of the go-redis client used by the sink.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// Message is the JSON payload written to the channel.
type Message struct {
	Type       string                         `json:"type"`
	OccurredAt time.Time                      `json:"occurred_at"`
	Moderation *moderation.ModerationLogEntry `json:"moderation,omitempty"`
	Published  *moderation.PublishedContent   `json:"published,omitempty"`
}

// Sink implements moderation.EventSink.
type Sink struct {
	client  Publisher
	channel string
	now     func() time.Time
}

// New creates a sink on an existing client.
func New(client Publisher, channel string) *Sink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Sink{
		client:  client,
		channel: channel,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewFromURL parses a redis:// URL, connects and pings the server.
// The returned client should be closed by the caller.
func NewFromURL(ctx context.Context, url, channel string) (*Sink, *goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, channel), client, nil
}

// ContentModerated publishes a moderation decision.
func (s *Sink) ContentModerated(ctx context.Context, entry *moderation.ModerationLogEntry) error {
	return s.publish(ctx, Message{Type: TypeContentModerated, OccurredAt: s.now(), Moderation: entry})
}

// ContentPublished publishes a new public row.
func (s *Sink) ContentPublished(ctx context.Context, p *moderation.PublishedContent) error {
	return s.publish(ctx, Message{Type: TypeContentPublished, OccurredAt: s.now(), Published: p})
}

func (s *Sink) publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.Type, s.channel, err)
	}
	return nil
}
