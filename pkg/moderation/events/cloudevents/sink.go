// Package cloudevents delivers moderation events as CloudEvents over HTTP.
package cloudevents

import (
	"context"
	"errors"
	"fmt"
	"time"

	ce "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/tendant/simple-moderation/pkg/moderation"
)

// DefaultSource is the ce-source attribute when none is configured.
const DefaultSource = "simple-moderation"

const typePrefix = "com.simple-moderation.content."

// Sender is the subset of the CloudEvents client used by the sink.
type Sender interface {
	Send(ctx context.Context, event ce.Event) ce.Result
}

// Sink implements moderation.EventSink.
type Sink struct {
	client Sender
	source string
}

// New creates a sink with an existing client.
func New(client Sender, source string) *Sink {
	if source == "" {
		source = DefaultSource
	}
	return &Sink{client: client, source: source}
}

// NewHTTP creates a sink posting structured events to target.
func NewHTTP(target, source string) (*Sink, error) {
	if target == "" {
		return nil, errors.New("cloudevents target is required")
	}
	client, err := ce.NewClientHTTP(ce.WithTarget(target))
	if err != nil {
		return nil, fmt.Errorf("create cloudevents client: %w", err)
	}
	return New(client, source), nil
}

// EventType returns the ce-type for a moderation action, e.g.
// com.simple-moderation.content.approved.
func EventType(action string) string {
	return typePrefix + action
}

// ContentModerated sends one event per moderation decision.
func (s *Sink) ContentModerated(ctx context.Context, entry *moderation.ModerationLogEntry) error {
	return s.send(ctx, EventType(string(entry.Action)), entry.ContentID, entry.Timestamp, entry)
}

// ContentPublished sends the published row.
func (s *Sink) ContentPublished(ctx context.Context, p *moderation.PublishedContent) error {
	return s.send(ctx, EventType("published"), p.OriginalID, p.PublishedAt, p)
}

func (s *Sink) send(ctx context.Context, eventType, subject string, at time.Time, data any) error {
	event := ce.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(s.source)
	event.SetType(eventType)
	event.SetSubject(subject)
	if at.IsZero() {
		at = time.Now().UTC()
	}
	event.SetTime(at)
	if err := event.SetData(ce.ApplicationJSON, data); err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	if result := s.client.Send(ctx, event); !ce.IsACK(result) {
		return fmt.Errorf("deliver %s for %s: %w", eventType, subject, result)
	}
	return nil
}
