package moderation

import (
	"context"
	"errors"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ContentModerated does nothing and returns nil
func (n *NoopEventSink) ContentModerated(ctx context.Context, entry *ModerationLogEntry) error {
	return nil
}

// ContentPublished does nothing and returns nil
func (n *NoopEventSink) ContentPublished(ctx context.Context, published *PublishedContent) error {
	return nil
}

// MultiEventSink fans notifications out to several sinks. Every sink is
// called; the errors are joined.
type MultiEventSink []EventSink

// NewMultiEventSink drops nil sinks and returns a sink calling the rest in order.
func NewMultiEventSink(sinks ...EventSink) EventSink {
	multi := make(MultiEventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			multi = append(multi, s)
		}
	}
	if len(multi) == 0 {
		return NewNoopEventSink()
	}
	if len(multi) == 1 {
		return multi[0]
	}
	return multi
}

func (m MultiEventSink) ContentModerated(ctx context.Context, entry *ModerationLogEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.ContentModerated(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) ContentPublished(ctx context.Context, published *PublishedContent) error {
	var errs []error
	for _, s := range m {
		if err := s.ContentPublished(ctx, published); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
