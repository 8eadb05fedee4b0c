package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	store            Store
	eventSink        EventSink
	snapshots        SnapshotStore
	logger           *slog.Logger
	metrics          *Metrics
	renderer         *Renderer
	audit            *AuditLogger
	now              func() time.Time
	newID            func() string
	batchConcurrency int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithStore sets the store for the service
func WithStore(store Store) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithSnapshotStore enables writing a JSON snapshot of every published row
func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *service) {
		s.snapshots = store
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithMetrics sets the Prometheus collectors
func WithMetrics(m *Metrics) Option {
	return func(s *service) {
		s.metrics = m
	}
}

// WithClock overrides time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithIDGenerator overrides the id generator (uuid v4 by default)
func WithIDGenerator(newID func() string) Option {
	return func(s *service) {
		s.newID = newID
	}
}

// WithBatchConcurrency lets BatchAction process up to n ids at a time.
// Results keep input order. n <= 1 means sequential.
func WithBatchConcurrency(n int) Option {
	return func(s *service) {
		s.batchConcurrency = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink:        NewNoopEventSink(),
		logger:           slog.Default(),
		renderer:         NewRenderer(),
		now:              func() time.Time { return time.Now().UTC() },
		newID:            func() string { return uuid.New().String() },
		batchConcurrency: 1,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	s.audit = NewAuditLogger(s.store, s.logger, s.metrics)

	return s, nil
}

// Intake

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*ContentItem, error) {
	if !IsContentCollection(req.Collection) {
		return nil, invalidCollection(req.Collection)
	}
	title := s.renderer.SanitizeText(req.Title)
	if title == "" {
		return nil, &ValidationError{Field: colTitle, Message: "is required"}
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, &ValidationError{Field: bodyColumn(req.Collection), Message: "is required"}
	}
	priority := PriorityMedium
	if req.Priority != "" {
		p, err := ParsePriority(string(req.Priority))
		if err != nil {
			return nil, err
		}
		priority = p
	}

	now := s.now()
	item := &ContentItem{
		ID:         s.newID(),
		Collection: req.Collection,
		Title:      title,
		Body:       body,
		SourceURL:  strings.TrimSpace(req.SourceURL),
		Source:     DefaultSubmissionSource,
		Status:     StatusPending,
		Priority:   priority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	switch req.Collection {
	case CollectionEvents:
		if req.EventDate == nil || req.EventDate.IsZero() {
			return nil, &ValidationError{Field: colEventDate, Message: "is required"}
		}
		item.Variant = &EventDetails{
			EventDate: req.EventDate.UTC(),
			Location:  strings.TrimSpace(req.Location),
			Organizer: strings.TrimSpace(req.Organizer),
		}
	case CollectionArticles:
		item.Variant = &ArticleDetails{Author: strings.TrimSpace(req.Author)}
	}

	if _, err := s.store.Insert(ctx, item.Collection, EncodeContentItem(item)); err != nil {
		return nil, &ContentError{
			ContentID:  item.ID,
			Collection: item.Collection,
			Op:         "submit",
			Err:        storeFailure(item.Collection, "insert", err),
		}
	}

	s.logger.Info("content submitted", "content_id", item.ID, "collection", item.Collection)
	return item, nil
}

func (s *service) GetContent(ctx context.Context, id string, collection Collection) (*ContentItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "contentId", Message: "is required"}
	}
	item, err := s.loadItem(ctx, id, collection)
	if err != nil {
		return nil, &ContentError{ContentID: id, Collection: collection, Op: "get", Err: err}
	}
	return item, nil
}

// Side channels

func (s *service) notifyModerated(ctx context.Context, entry *ModerationLogEntry) {
	if err := s.eventSink.ContentModerated(ctx, entry); err != nil {
		s.logger.Warn("event sink rejected moderation event",
			"content_id", entry.ContentID, "action", entry.Action, "err", err)
		s.metrics.sideEffectFailed(SideEffectEventSink)
	}
}

func (s *service) notifyPublished(ctx context.Context, p *PublishedContent) {
	if err := s.eventSink.ContentPublished(ctx, p); err != nil {
		s.logger.Warn("event sink rejected publication event",
			"published_id", p.ID, "original_id", p.OriginalID, "err", err)
		s.metrics.sideEffectFailed(SideEffectEventSink)
	}
}

func (s *service) writeSnapshot(ctx context.Context, p *PublishedContent) {
	if s.snapshots == nil {
		return
	}
	body, err := json.Marshal(p)
	if err == nil {
		err = s.snapshots.PutSnapshot(ctx, SnapshotKey(p), body)
	}
	if err != nil {
		s.logger.Warn("failed to write publication snapshot", "published_id", p.ID, "err", err)
		s.metrics.sideEffectFailed(SideEffectSnapshot)
	}
}

// SnapshotKey is the object key of a published row's snapshot.
func SnapshotKey(p *PublishedContent) string {
	return fmt.Sprintf("%s/%s.json", p.Collection, p.ID)
}

func storeFailure(collection Collection, op string, err error) error {
	return &StoreError{Collection: collection, Op: op, Err: err}
}

func invalidCollection(c Collection) error {
	return fmt.Errorf("%w: %w %q", ErrInvalidInput, ErrInvalidCollection, c)
}

// contentCollections expands an optional collection filter.
func contentCollections(c Collection) ([]Collection, error) {
	if c == "" {
		return ContentCollections, nil
	}
	if !IsContentCollection(c) {
		return nil, invalidCollection(c)
	}
	return []Collection{c}, nil
}
