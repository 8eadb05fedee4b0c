package moderation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-moderation/pkg/moderation"
	"github.com/tendant/simple-moderation/pkg/moderation/repo/memory"
	snapshotmemory "github.com/tendant/simple-moderation/pkg/moderation/snapshot/memory"
)

var errInjected = errors.New("injected failure")

// faultStore wraps the memory store and fails selected calls.
type faultStore struct {
	*memory.Store

	mu           sync.Mutex
	failGet      map[moderation.Collection]bool
	failInsert   map[moderation.Collection]bool
	failQuery    map[moderation.Collection]bool
	failCount    map[moderation.Collection]bool
	failUpdateIf func(c moderation.Collection, patch moderation.Record) bool
}

func newFaultStore() *faultStore {
	return &faultStore{
		Store:      memory.New(),
		failGet:    map[moderation.Collection]bool{},
		failInsert: map[moderation.Collection]bool{},
		failQuery:  map[moderation.Collection]bool{},
		failCount:  map[moderation.Collection]bool{},
	}
}

func (f *faultStore) set(m map[moderation.Collection]bool, c moderation.Collection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m[c] = true
}

func (f *faultStore) has(m map[moderation.Collection]bool, c moderation.Collection) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return m[c]
}

func (f *faultStore) GetOne(ctx context.Context, c moderation.Collection, id string) (moderation.Record, error) {
	if f.has(f.failGet, c) {
		return nil, errInjected
	}
	return f.Store.GetOne(ctx, c, id)
}

func (f *faultStore) Insert(ctx context.Context, c moderation.Collection, rec moderation.Record) (moderation.Record, error) {
	if f.has(f.failInsert, c) {
		return nil, errInjected
	}
	return f.Store.Insert(ctx, c, rec)
}

func (f *faultStore) Update(ctx context.Context, c moderation.Collection, id string, patch moderation.Record) (moderation.Record, error) {
	f.mu.Lock()
	pred := f.failUpdateIf
	f.mu.Unlock()
	if pred != nil && pred(c, patch) {
		return nil, errInjected
	}
	return f.Store.Update(ctx, c, id, patch)
}

func (f *faultStore) Query(ctx context.Context, c moderation.Collection, filter moderation.Filter, opts moderation.QueryOptions) ([]moderation.Record, error) {
	if f.has(f.failQuery, c) {
		return nil, errInjected
	}
	return f.Store.Query(ctx, c, filter, opts)
}

func (f *faultStore) Count(ctx context.Context, c moderation.Collection, filter moderation.Filter) (int, error) {
	if f.has(f.failCount, c) {
		return 0, errInjected
	}
	return f.Store.Count(ctx, c, filter)
}

// recordingSink remembers every notification.
type recordingSink struct {
	mu        sync.Mutex
	moderated []*moderation.ModerationLogEntry
	published []*moderation.PublishedContent
	err       error
}

func (r *recordingSink) ContentModerated(ctx context.Context, e *moderation.ModerationLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moderated = append(r.moderated, e)
	return r.err
}

func (r *recordingSink) ContentPublished(ctx context.Context, p *moderation.PublishedContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, p)
	return r.err
}

// stepClock returns a clock advancing one minute per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Minute)
		return t
	}
}

type fixture struct {
	svc       moderation.Service
	store     *faultStore
	sink      *recordingSink
	snapshots *snapshotmemory.Store
	metrics   *moderation.Metrics
}

func newFixture(t *testing.T, opts ...moderation.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:     newFaultStore(),
		sink:      &recordingSink{},
		snapshots: snapshotmemory.New(),
		metrics:   moderation.NewMetrics(prometheus.NewRegistry()),
	}
	base := []moderation.Option{
		moderation.WithStore(f.store),
		moderation.WithEventSink(f.sink),
		moderation.WithSnapshotStore(f.snapshots),
		moderation.WithMetrics(f.metrics),
		moderation.WithClock(stepClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))),
	}
	svc, err := moderation.New(append(base, opts...)...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

var blockPartyDate = time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC)

func (f *fixture) submitEvent(t *testing.T, title string) *moderation.ContentItem {
	t.Helper()
	date := blockPartyDate
	item, err := f.svc.Submit(context.Background(), moderation.SubmitRequest{
		Collection: moderation.CollectionEvents,
		Title:      title,
		Body:       "Live music on **Elm Street**",
		EventDate:  &date,
		Location:   "Elm Street",
		Organizer:  "Neighbourhood Association",
		Priority:   moderation.PriorityHigh,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) submitArticle(t *testing.T, title string) *moderation.ContentItem {
	t.Helper()
	item, err := f.svc.Submit(context.Background(), moderation.SubmitRequest{
		Collection: moderation.CollectionArticles,
		Title:      title,
		Body:       "The council voted on the new park.",
		Author:     "Jamie Reporter",
	})
	require.NoError(t, err)
	return item
}

// seed inserts a raw row, bypassing Submit.
func (f *fixture) seed(t *testing.T, c moderation.Collection, item *moderation.ContentItem) {
	t.Helper()
	item.Collection = c
	_, err := f.store.Store.Insert(context.Background(), c, moderation.EncodeContentItem(item))
	require.NoError(t, err)
}
