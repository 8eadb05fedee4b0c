package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tendant/simple-moderation/pkg/moderation"
)

// Store implements moderation.Store using in-memory maps. Rows are copied on
// the way in and out.
type Store struct {
	mu     sync.RWMutex
	tables map[moderation.Collection]*table
}

type table struct {
	rows  map[string]moderation.Record
	order []string // insertion order, for stable queries
}

// New creates a new in-memory store
func New() *Store {
	return &Store{tables: make(map[moderation.Collection]*table)}
}

func (s *Store) table(c moderation.Collection) *table {
	t, ok := s.tables[c]
	if !ok {
		t = &table{rows: make(map[string]moderation.Record)}
		s.tables[c] = t
	}
	return t
}

func (s *Store) GetOne(ctx context.Context, c moderation.Collection, id string) (moderation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[c]
	if !ok {
		return nil, nil
	}
	rec, ok := t.rows[id]
	if !ok {
		return nil, nil
	}
	return clone(rec), nil
}

func (s *Store) Insert(ctx context.Context, c moderation.Collection, rec moderation.Record) (moderation.Record, error) {
	id, _ := rec["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("insert into %s: record has no id", c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(c)
	if _, exists := t.rows[id]; exists {
		return nil, fmt.Errorf("insert into %s: duplicate id %s", c, id)
	}
	t.rows[id] = clone(rec)
	t.order = append(t.order, id)
	return clone(rec), nil
}

func (s *Store) Update(ctx context.Context, c moderation.Collection, id string, patch moderation.Record) (moderation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[c]
	if !ok {
		return nil, nil
	}
	rec, ok := t.rows[id]
	if !ok {
		return nil, nil
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		if v == nil {
			delete(rec, k)
			continue
		}
		rec[k] = cloneValue(v)
	}
	return clone(rec), nil
}

func (s *Store) Query(ctx context.Context, c moderation.Collection, filter moderation.Filter, opts moderation.QueryOptions) ([]moderation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[c]
	if !ok {
		return []moderation.Record{}, nil
	}
	out := make([]moderation.Record, 0, len(t.order))
	for _, id := range t.order {
		rec := t.rows[id]
		if filter.Match(rec) {
			out = append(out, clone(rec))
		}
	}

	if opts.OrderBy != "" {
		slices.SortStableFunc(out, func(a, b moderation.Record) int {
			n := compareValues(a[opts.OrderBy], b[opts.OrderBy])
			if opts.Desc {
				return -n
			}
			return n
		})
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, c moderation.Collection, filter moderation.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[c]
	if !ok {
		return 0, nil
	}
	n := 0
	for _, rec := range t.rows {
		if filter.Match(rec) {
			n++
		}
	}
	return n, nil
}

// compareValues orders missing values first, then times, then text.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func clone(rec moderation.Record) moderation.Record {
	out := make(moderation.Record, len(rec))
	for k, v := range rec {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		return maps.Clone(m)
	}
	return v
}

var _ moderation.Store = (*Store)(nil)
