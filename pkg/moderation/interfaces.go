package moderation

import (
	"context"
	"fmt"
)

// Record is a loosely typed row as exchanged with a Store. Keys are column
// names; a nil value clears the column on Update.
type Record map[string]any

// Operator is a filter comparison.
type Operator string

const (
	OpEq Operator = "eq"
	OpIn Operator = "in"
)

// Condition restricts a query to rows whose Field matches Value. For OpIn,
// Value holds a []any.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Filter is a conjunction of conditions.
type Filter []Condition

// Eq matches rows where field equals v.
func Eq(field string, v any) Condition {
	return Condition{Field: field, Op: OpEq, Value: normalize(v)}
}

// In matches rows where field equals any of vs.
func In(field string, vs ...any) Condition {
	values := make([]any, len(vs))
	for i, v := range vs {
		values[i] = normalize(v)
	}
	return Condition{Field: field, Op: OpIn, Value: values}
}

// Match reports whether rec satisfies every condition. Stores without a
// query language (memory) use it directly.
func (f Filter) Match(rec Record) bool {
	for _, c := range f {
		got, ok := rec[c.Field]
		if !ok || got == nil {
			return false
		}
		switch c.Op {
		case OpEq:
			if !sameValue(got, c.Value) {
				return false
			}
		case OpIn:
			values, _ := c.Value.([]any)
			found := false
			for _, v := range values {
				if sameValue(got, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	return fmt.Sprint(normalize(a)) == fmt.Sprint(normalize(b))
}

// normalize strips the domain string types so stores only see plain values.
func normalize(v any) any {
	switch t := v.(type) {
	case Collection:
		return string(t)
	case ContentStatus:
		return string(t)
	case Priority:
		return string(t)
	case PublicationStatus:
		return string(t)
	case LogAction:
		return string(t)
	}
	return v
}

// QueryOptions controls ordering and size of a Query.
type QueryOptions struct {
	OrderBy string
	Desc    bool
	Limit   int // 0 means unlimited
}

// Store is the generic tabular capability the service runs on. A missing row
// is not an error: GetOne and Update return (nil, nil).
type Store interface {
	GetOne(ctx context.Context, collection Collection, id string) (Record, error)
	Insert(ctx context.Context, collection Collection, rec Record) (Record, error)
	Update(ctx context.Context, collection Collection, id string, patch Record) (Record, error)
	Query(ctx context.Context, collection Collection, filter Filter, opts QueryOptions) ([]Record, error)
	Count(ctx context.Context, collection Collection, filter Filter) (int, error)
}

// EventSink receives notifications after moderation and publication.
type EventSink interface {
	// ContentModerated is fired after an approve, reject or edit succeeds
	ContentModerated(ctx context.Context, entry *ModerationLogEntry) error

	// ContentPublished is fired after a published row is written
	ContentPublished(ctx context.Context, published *PublishedContent) error
}

// SnapshotStore persists a rendered copy of published rows, e.g. for a
// static public site.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, key string, body []byte) error
}
