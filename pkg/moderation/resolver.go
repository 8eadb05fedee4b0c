package moderation

import (
	"context"
	"fmt"
	"strings"
)

// ResolveCollection finds the moderated collection owning id. Collections are
// probed in ContentCollections order, so an id present in both resolves to
// events.
func (s *service) ResolveCollection(ctx context.Context, id string) (Collection, error) {
	if strings.TrimSpace(id) == "" {
		return "", &ValidationError{Field: "contentId", Message: "is required"}
	}
	c, _, err := s.resolve(ctx, id)
	if err != nil {
		return "", &ContentError{ContentID: id, Op: "resolve", Err: err}
	}
	return c, nil
}

func (s *service) resolve(ctx context.Context, id string) (Collection, Record, error) {
	for _, c := range ContentCollections {
		rec, err := s.store.GetOne(ctx, c, id)
		if err != nil {
			return "", nil, storeFailure(c, "get", err)
		}
		if rec != nil {
			return c, rec, nil
		}
	}
	return "", nil, notFound(id)
}

// loadItem reads an item, resolving its collection when none is given.
func (s *service) loadItem(ctx context.Context, id string, collection Collection) (*ContentItem, error) {
	var rec Record
	if collection == "" {
		c, r, err := s.resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		collection, rec = c, r
	} else {
		if !IsContentCollection(collection) {
			return nil, invalidCollection(collection)
		}
		r, err := s.store.GetOne(ctx, collection, id)
		if err != nil {
			return nil, storeFailure(collection, "get", err)
		}
		if r == nil {
			return nil, fmt.Errorf("%w: content %s not found in %s", ErrContentNotFound, id, collection)
		}
		rec = r
	}

	item, err := DecodeContentItem(collection, rec)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %v", collection, id, err)
	}
	return item, nil
}
