package moderation

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

const publishedListLimit = 50

func (s *service) GetModerationQueue(ctx context.Context, collection Collection) ([]*ContentItem, error) {
	collections, err := contentCollections(collection)
	if err != nil {
		return nil, err
	}

	var items []*ContentItem
	for _, c := range collections {
		recs, err := s.store.Query(ctx, c,
			Filter{In(colStatus, StatusPending, StatusRejected)},
			QueryOptions{OrderBy: colCreatedAt, Desc: true})
		if err != nil {
			s.logger.Error("failed to fetch moderation queue", "collection", c, "err", err)
			continue
		}
		for _, rec := range recs {
			item, err := DecodeContentItem(c, rec)
			if err != nil {
				s.logger.Warn("skipping malformed queue row", "collection", c, "err", err)
				continue
			}
			items = append(items, item)
		}
	}

	// Missing created_at is the zero time and sorts last.
	slices.SortStableFunc(items, func(a, b *ContentItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return items, nil
}

// GetPendingCount sums pending items. A collection whose count fails is
// logged and contributes 0.
func (s *service) GetPendingCount(ctx context.Context, collection Collection) (int, error) {
	collections, err := contentCollections(collection)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, c := range collections {
		n, err := s.store.Count(ctx, c, Filter{Eq(colStatus, StatusPending)})
		if err != nil {
			s.logger.Error("failed to count pending items", "collection", c, "err", err)
			continue
		}
		total += n
	}
	return total, nil
}

// GetPublishedContent lists up to 50 published rows per selected collection,
// newest first.
func (s *service) GetPublishedContent(ctx context.Context, kind PublishedKind) ([]*PublishedContent, error) {
	collections, err := kind.Collections()
	if err != nil {
		return nil, err
	}

	var out []*PublishedContent
	for _, c := range collections {
		recs, err := s.store.Query(ctx, c,
			Filter{Eq(colStatus, PublicationPublished)},
			QueryOptions{OrderBy: colPublishedAt, Desc: true, Limit: publishedListLimit})
		if err != nil {
			s.logger.Error("failed to fetch published content", "collection", c, "err", err)
			continue
		}
		for _, rec := range recs {
			p, err := DecodePublishedContent(c, rec)
			if err != nil {
				s.logger.Warn("skipping malformed published row", "collection", c, "err", err)
				continue
			}
			out = append(out, p)
		}
	}

	slices.SortStableFunc(out, func(a, b *PublishedContent) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	return out, nil
}

// UpdatePublicationStatus changes the archival status of a published row in
// whichever published collection holds it.
func (s *service) UpdatePublicationStatus(ctx context.Context, publishedID string, status PublicationStatus) (*PublishedContent, error) {
	if strings.TrimSpace(publishedID) == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}
	if _, err := ParsePublicationStatus(string(status)); err != nil {
		return nil, err
	}

	patch := Record{colStatus: string(status), colUpdatedAt: s.now()}
	var lastErr error
	for _, c := range PublishedCollections {
		rec, err := s.store.Update(ctx, c, publishedID, patch)
		if err != nil {
			s.logger.Error("failed to update publication status", "collection", c, "published_id", publishedID, "err", err)
			lastErr = storeFailure(c, "update", err)
			continue
		}
		if rec == nil {
			continue
		}
		p, err := DecodePublishedContent(c, rec)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %v", c, publishedID, err)
		}
		s.logger.Info("publication status updated", "published_id", publishedID, "status", status)
		return p, nil
	}

	if lastErr != nil {
		return nil, &ContentError{ContentID: publishedID, Op: "update publication status", Err: lastErr}
	}
	return nil, &ContentError{ContentID: publishedID, Op: "update publication status",
		Err: fmt.Errorf("%w: published content %s", ErrContentNotFound, publishedID)}
}
