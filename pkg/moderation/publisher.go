package moderation

import (
	"context"
	"fmt"
)

// PublicationCollection maps a moderated collection to its published
// collection. Unknown collections fall back to published_articles.
func PublicationCollection(c Collection) Collection {
	switch c {
	case CollectionEvents:
		return CollectionPublishedEvents
	case CollectionArticles:
		return CollectionPublishedNews
	default:
		return CollectionPublishedArticles
	}
}

// publish copies an approved item into its published collection, then
// records provenance and marks the original published. Only the insert of
// the published row can fail the call.
func (s *service) publish(ctx context.Context, item *ContentItem) (*PublishedContent, error) {
	target := PublicationCollection(item.Collection)
	now := s.now()

	source := item.Source
	if source == "" {
		source = DefaultPublicationSource
	}
	p := &PublishedContent{
		ID:                 s.newID(),
		Collection:         target,
		Title:              item.Title,
		Content:            item.Body,
		ContentHTML:        s.renderer.RenderHTML(item.Body),
		Author:             item.Author(),
		PublishedAt:        now,
		Status:             PublicationPublished,
		Source:             source,
		ApprovedBy:         item.ApprovedBy,
		OriginalID:         item.ID,
		OriginalCollection: item.Collection,
		Metadata: PublicationMetadata{
			OriginalTable: item.Collection,
			Priority:      item.Priority,
			ApprovedAt:    item.ApprovedAt,
		},
	}
	if ev, ok := item.Event(); ok {
		if !ev.EventDate.IsZero() {
			date := ev.EventDate
			p.EventDate = &date
		}
		p.Location = ev.Location
	}

	if _, err := s.store.Insert(ctx, target, EncodePublishedContent(p)); err != nil {
		return nil, fmt.Errorf("%w: insert into %s: %w", ErrPublicationFailed, target, storeFailure(target, "insert", err))
	}

	s.audit.LogPublication(ctx, &PublicationLogEntry{
		ID:                  s.newID(),
		PublishedID:         p.ID,
		PublishedCollection: target,
		OriginalID:          item.ID,
		OriginalCollection:  item.Collection,
		ApprovedBy:          item.ApprovedBy,
		PublishedAt:         now,
	})
	s.writeSnapshot(ctx, p)

	// The published row exists from here on; a failed status write leaves
	// the original approved and is only reported.
	if err := s.update(ctx, item.Collection, item.ID, Record{
		colStatus:    string(StatusPublished),
		colUpdatedAt: now,
	}); err != nil {
		s.logger.Error("failed to mark original as published",
			"content_id", item.ID, "collection", item.Collection, "published_id", p.ID, "err", err)
		s.metrics.sideEffectFailed(SideEffectMarkPublished)
	} else {
		item.Status = StatusPublished
		item.UpdatedAt = now
	}

	s.notifyPublished(ctx, p)
	s.logger.Info("content published",
		"content_id", item.ID, "published_id", p.ID, "published_collection", target)
	return p, nil
}
