// Package storetest holds a conformance suite every moderation.Store
// implementation is expected to pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-moderation/pkg/moderation"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) moderation.Store

var base = time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC)

func article(id, status string, createdAt *time.Time) moderation.Record {
	rec := moderation.Record{
		"id":       id,
		"title":    "Title " + id,
		"content":  "Body of " + id,
		"status":   status,
		"priority": "medium",
		"source":   moderation.DefaultSubmissionSource,
	}
	// Explicit nil keeps column defaults from filling in a timestamp.
	rec["created_at"] = nil
	if createdAt != nil {
		rec["created_at"] = *createdAt
	}
	return rec
}

func at(offset time.Duration) *time.Time {
	t := base.Add(offset)
	return &t
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("GetOneMissingIsNotAnError", func(t *testing.T) {
		store := newStore(t)
		rec, err := store.GetOne(ctx, moderation.CollectionEvents, "missing")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("InsertThenGetOne", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Insert(ctx, moderation.CollectionEvents, moderation.Record{
			"id":          "evt-1",
			"title":       "Block Party",
			"description": "Music and food",
			"event_date":  base,
			"location":    "Main St",
			"status":      "pending",
			"priority":    "high",
			"created_at":  base,
			"updated_at":  base,
		})
		require.NoError(t, err)

		rec, err := store.GetOne(ctx, moderation.CollectionEvents, "evt-1")
		require.NoError(t, err)
		require.NotNil(t, rec)

		item, err := moderation.DecodeContentItem(moderation.CollectionEvents, rec)
		require.NoError(t, err)
		assert.Equal(t, "Block Party", item.Title)
		assert.Equal(t, "Music and food", item.Body)
		assert.Equal(t, moderation.StatusPending, item.Status)
		assert.Equal(t, moderation.PriorityHigh, item.Priority)
		assert.True(t, base.Equal(item.CreatedAt), "created_at round trip: %v", item.CreatedAt)
		ev, ok := item.Event()
		require.True(t, ok)
		assert.True(t, base.Equal(ev.EventDate))
		assert.Equal(t, "Main St", ev.Location)
	})

	t.Run("InsertDuplicateFails", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Insert(ctx, moderation.CollectionArticles, article("a-1", "pending", nil))
		require.NoError(t, err)
		_, err = store.Insert(ctx, moderation.CollectionArticles, article("a-1", "pending", nil))
		assert.Error(t, err)
	})

	t.Run("UpdatePatchesAndClears", func(t *testing.T) {
		store := newStore(t)
		rec := article("a-1", "rejected", nil)
		rec["rejection_reason"] = "spam"
		rec["rejected_by"] = "mod-1"
		_, err := store.Insert(ctx, moderation.CollectionArticles, rec)
		require.NoError(t, err)

		updated, err := store.Update(ctx, moderation.CollectionArticles, "a-1", moderation.Record{
			"status":           "pending",
			"title":            "New title",
			"rejection_reason": nil,
			"rejected_by":      nil,
		})
		require.NoError(t, err)
		require.NotNil(t, updated)

		item, err := moderation.DecodeContentItem(moderation.CollectionArticles, updated)
		require.NoError(t, err)
		assert.Equal(t, moderation.StatusPending, item.Status)
		assert.Equal(t, "New title", item.Title)
		assert.Empty(t, item.RejectionReason)
		assert.Empty(t, item.RejectedBy)
		assert.Equal(t, "Body of a-1", item.Body)
	})

	t.Run("UpdateMissingReturnsNil", func(t *testing.T) {
		store := newStore(t)
		rec, err := store.Update(ctx, moderation.CollectionArticles, "missing", moderation.Record{"status": "approved"})
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("QueryFiltersOrdersAndLimits", func(t *testing.T) {
		store := newStore(t)
		seed := []moderation.Record{
			article("a-old", "pending", at(0)),
			article("a-new", "rejected", at(2*time.Hour)),
			article("a-mid", "pending", at(time.Hour)),
			article("a-approved", "approved", at(3*time.Hour)),
			article("a-undated", "pending", nil),
		}
		for _, rec := range seed {
			_, err := store.Insert(ctx, moderation.CollectionArticles, rec)
			require.NoError(t, err)
		}

		recs, err := store.Query(ctx, moderation.CollectionArticles,
			moderation.Filter{moderation.In("status", moderation.StatusPending, moderation.StatusRejected)},
			moderation.QueryOptions{OrderBy: "created_at", Desc: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"a-new", "a-mid", "a-old", "a-undated"}, ids(recs))

		recs, err = store.Query(ctx, moderation.CollectionArticles,
			moderation.Filter{moderation.Eq("status", moderation.StatusPending)},
			moderation.QueryOptions{OrderBy: "created_at", Desc: true, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"a-mid"}, ids(recs))
	})

	t.Run("QueryEmptyInMatchesNothing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Insert(ctx, moderation.CollectionArticles, article("a-1", "pending", nil))
		require.NoError(t, err)

		recs, err := store.Query(ctx, moderation.CollectionArticles,
			moderation.Filter{moderation.In("status")}, moderation.QueryOptions{})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("Count", func(t *testing.T) {
		store := newStore(t)
		for i, status := range []string{"pending", "pending", "rejected", "pending"} {
			_, err := store.Insert(ctx, moderation.CollectionArticles, article(fmt.Sprintf("a-%d", i), status, nil))
			require.NoError(t, err)
		}
		n, err := store.Count(ctx, moderation.CollectionArticles, moderation.Filter{moderation.Eq("status", "pending")})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = store.Count(ctx, moderation.CollectionEvents, moderation.Filter{moderation.Eq("status", "pending")})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("PublishedRowKeepsMetadata", func(t *testing.T) {
		store := newStore(t)
		approvedAt := base.Add(-time.Minute)
		published := &moderation.PublishedContent{
			ID:                 "pub-1",
			Collection:         moderation.CollectionPublishedEvents,
			Title:              "Block Party",
			Content:            "Music and food",
			PublishedAt:        base,
			Status:             moderation.PublicationPublished,
			Source:             moderation.DefaultPublicationSource,
			ApprovedBy:         "mod-1",
			OriginalID:         "evt-1",
			OriginalCollection: moderation.CollectionEvents,
			EventDate:          &base,
			Location:           "Main St",
			Metadata: moderation.PublicationMetadata{
				OriginalTable: moderation.CollectionEvents,
				Priority:      moderation.PriorityMedium,
				ApprovedAt:    &approvedAt,
			},
		}
		_, err := store.Insert(ctx, moderation.CollectionPublishedEvents, moderation.EncodePublishedContent(published))
		require.NoError(t, err)

		rec, err := store.GetOne(ctx, moderation.CollectionPublishedEvents, "pub-1")
		require.NoError(t, err)
		got, err := moderation.DecodePublishedContent(moderation.CollectionPublishedEvents, rec)
		require.NoError(t, err)
		assert.Equal(t, "evt-1", got.OriginalID)
		assert.Equal(t, moderation.CollectionEvents, got.OriginalCollection)
		assert.Equal(t, moderation.CollectionEvents, got.Metadata.OriginalTable)
		assert.Equal(t, moderation.PriorityMedium, got.Metadata.Priority)
		require.NotNil(t, got.Metadata.ApprovedAt)
		assert.True(t, approvedAt.Equal(*got.Metadata.ApprovedAt))
	})

	t.Run("ModerationLogRoundTrip", func(t *testing.T) {
		store := newStore(t)
		for i, action := range []moderation.LogAction{moderation.LogRejected, moderation.LogEdited} {
			_, err := store.Insert(ctx, moderation.CollectionModerationLog, moderation.EncodeModerationLog(&moderation.ModerationLogEntry{
				ID:          fmt.Sprintf("log-%d", i),
				ContentID:   "a-1",
				Collection:  moderation.CollectionArticles,
				Action:      action,
				ModeratorID: "mod-2",
				Reason:      "spam",
				Timestamp:   base.Add(time.Duration(i) * time.Minute),
			}))
			require.NoError(t, err)
		}

		recs, err := store.Query(ctx, moderation.CollectionModerationLog,
			moderation.Filter{moderation.Eq("content_id", "a-1")},
			moderation.QueryOptions{OrderBy: "timestamp", Desc: true})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		entry, err := moderation.DecodeModerationLog(recs[0])
		require.NoError(t, err)
		assert.Equal(t, moderation.LogEdited, entry.Action)
		assert.Equal(t, "spam", entry.Reason)
	})
}

func ids(recs []moderation.Record) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = fmt.Sprint(rec["id"])
	}
	return out
}
