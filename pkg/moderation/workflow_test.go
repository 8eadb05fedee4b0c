package moderation_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-moderation/pkg/moderation"
)

func TestApprove_Event(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submitEvent(t, "Block Party")

	published, err := f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: item.ID, ModeratorID: "mod-1"})
	require.NoError(t, err)

	assert.Equal(t, moderation.CollectionPublishedEvents, published.Collection)
	assert.Equal(t, "Block Party", published.Title)
	assert.Equal(t, "Live music on **Elm Street**", published.Content)
	assert.Contains(t, published.ContentHTML, "<strong>Elm Street</strong>")
	assert.Equal(t, moderation.PublicationPublished, published.Status)
	assert.Equal(t, moderation.DefaultSubmissionSource, published.Source)
	assert.Equal(t, "mod-1", published.ApprovedBy)
	assert.Equal(t, item.ID, published.OriginalID)
	assert.Equal(t, moderation.CollectionEvents, published.OriginalCollection)
	require.NotNil(t, published.EventDate)
	assert.Equal(t, blockPartyDate, *published.EventDate)
	assert.Equal(t, "Elm Street", published.Location)
	assert.Equal(t, moderation.CollectionEvents, published.Metadata.OriginalTable)
	assert.Equal(t, moderation.PriorityHigh, published.Metadata.Priority)
	require.NotNil(t, published.Metadata.ApprovedAt)

	// original is published and keeps the approval
	original, err := f.svc.GetContent(ctx, item.ID, "")
	require.NoError(t, err)
	assert.Equal(t, moderation.StatusPublished, original.Status)
	assert.Equal(t, "mod-1", original.ApprovedBy)
	require.NotNil(t, original.ApprovedAt)

	// the published row is stored under the mapped collection
	rows, err := f.svc.GetPublishedContent(ctx, moderation.PublishedKindEvents)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, published.ID, rows[0].ID)

	// publication log
	logs, err := f.store.Query(ctx, moderation.CollectionPublicationLog,
		moderation.Filter{moderation.Eq("original_id", item.ID)}, moderation.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, published.ID, logs[0]["published_id"])
	assert.Equal(t, "published_events", logs[0]["published_table"])

	// moderation log
	history, err := f.svc.GetModerationHistory(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, moderation.LogApproved, history[0].Action)
	assert.Equal(t, "mod-1", history[0].ModeratorID)

	// snapshot and notifications
	raw, ok := f.snapshots.Get(moderation.SnapshotKey(published))
	require.True(t, ok)
	var snap moderation.PublishedContent
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, published.ID, snap.ID)

	require.Len(t, f.sink.published, 1)
	require.Len(t, f.sink.moderated, 1)
	assert.Equal(t, moderation.LogApproved, f.sink.moderated[0].Action)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActionsTotal.WithLabelValues("approve", "success")))
}

func TestApprove_ArticleGoesToNews(t *testing.T) {
	f := newFixture(t)
	item := f.submitArticle(t, "Park vote")

	published, err := f.svc.Approve(context.Background(), moderation.ApproveRequest{
		ContentID: item.ID, ModeratorID: "mod-1", Collection: moderation.CollectionArticles,
	})
	require.NoError(t, err)
	assert.Equal(t, moderation.CollectionPublishedNews, published.Collection)
	assert.Equal(t, "Jamie Reporter", published.Author)
	assert.Nil(t, published.EventDate)
}

func TestPublicationCollection(t *testing.T) {
	assert.Equal(t, moderation.CollectionPublishedEvents, moderation.PublicationCollection(moderation.CollectionEvents))
	assert.Equal(t, moderation.CollectionPublishedNews, moderation.PublicationCollection(moderation.CollectionArticles))
	assert.Equal(t, moderation.CollectionPublishedArticles, moderation.PublicationCollection("blog_posts"))
}

func TestApprove_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Approve(ctx, moderation.ApproveRequest{ModeratorID: "mod-1"})
	assert.ErrorIs(t, err, moderation.ErrInvalidInput)

	_, err = f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: "x"})
	assert.ErrorIs(t, err, moderation.ErrInvalidInput)

	_, err = f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: "missing", ModeratorID: "mod-1"})
	assert.ErrorIs(t, err, moderation.ErrContentNotFound)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.ActionsTotal.WithLabelValues("approve", "failure")))
}

func TestApprove_RequiresPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submitEvent(t, "Block Party")

	_, err := f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: item.ID, ModeratorID: "mod-1"})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: item.ID, ModeratorID: "mod-1"})
	assert.ErrorIs(t, err, moderation.ErrInvalidTransition)

	rejected := f.submitEvent(t, "Spam")
	require.NoError(t, f.svc.Reject(ctx, moderation.RejectRequest{ContentID: rejected.ID, ModeratorID: "mod-2", Reason: "spam"}))
	_, err = f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: rejected.ID, ModeratorID: "mod-1"})
	assert.ErrorIs(t, err, moderation.ErrInvalidTransition)

	// only one published row exists
	rows, err := f.svc.GetPublishedContent(ctx, moderation.PublishedKindAll)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestApprove_RollsBackWhenPublishFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submitEvent(t, "Block Party")
	f.store.set(f.store.failInsert, moderation.CollectionPublishedEvents)

	_, err := f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: item.ID, ModeratorID: "mod-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, moderation.ErrPublicationFailed)
	assert.ErrorIs(t, err, moderation.ErrStore)

	original, err := f.svc.GetContent(ctx, item.ID, "")
	require.NoError(t, err)
	assert.Equal(t, moderation.StatusPending, original.Status)
	assert.Empty(t, original.ApprovedBy)
	assert.Nil(t, original.ApprovedAt)

	history, err := f.svc.GetModerationHistory(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.sink.published)
	assert.Empty(t, f.snapshots.Keys())
}

func TestApprove_RollbackFailureIsCounted(t *testing.T) {
	f := newFixture(t)
	item := f.submitEvent(t, "Block Party")
	f.store.set(f.store.failInsert, moderation.CollectionPublishedEvents)
	f.store.failUpdateIf = func(c moderation.Collection, patch moderation.Record) bool {
		return patch["status"] == string(moderation.StatusPending)
	}

	_, err := f.svc.Approve(context.Background(), moderation.ApproveRequest{ContentID: item.ID, ModeratorID: "mod-1"})
	require.ErrorIs(t, err, moderation.ErrPublicationFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SideEffectFailuresTotal.WithLabelValues(moderation.SideEffectRollback)))
}

func TestApprove_MarkPublishedFailureKeepsApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submitEvent(t, "Block Party")
	f.store.failUpdateIf = func(c moderation.Collection, patch moderation.Record) bool {
		return patch["status"] == string(moderation.StatusPublished)
	}

	published, err := f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: item.ID, ModeratorID: "mod-1"})
	require.NoError(t, err)
	require.NotNil(t, published)

	original, err := f.svc.GetContent(ctx, item.ID, "")
	require.NoError(t, err)
	assert.Equal(t, moderation.StatusApproved, original.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SideEffectFailuresTotal.WithLabelValues(moderation.SideEffectMarkPublished)))
}

func TestApprove_SideEffectFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submitEvent(t, "Block Party")
	f.store.set(f.store.failInsert, moderation.CollectionModerationLog)
	f.store.set(f.store.failInsert, moderation.CollectionPublicationLog)
	f.sink.err = errInjected

	_, err := f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: item.ID, ModeratorID: "mod-1"})
	require.NoError(t, err)

	failures := f.metrics.SideEffectFailuresTotal
	assert.Equal(t, 1.0, testutil.ToFloat64(failures.WithLabelValues(moderation.SideEffectModerationLog)))
	assert.Equal(t, 1.0, testutil.ToFloat64(failures.WithLabelValues(moderation.SideEffectPublicationLog)))
	assert.Equal(t, 2.0, testutil.ToFloat64(failures.WithLabelValues(moderation.SideEffectEventSink)))
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submitEvent(t, "Buy cheap watches")

	t.Run("reason is required", func(t *testing.T) {
		err := f.svc.Reject(ctx, moderation.RejectRequest{ContentID: item.ID, ModeratorID: "mod-2", Reason: "  "})
		assert.ErrorIs(t, err, moderation.ErrInvalidInput)

		got, err := f.svc.GetContent(ctx, item.ID, "")
		require.NoError(t, err)
		assert.Equal(t, moderation.StatusPending, got.Status)
	})

	require.NoError(t, f.svc.Reject(ctx, moderation.RejectRequest{ContentID: item.ID, ModeratorID: "mod-2", Reason: "spam"}))

	got, err := f.svc.GetContent(ctx, item.ID, "")
	require.NoError(t, err)
	assert.Equal(t, moderation.StatusRejected, got.Status)
	assert.Equal(t, "mod-2", got.RejectedBy)
	assert.Equal(t, "spam", got.RejectionReason)
	require.NotNil(t, got.RejectedAt)

	history, err := f.svc.GetModerationHistory(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, moderation.LogRejected, history[0].Action)
	assert.Equal(t, "mod-2", history[0].ModeratorID)
	assert.Equal(t, "spam", history[0].Reason)
	assert.Equal(t, moderation.CollectionEvents, history[0].Collection)

	// nothing was published
	rows, err := f.svc.GetPublishedContent(ctx, moderation.PublishedKindAll)
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = f.svc.Reject(ctx, moderation.RejectRequest{ContentID: item.ID, ModeratorID: "mod-2", Reason: "again"})
	assert.ErrorIs(t, err, moderation.ErrInvalidTransition)
}

func TestEdit_ResetsToPending(t *testing.T) {
	ctx := context.Background()

	prepare := map[string]func(t *testing.T, f *fixture, id string){
		"pending": func(t *testing.T, f *fixture, id string) {},
		"rejected": func(t *testing.T, f *fixture, id string) {
			require.NoError(t, f.svc.Reject(ctx, moderation.RejectRequest{ContentID: id, ModeratorID: "mod-2", Reason: "typo"}))
		},
		"published": func(t *testing.T, f *fixture, id string) {
			_, err := f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: id, ModeratorID: "mod-1"})
			require.NoError(t, err)
		},
		"approved": func(t *testing.T, f *fixture, id string) {
			// a failed mark-published write leaves the item approved
			f.store.failUpdateIf = func(c moderation.Collection, patch moderation.Record) bool {
				return patch["status"] == string(moderation.StatusPublished)
			}
			_, err := f.svc.Approve(ctx, moderation.ApproveRequest{ContentID: id, ModeratorID: "mod-1"})
			require.NoError(t, err)
			f.store.failUpdateIf = nil

			item, err := f.svc.GetContent(ctx, id, "")
			require.NoError(t, err)
			require.Equal(t, moderation.StatusApproved, item.Status)
			require.Equal(t, "mod-1", item.ApprovedBy)
		},
	}

	for name, setup := range prepare {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			item := f.submitEvent(t, "Block Prty")
			setup(t, f, item.ID)

			updated, err := f.svc.Edit(ctx, moderation.EditRequest{
				ContentID:   item.ID,
				ModeratorID: "mod-3",
				Edits: map[string]any{
					"title":    "Block Party",
					"priority": "low",
				},
			})
			require.NoError(t, err)

			assert.Equal(t, "Block Party", updated.Title)
			assert.Equal(t, moderation.PriorityLow, updated.Priority)
			assert.Equal(t, moderation.StatusPending, updated.Status)
			assert.Empty(t, updated.ApprovedBy)
			assert.Nil(t, updated.ApprovedAt)
			assert.Empty(t, updated.RejectedBy)
			assert.Nil(t, updated.RejectedAt)
			assert.Empty(t, updated.RejectionReason)

			history, err := f.svc.GetModerationHistory(ctx, item.ID)
			require.NoError(t, err)
			require.NotEmpty(t, history)
			assert.Equal(t, moderation.LogEdited, history[0].Action)
			assert.Equal(t, "Edited fields: priority, title", history[0].Reason)
		})
	}
}

func TestEdit_VariantFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.submitEvent(t, "Block Party")
	article := f.submitArticle(t, "Park vote")

	updated, err := f.svc.Edit(ctx, moderation.EditRequest{
		ContentID: event.ID, ModeratorID: "mod-1",
		Edits: map[string]any{
			"event_date":  "2025-07-05T19:00:00Z",
			"location":    "Town Square",
			"description": "Moved to the square",
			"source_url":  "",
		},
	})
	require.NoError(t, err)
	ev, ok := updated.Event()
	require.True(t, ok)
	assert.Equal(t, 5, ev.EventDate.Day())
	assert.Equal(t, "Town Square", ev.Location)
	assert.Equal(t, "Moved to the square", updated.Body)

	updated, err = f.svc.Edit(ctx, moderation.EditRequest{
		ContentID: article.ID, ModeratorID: "mod-1", Collection: moderation.CollectionArticles,
		Edits: map[string]any{"author": "Sam Editor"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sam Editor", updated.Author())
}

func TestEdit_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.submitEvent(t, "Block Party")
	article := f.submitArticle(t, "Park vote")

	tests := []struct {
		name string
		req  moderation.EditRequest
	}{
		{"no edits", moderation.EditRequest{ContentID: event.ID, ModeratorID: "mod-1"}},
		{"no moderator", moderation.EditRequest{ContentID: event.ID, Edits: map[string]any{"title": "x"}}},
		{"empty title", moderation.EditRequest{ContentID: event.ID, ModeratorID: "mod-1", Edits: map[string]any{"title": " "}}},
		{"bad priority", moderation.EditRequest{ContentID: event.ID, ModeratorID: "mod-1", Edits: map[string]any{"priority": "urgent"}}},
		{"author on event", moderation.EditRequest{ContentID: event.ID, ModeratorID: "mod-1", Edits: map[string]any{"author": "x"}}},
		{"location on article", moderation.EditRequest{ContentID: article.ID, ModeratorID: "mod-1", Edits: map[string]any{"location": "x"}}},
		{"status is not editable", moderation.EditRequest{ContentID: article.ID, ModeratorID: "mod-1", Edits: map[string]any{"status": "approved"}}},
		{"bad event date", moderation.EditRequest{ContentID: event.ID, ModeratorID: "mod-1", Edits: map[string]any{"event_date": "next friday"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Edit(ctx, tt.req)
			assert.ErrorIs(t, err, moderation.ErrInvalidInput)
		})
	}

	_, err := f.svc.Edit(ctx, moderation.EditRequest{ContentID: "missing", ModeratorID: "mod-1", Edits: map[string]any{"title": "x"}})
	assert.ErrorIs(t, err, moderation.ErrContentNotFound)

	// failed edits leave the row alone
	got, err := f.svc.GetContent(ctx, event.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Block Party", got.Title)
}
