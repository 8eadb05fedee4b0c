package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-moderation/pkg/moderation"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.sent = append(f.sent, published{channel: channel, payload: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

var _ moderation.EventSink = (*Sink)(nil)

func TestSink_ContentModerated(t *testing.T) {
	pub := &fakePublisher{}
	sink := New(pub, "")
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	err := sink.ContentModerated(context.Background(), &moderation.ModerationLogEntry{
		ContentID:   "c-1",
		Collection:  moderation.CollectionEvents,
		Action:      moderation.LogRejected,
		ModeratorID: "mod-2",
		Reason:      "spam",
	})
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, DefaultChannel, pub.sent[0].channel)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.sent[0].payload, &msg))
	assert.Equal(t, TypeContentModerated, msg.Type)
	assert.Equal(t, fixed, msg.OccurredAt)
	require.NotNil(t, msg.Moderation)
	assert.Equal(t, "c-1", msg.Moderation.ContentID)
	assert.Nil(t, msg.Published)
}

func TestSink_ContentPublished(t *testing.T) {
	pub := &fakePublisher{}
	sink := New(pub, "custom")

	err := sink.ContentPublished(context.Background(), &moderation.PublishedContent{ID: "p-1", Title: "Block Party"})
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "custom", pub.sent[0].channel)
	assert.Contains(t, string(pub.sent[0].payload), `"type":"content.published"`)
}

func TestSink_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	sink := New(pub, "")

	err := sink.ContentPublished(context.Background(), &moderation.PublishedContent{ID: "p-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewFromURL_InvalidURL(t *testing.T) {
	_, _, err := NewFromURL(context.Background(), "http://not-redis", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}
