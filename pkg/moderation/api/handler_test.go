package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-moderation/pkg/moderation"
	"github.com/tendant/simple-moderation/pkg/moderation/repo/memory"
)

func setupHandlerTest(t *testing.T) (http.Handler, moderation.Service) {
	t.Helper()
	svc, err := moderation.New(moderation.WithStore(memory.New()))
	require.NoError(t, err)
	return NewHandler(svc, nil).Routes(), svc
}

func submitEvent(t *testing.T, svc moderation.Service, title string) *moderation.ContentItem {
	t.Helper()
	date := time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC)
	item, err := svc.Submit(context.Background(), moderation.SubmitRequest{
		Collection: moderation.CollectionEvents,
		Title:      title,
		Body:       "Music and food on **Main St**",
		EventDate:  &date,
		Location:   "Main St",
	})
	require.NoError(t, err)
	return item
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestModerate_MissingFields(t *testing.T) {
	h, _ := setupHandlerTest(t)

	w := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{Action: "approve", ContentID: "x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Missing required fields", body["error"])
	assert.Equal(t, "action, contentId, and moderatorId are required", body["message"])
}

func TestModerate_InvalidAction(t *testing.T) {
	h, _ := setupHandlerTest(t)

	w := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{Action: "publish", ContentID: "x", ModeratorID: "mod-1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid action", decodeBody(t, w)["error"])
}

func TestModerate_MalformedBody(t *testing.T) {
	h, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/moderate", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModerate_Approve(t *testing.T) {
	h, svc := setupHandlerTest(t)
	item := submitEvent(t, svc, "Block Party")

	w := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{
		Action: "approve", ContentID: item.ID, ModeratorID: "mod-1",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Content approved and published successfully", body["message"])

	data := body["data"].(map[string]any)
	assert.Equal(t, item.ID, data["contentId"])
	assert.Equal(t, "approved", data["action"])
	published := data["published"].(map[string]any)
	assert.Equal(t, "Block Party", published["title"])
	assert.Equal(t, item.ID, published["original_id"])
	assert.Contains(t, published["content_html"], "<strong>Main St</strong>")

	got, err := svc.GetContent(context.Background(), item.ID, "")
	require.NoError(t, err)
	assert.Equal(t, moderation.StatusPublished, got.Status)
}

func TestModerate_ApproveUnknownIsNotFound(t *testing.T) {
	h, _ := setupHandlerTest(t)

	w := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{
		Action: "approve", ContentID: "missing", ModeratorID: "mod-1",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Content not found", decodeBody(t, w)["error"])
}

func TestModerate_ApproveTwiceConflicts(t *testing.T) {
	h, svc := setupHandlerTest(t)
	item := submitEvent(t, svc, "Block Party")

	first := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{Action: "approve", ContentID: item.ID, ModeratorID: "mod-1"})
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{Action: "approve", ContentID: item.ID, ModeratorID: "mod-1"})
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestModerate_RejectRequiresReason(t *testing.T) {
	h, svc := setupHandlerTest(t)
	item := submitEvent(t, svc, "Spam")

	w := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{Action: "reject", ContentID: item.ID, ModeratorID: "mod-2"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Missing required field", body["error"])
	assert.Equal(t, "reason is required for rejection", body["message"])
}

func TestModerate_Reject(t *testing.T) {
	h, svc := setupHandlerTest(t)
	item := submitEvent(t, svc, "Spam")

	w := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{
		Action: "reject", ContentID: item.ID, ModeratorID: "mod-2", Reason: "spam",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "rejected", data["action"])
	assert.Equal(t, "spam", data["reason"])
	assert.Equal(t, "mod-2", data["moderatorId"])

	hist := doJSON(t, h, http.MethodGet, "/contents/"+item.ID+"/history", nil)
	require.Equal(t, http.StatusOK, hist.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(hist.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "rejected", entries[0]["action"])
}

func TestModerate_Edit(t *testing.T) {
	h, svc := setupHandlerTest(t)
	item := submitEvent(t, svc, "Block Prty")

	missing := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{Action: "edit", ContentID: item.ID, ModeratorID: "mod-1"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Equal(t, "edits object is required for edit action", decodeBody(t, missing)["message"])

	w := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{
		Action: "edit", ContentID: item.ID, ModeratorID: "mod-1",
		Edits: map[string]any{"title": "Block Party"},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeBody(t, w)["data"].(map[string]any)
	updated := data["updated"].(map[string]any)
	assert.Equal(t, "Block Party", updated["title"])
	assert.Equal(t, "pending", updated["status"])
}

func TestModerate_EditUnknownFieldIsBadRequest(t *testing.T) {
	h, svc := setupHandlerTest(t)
	item := submitEvent(t, svc, "Block Party")

	w := doJSON(t, h, http.MethodPost, "/moderate", ModerateRequest{
		Action: "edit", ContentID: item.ID, ModeratorID: "mod-1",
		Edits: map[string]any{"author": "someone"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchModerate(t *testing.T) {
	h, svc := setupHandlerTest(t)
	a := submitEvent(t, svc, "A")
	c := submitEvent(t, svc, "C")

	w := doJSON(t, h, http.MethodPost, "/moderate/batch", BatchModerateRequest{
		ContentIDs:  []string{a.ID, "missing", c.ID},
		Action:      "approve",
		ModeratorID: "mod-1",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result moderation.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{a.ID, c.ID}, result.Successful)
	assert.Equal(t, []string{"missing"}, result.Failed)
	require.Len(t, result.Results, 3)
	assert.Equal(t, moderation.BatchItemFailed, result.Results[1].Status)
	assert.NotEmpty(t, result.Results[1].Error)
}

func TestBatchModerate_Validation(t *testing.T) {
	h, _ := setupHandlerTest(t)

	empty := doJSON(t, h, http.MethodPost, "/moderate/batch", BatchModerateRequest{Action: "approve", ModeratorID: "mod-1"})
	assert.Equal(t, http.StatusBadRequest, empty.Code)

	edit := doJSON(t, h, http.MethodPost, "/moderate/batch", BatchModerateRequest{
		ContentIDs: []string{"a"}, Action: "edit", ModeratorID: "mod-1",
	})
	assert.Equal(t, http.StatusBadRequest, edit.Code)
}

func TestQueueAndPendingCount(t *testing.T) {
	h, svc := setupHandlerTest(t)
	submitEvent(t, svc, "One")
	submitEvent(t, svc, "Two")
	_, err := svc.Submit(context.Background(), moderation.SubmitRequest{
		Collection: moderation.CollectionArticles,
		Title:      "Council meeting",
		Body:       "Notes",
		Author:     "Reporter",
	})
	require.NoError(t, err)

	w := doJSON(t, h, http.MethodGet, "/pending-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decodeBody(t, w)["count"])

	w = doJSON(t, h, http.MethodGet, "/pending-count?type=event", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decodeBody(t, w)["count"])

	w = doJSON(t, h, http.MethodGet, "/queue?type=articles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []ContentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, "Reporter", queue[0].Author)
	assert.Equal(t, "Notes", queue[0].Content)

	bad := doJSON(t, h, http.MethodGet, "/queue?type=videos", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestPublishedListingAndStatus(t *testing.T) {
	h, svc := setupHandlerTest(t)
	item := submitEvent(t, svc, "Block Party")
	published, err := svc.Approve(context.Background(), moderation.ApproveRequest{ContentID: item.ID, ModeratorID: "mod-1"})
	require.NoError(t, err)

	w := doJSON(t, h, http.MethodGet, "/published?type=events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []moderation.PublishedContent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, published.ID, rows[0].ID)

	w = doJSON(t, h, http.MethodPatch, "/published/"+published.ID+"/status", PublicationStatusRequest{Status: "archived"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "archived", decodeBody(t, w)["status"])

	bad := doJSON(t, h, http.MethodPatch, "/published/"+published.ID+"/status", PublicationStatusRequest{Status: "deleted"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	missing := doJSON(t, h, http.MethodPatch, "/published/nope/status", PublicationStatusRequest{Status: "draft"})
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestSubmitAndGetContent(t *testing.T) {
	h, _ := setupHandlerTest(t)

	w := doJSON(t, h, http.MethodPost, "/submissions", SubmitRequest{
		Type:    "article",
		Title:   "<b>Library</b> reopens",
		Content: "The library reopens *Monday*.",
		Author:  "Reporter",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created ContentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Library reopens", created.Title)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "medium", created.Priority)

	w = doJSON(t, h, http.MethodGet, "/contents/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got ContentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "newsroom_articles", got.Type)

	missingType := doJSON(t, h, http.MethodPost, "/submissions", SubmitRequest{Title: "x", Content: "y"})
	assert.Equal(t, http.StatusBadRequest, missingType.Code)

	noDate := doJSON(t, h, http.MethodPost, "/submissions", SubmitRequest{Type: "events", Title: "x", Description: "y"})
	assert.Equal(t, http.StatusBadRequest, noDate.Code)

	notFound := doJSON(t, h, http.MethodGet, "/contents/missing", nil)
	assert.Equal(t, http.StatusNotFound, notFound.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &moderation.ValidationError{Field: "x", Message: "bad"}, http.StatusBadRequest},
		{"not found", moderation.ErrContentNotFound, http.StatusNotFound},
		{"transition", moderation.ErrInvalidTransition, http.StatusConflict},
		{"store", moderation.ErrStore, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := statusFor(tt.err)
			assert.Equal(t, tt.code, code)
		})
	}
}
