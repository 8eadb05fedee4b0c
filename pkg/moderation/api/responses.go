package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/tendant/simple-moderation/pkg/moderation"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SuccessResponse is the envelope of the moderation action endpoint.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// ContentResponse is the JSON shape of a ContentItem.
type ContentResponse struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Content         string     `json:"content,omitempty"`
	Description     string     `json:"description,omitempty"`
	Author          string     `json:"author,omitempty"`
	EventDate       *time.Time `json:"event_date,omitempty"`
	Location        string     `json:"location,omitempty"`
	Organizer       string     `json:"organizer,omitempty"`
	SourceURL       string     `json:"source_url,omitempty"`
	Source          string     `json:"source,omitempty"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// NewContentResponse converts an item into its snake_case JSON shape.
func NewContentResponse(item *moderation.ContentItem) ContentResponse {
	resp := ContentResponse{
		ID:              item.ID,
		Type:            string(item.Collection),
		Title:           item.Title,
		SourceURL:       item.SourceURL,
		Source:          item.Source,
		Status:          string(item.Status),
		Priority:        string(item.Priority),
		ApprovedBy:      item.ApprovedBy,
		ApprovedAt:      item.ApprovedAt,
		RejectedBy:      item.RejectedBy,
		RejectedAt:      item.RejectedAt,
		RejectionReason: item.RejectionReason,
	}
	if !item.CreatedAt.IsZero() {
		t := item.CreatedAt
		resp.CreatedAt = &t
	}
	if !item.UpdatedAt.IsZero() {
		t := item.UpdatedAt
		resp.UpdatedAt = &t
	}
	switch v := item.Variant.(type) {
	case *moderation.EventDetails:
		resp.Description = item.Body
		resp.Location = v.Location
		resp.Organizer = v.Organizer
		if !v.EventDate.IsZero() {
			t := v.EventDate
			resp.EventDate = &t
		}
	case *moderation.ArticleDetails:
		resp.Content = item.Body
		resp.Author = v.Author
	}
	return resp
}

// NewContentResponses converts a list of items.
func NewContentResponses(items []*moderation.ContentItem) []ContentResponse {
	out := make([]ContentResponse, len(items))
	for i, item := range items {
		out[i] = NewContentResponse(item)
	}
	return out
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, moderation.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, moderation.ErrContentNotFound):
		return http.StatusNotFound, "Content not found"
	case errors.Is(err, moderation.ErrInvalidTransition):
		return http.StatusConflict, "Invalid status transition"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: title, Message: message})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, title := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "op", op, "error", err)
	} else {
		h.logger.Info("request rejected", "op", op, "status", status, "error", err)
	}
	writeError(w, r, status, title, err.Error())
}

// parseContentType accepts collection names and their short forms.
func parseContentType(s string) (moderation.Collection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "events", "event":
		return moderation.CollectionEvents, nil
	case "newsroom_articles", "articles", "article", "news":
		return moderation.CollectionArticles, nil
	}
	return "", &moderation.ValidationError{Field: "type", Message: "must be events or newsroom_articles"}
}
