package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-moderation/pkg/moderation"
)

// ModerateRequest is the body of POST /moderate.
type ModerateRequest struct {
	Action      string         `json:"action"`
	ContentID   string         `json:"contentId"`
	ModeratorID string         `json:"moderatorId"`
	Reason      string         `json:"reason,omitempty"`
	Edits       map[string]any `json:"edits,omitempty"`
	Type        string         `json:"type,omitempty"`
}

// BatchModerateRequest is the body of POST /moderate/batch.
type BatchModerateRequest struct {
	ContentIDs  []string `json:"contentIds"`
	Action      string   `json:"action"`
	ModeratorID string   `json:"moderatorId"`
	Reason      string   `json:"reason,omitempty"`
}

// SubmitRequest is the body of POST /submissions.
type SubmitRequest struct {
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty"`
	Description string     `json:"description,omitempty"`
	SourceURL   string     `json:"source_url,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Author      string     `json:"author,omitempty"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	Location    string     `json:"location,omitempty"`
	Organizer   string     `json:"organizer,omitempty"`
}

// PublicationStatusRequest is the body of PATCH /published/{id}/status.
type PublicationStatusRequest struct {
	Status string `json:"status"`
}

// CountResponse is returned by GET /pending-count.
type CountResponse struct {
	Type  string `json:"type,omitempty"`
	Count int    `json:"count"`
}

// Handler serves the moderation API.
type Handler struct {
	service moderation.Service
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a moderation handler. A nil logger falls back to slog.Default.
func NewHandler(service moderation.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Routes returns the moderation routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/moderate", h.Moderate)
	r.Post("/moderate/batch", h.BatchModerate)

	r.Get("/queue", h.GetQueue)
	r.Get("/pending-count", h.GetPendingCount)

	r.Get("/published", h.GetPublished)
	r.Patch("/published/{id}/status", h.UpdatePublicationStatus)

	r.Post("/submissions", h.Submit)
	r.Get("/contents/{id}", h.GetContent)
	r.Get("/contents/{id}/history", h.GetHistory)

	return r
}

// Moderate applies a single approve, reject or edit action.
func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	var req ModerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid moderation request body", "error", err)
		writeError(w, r, http.StatusBadRequest, "Invalid request", "request body must be a JSON object")
		return
	}

	if req.Action == "" || strings.TrimSpace(req.ContentID) == "" || strings.TrimSpace(req.ModeratorID) == "" {
		writeError(w, r, http.StatusBadRequest, "Missing required fields", "action, contentId, and moderatorId are required")
		return
	}

	collection, err := parseContentType(req.Type)
	if err != nil {
		h.writeServiceError(w, r, "moderate", err)
		return
	}

	timestamp := h.now()
	switch moderation.Action(req.Action) {
	case moderation.ActionApprove:
		published, err := h.service.Approve(r.Context(), moderation.ApproveRequest{
			ContentID:   req.ContentID,
			ModeratorID: req.ModeratorID,
			Collection:  collection,
		})
		if err != nil {
			h.writeServiceError(w, r, "approve", err)
			return
		}
		render.JSON(w, r, SuccessResponse{
			Success: true,
			Message: "Content approved and published successfully",
			Data: map[string]any{
				"published": published,
				"contentId": req.ContentID,
				"action":    "approved",
				"timestamp": timestamp,
			},
		})

	case moderation.ActionReject:
		if strings.TrimSpace(req.Reason) == "" {
			writeError(w, r, http.StatusBadRequest, "Missing required field", "reason is required for rejection")
			return
		}
		err := h.service.Reject(r.Context(), moderation.RejectRequest{
			ContentID:   req.ContentID,
			ModeratorID: req.ModeratorID,
			Reason:      req.Reason,
			Collection:  collection,
		})
		if err != nil {
			h.writeServiceError(w, r, "reject", err)
			return
		}
		render.JSON(w, r, SuccessResponse{
			Success: true,
			Message: "Content rejected successfully",
			Data: map[string]any{
				"contentId":   req.ContentID,
				"action":      "rejected",
				"reason":      req.Reason,
				"moderatorId": req.ModeratorID,
				"timestamp":   timestamp,
			},
		})

	case moderation.ActionEdit:
		if len(req.Edits) == 0 {
			writeError(w, r, http.StatusBadRequest, "Missing required field", "edits object is required for edit action")
			return
		}
		updated, err := h.service.Edit(r.Context(), moderation.EditRequest{
			ContentID:   req.ContentID,
			ModeratorID: req.ModeratorID,
			Edits:       req.Edits,
			Collection:  collection,
		})
		if err != nil {
			h.writeServiceError(w, r, "edit", err)
			return
		}
		render.JSON(w, r, SuccessResponse{
			Success: true,
			Message: "Content edited successfully",
			Data: map[string]any{
				"updated":     NewContentResponse(updated),
				"contentId":   req.ContentID,
				"action":      "edited",
				"edits":       req.Edits,
				"moderatorId": req.ModeratorID,
				"timestamp":   timestamp,
			},
		})

	default:
		writeError(w, r, http.StatusBadRequest, "Invalid action", "action must be one of: approve, reject, edit")
	}
}

// BatchModerate approves or rejects many items. Per-item failures are
// reported in the body; the response is 200 whenever the request is valid.
func (h *Handler) BatchModerate(w http.ResponseWriter, r *http.Request) {
	var req BatchModerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid batch request body", "error", err)
		writeError(w, r, http.StatusBadRequest, "Invalid request", "request body must be a JSON object")
		return
	}

	if len(req.ContentIDs) == 0 || req.Action == "" || strings.TrimSpace(req.ModeratorID) == "" {
		writeError(w, r, http.StatusBadRequest, "Missing required fields", "contentIds, action, and moderatorId are required")
		return
	}
	action := moderation.Action(req.Action)
	if action != moderation.ActionApprove && action != moderation.ActionReject {
		writeError(w, r, http.StatusBadRequest, "Invalid action", "action must be one of: approve, reject")
		return
	}

	result := h.service.BatchAction(r.Context(), moderation.BatchRequest{
		ContentIDs:  req.ContentIDs,
		Action:      action,
		ModeratorID: req.ModeratorID,
		Reason:      req.Reason,
	})
	render.JSON(w, r, result)
}

// GetQueue lists pending and rejected items, newest first.
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	collection, err := parseContentType(r.URL.Query().Get("type"))
	if err != nil {
		h.writeServiceError(w, r, "queue", err)
		return
	}
	items, err := h.service.GetModerationQueue(r.Context(), collection)
	if err != nil {
		h.writeServiceError(w, r, "queue", err)
		return
	}
	render.JSON(w, r, NewContentResponses(items))
}

// GetPendingCount returns the number of pending items.
func (h *Handler) GetPendingCount(w http.ResponseWriter, r *http.Request) {
	collection, err := parseContentType(r.URL.Query().Get("type"))
	if err != nil {
		h.writeServiceError(w, r, "pending-count", err)
		return
	}
	count, err := h.service.GetPendingCount(r.Context(), collection)
	if err != nil {
		h.writeServiceError(w, r, "pending-count", err)
		return
	}
	render.JSON(w, r, CountResponse{Type: string(collection), Count: count})
}

// GetPublished lists published rows, newest first.
func (h *Handler) GetPublished(w http.ResponseWriter, r *http.Request) {
	kind := moderation.PublishedKind(strings.ToLower(r.URL.Query().Get("type")))
	items, err := h.service.GetPublishedContent(r.Context(), kind)
	if err != nil {
		h.writeServiceError(w, r, "published", err)
		return
	}
	render.JSON(w, r, items)
}

// UpdatePublicationStatus archives, drafts or republishes a published row.
func (h *Handler) UpdatePublicationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PublicationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid publication status body", "id", id, "error", err)
		writeError(w, r, http.StatusBadRequest, "Invalid request", "request body must be a JSON object")
		return
	}
	status, err := moderation.ParsePublicationStatus(req.Status)
	if err != nil {
		h.writeServiceError(w, r, "publication-status", err)
		return
	}

	updated, err := h.service.UpdatePublicationStatus(r.Context(), id, status)
	if err != nil {
		h.writeServiceError(w, r, "publication-status", err)
		return
	}
	render.JSON(w, r, updated)
}

// Submit queues a community submission for moderation.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Invalid submission body", "error", err)
		writeError(w, r, http.StatusBadRequest, "Invalid request", "request body must be a JSON object")
		return
	}

	collection, err := parseContentType(req.Type)
	if err == nil && collection == "" {
		err = &moderation.ValidationError{Field: "type", Message: "is required"}
	}
	if err != nil {
		h.writeServiceError(w, r, "submit", err)
		return
	}

	body := req.Content
	if collection == moderation.CollectionEvents {
		body = req.Description
	}
	var priority moderation.Priority
	if req.Priority != "" {
		if priority, err = moderation.ParsePriority(req.Priority); err != nil {
			h.writeServiceError(w, r, "submit", err)
			return
		}
	}

	item, err := h.service.Submit(r.Context(), moderation.SubmitRequest{
		Collection: collection,
		Title:      req.Title,
		Body:       body,
		SourceURL:  req.SourceURL,
		Priority:   priority,
		Author:     req.Author,
		EventDate:  req.EventDate,
		Location:   req.Location,
		Organizer:  req.Organizer,
	})
	if err != nil {
		h.writeServiceError(w, r, "submit", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, NewContentResponse(item))
}

// GetContent returns a single item; the collection is resolved when type is absent.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	collection, err := parseContentType(r.URL.Query().Get("type"))
	if err != nil {
		h.writeServiceError(w, r, "get-content", err)
		return
	}
	item, err := h.service.GetContent(r.Context(), id, collection)
	if err != nil {
		h.writeServiceError(w, r, "get-content", err)
		return
	}
	render.JSON(w, r, NewContentResponse(item))
}

// GetHistory returns the moderation log of an item, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetModerationHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "history", err)
		return
	}
	render.JSON(w, r, entries)
}
