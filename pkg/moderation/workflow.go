package moderation

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

func (s *service) Approve(ctx context.Context, req ApproveRequest) (*PublishedContent, error) {
	published, err := s.approve(ctx, req)
	s.metrics.action(ActionApprove, err)
	if err != nil {
		return nil, err
	}
	return published, nil
}

func (s *service) approve(ctx context.Context, req ApproveRequest) (*PublishedContent, error) {
	if err := requireActor(req.ContentID, req.ModeratorID); err != nil {
		return nil, err
	}

	item, err := s.loadItem(ctx, req.ContentID, req.Collection)
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Collection: req.Collection, Op: "approve", Err: err}
	}
	if err := canApprove(item.Status); err != nil {
		return nil, &ContentError{ContentID: item.ID, Collection: item.Collection, Op: "approve", Err: err}
	}

	previous := *item
	now := s.now()
	patch := Record{
		colStatus:     string(StatusApproved),
		colApprovedBy: req.ModeratorID,
		colApprovedAt: now,
		colUpdatedAt:  now,
	}
	if err := s.update(ctx, item.Collection, item.ID, patch); err != nil {
		return nil, &ContentError{ContentID: item.ID, Collection: item.Collection, Op: "approve", Err: err}
	}
	item.Status = StatusApproved
	item.ApprovedBy = req.ModeratorID
	item.ApprovedAt = &now
	item.UpdatedAt = now

	published, err := s.publish(ctx, item)
	if err != nil {
		s.rollbackApproval(ctx, &previous)
		return nil, &ContentError{ContentID: item.ID, Collection: item.Collection, Op: "approve", Err: err}
	}

	s.recordModeration(ctx, item, LogApproved, req.ModeratorID, "")
	return published, nil
}

// rollbackApproval restores the approval fields after a failed publication.
func (s *service) rollbackApproval(ctx context.Context, previous *ContentItem) {
	patch := Record{
		colStatus:     string(previous.Status),
		colApprovedBy: nullable(previous.ApprovedBy),
		colApprovedAt: nil,
		colUpdatedAt:  previous.UpdatedAt,
	}
	if previous.ApprovedAt != nil {
		patch[colApprovedAt] = *previous.ApprovedAt
	}
	if previous.UpdatedAt.IsZero() {
		patch[colUpdatedAt] = s.now()
	}
	if err := s.update(ctx, previous.Collection, previous.ID, patch); err != nil {
		s.logger.Error("failed to roll back approval after publication failure",
			"content_id", previous.ID, "collection", previous.Collection, "err", err)
		s.metrics.sideEffectFailed(SideEffectRollback)
		return
	}
	s.logger.Warn("approval rolled back", "content_id", previous.ID, "collection", previous.Collection)
}

func (s *service) Reject(ctx context.Context, req RejectRequest) error {
	err := s.reject(ctx, req)
	s.metrics.action(ActionReject, err)
	return err
}

func (s *service) reject(ctx context.Context, req RejectRequest) error {
	if err := requireActor(req.ContentID, req.ModeratorID); err != nil {
		return err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return &ValidationError{Field: colReason, Message: "is required for rejection"}
	}

	item, err := s.loadItem(ctx, req.ContentID, req.Collection)
	if err != nil {
		return &ContentError{ContentID: req.ContentID, Collection: req.Collection, Op: "reject", Err: err}
	}
	if err := canReject(item.Status); err != nil {
		return &ContentError{ContentID: item.ID, Collection: item.Collection, Op: "reject", Err: err}
	}

	now := s.now()
	patch := Record{
		colStatus:          string(StatusRejected),
		colRejectedBy:      req.ModeratorID,
		colRejectionReason: reason,
		colRejectedAt:      now,
		colUpdatedAt:       now,
	}
	if err := s.update(ctx, item.Collection, item.ID, patch); err != nil {
		return &ContentError{ContentID: item.ID, Collection: item.Collection, Op: "reject", Err: err}
	}

	s.recordModeration(ctx, item, LogRejected, req.ModeratorID, reason)
	return nil
}

func (s *service) Edit(ctx context.Context, req EditRequest) (*ContentItem, error) {
	updated, err := s.edit(ctx, req)
	s.metrics.action(ActionEdit, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) edit(ctx context.Context, req EditRequest) (*ContentItem, error) {
	if err := requireActor(req.ContentID, req.ModeratorID); err != nil {
		return nil, err
	}
	if len(req.Edits) == 0 {
		return nil, &ValidationError{Field: "edits", Message: "at least one field is required"}
	}
	if req.Collection != "" {
		if _, _, err := s.editPatch(req.Collection, req.Edits); err != nil {
			return nil, err
		}
	}

	item, err := s.loadItem(ctx, req.ContentID, req.Collection)
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Collection: req.Collection, Op: "edit", Err: err}
	}
	patch, fields, err := s.editPatch(item.Collection, req.Edits)
	if err != nil {
		return nil, err
	}

	// Any edit sends the item back to review and drops earlier decisions.
	now := s.now()
	patch[colStatus] = string(StatusPending)
	patch[colUpdatedAt] = now
	patch[colApprovedBy] = nil
	patch[colApprovedAt] = nil
	patch[colRejectedBy] = nil
	patch[colRejectedAt] = nil
	patch[colRejectionReason] = nil

	rec, err := s.store.Update(ctx, item.Collection, item.ID, patch)
	if err != nil {
		return nil, &ContentError{ContentID: item.ID, Collection: item.Collection, Op: "edit",
			Err: storeFailure(item.Collection, "update", err)}
	}
	if rec == nil {
		return nil, &ContentError{ContentID: item.ID, Collection: item.Collection, Op: "edit",
			Err: fmt.Errorf("%w: content %s not found in %s", ErrContentNotFound, item.ID, item.Collection)}
	}
	updated, err := DecodeContentItem(item.Collection, rec)
	if err != nil {
		return nil, &ContentError{ContentID: item.ID, Collection: item.Collection, Op: "edit",
			Err: fmt.Errorf("decode updated row: %v", err)}
	}

	s.recordModeration(ctx, item, LogEdited, req.ModeratorID, "Edited fields: "+strings.Join(fields, ", "))
	return updated, nil
}

// editPatch validates edits against the collection's columns and returns the
// patch plus the sorted list of edited fields.
func (s *service) editPatch(collection Collection, edits map[string]any) (Record, []string, error) {
	patch := Record{}
	fields := make([]string, 0, len(edits))
	for field, value := range edits {
		v, err := s.editValue(collection, field, value)
		if err != nil {
			return nil, nil, err
		}
		patch[field] = v
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return patch, fields, nil
}

func (s *service) editValue(collection Collection, field string, value any) (any, error) {
	switch field {
	case colTitle:
		title := s.renderer.SanitizeText(editString(value))
		if title == "" {
			return nil, &ValidationError{Field: field, Message: "cannot be empty"}
		}
		return title, nil
	case colPriority:
		p, err := ParsePriority(editString(value))
		if err != nil {
			return nil, err
		}
		return string(p), nil
	case colSourceURL:
		return optionalEdit(value), nil
	}

	if field == bodyColumn(collection) {
		body := strings.TrimSpace(editString(value))
		if body == "" {
			return nil, &ValidationError{Field: field, Message: "cannot be empty"}
		}
		return body, nil
	}

	switch collection {
	case CollectionEvents:
		switch field {
		case colEventDate:
			t, err := ParseTime(value)
			if err != nil {
				return nil, &ValidationError{Field: field, Message: "must be an RFC 3339 timestamp"}
			}
			if t == nil {
				return nil, &ValidationError{Field: field, Message: "cannot be empty"}
			}
			return t.UTC(), nil
		case colLocation, colOrganizer:
			return optionalEdit(value), nil
		}
	case CollectionArticles:
		if field == colAuthor {
			return optionalEdit(value), nil
		}
	}
	return nil, &ValidationError{Field: field, Message: fmt.Sprintf("is not editable on %s", collection)}
}

func editString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// optionalEdit maps empty values to nil so the column is cleared.
func optionalEdit(v any) any {
	s := strings.TrimSpace(editString(v))
	if s == "" {
		return nil
	}
	return s
}

// recordModeration appends the audit entry and notifies the event sink.
func (s *service) recordModeration(ctx context.Context, item *ContentItem, action LogAction, moderatorID, reason string) {
	entry := &ModerationLogEntry{
		ID:          s.newID(),
		ContentID:   item.ID,
		Collection:  item.Collection,
		Action:      action,
		ModeratorID: moderatorID,
		Reason:      reason,
		Timestamp:   s.now(),
	}
	s.audit.LogModeration(ctx, entry)
	s.notifyModerated(ctx, entry)
	s.logger.Info("content moderated",
		"content_id", item.ID, "collection", item.Collection, "action", action, "moderator_id", moderatorID)
}

// update applies a patch and treats a vanished row as not found.
func (s *service) update(ctx context.Context, collection Collection, id string, patch Record) error {
	rec, err := s.store.Update(ctx, collection, id, patch)
	if err != nil {
		return storeFailure(collection, "update", err)
	}
	if rec == nil {
		return fmt.Errorf("%w: content %s not found in %s", ErrContentNotFound, id, collection)
	}
	return nil
}

func requireActor(contentID, moderatorID string) error {
	if strings.TrimSpace(contentID) == "" {
		return &ValidationError{Field: "contentId", Message: "is required"}
	}
	if strings.TrimSpace(moderatorID) == "" {
		return &ValidationError{Field: "moderatorId", Message: "is required"}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
