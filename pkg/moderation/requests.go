package moderation

import "time"

// Request DTOs

// SubmitRequest contains parameters for a new community submission.
// Body is the article content or the event description.
type SubmitRequest struct {
	Collection Collection
	Title      string
	Body       string
	SourceURL  string
	Priority   Priority

	// Articles
	Author string

	// Events
	EventDate *time.Time
	Location  string
	Organizer string
}

// ApproveRequest contains parameters for approving an item. Collection is
// resolved when empty.
type ApproveRequest struct {
	ContentID   string
	ModeratorID string
	Collection  Collection
}

// RejectRequest contains parameters for rejecting an item.
type RejectRequest struct {
	ContentID   string
	ModeratorID string
	Reason      string
	Collection  Collection
}

// EditRequest contains field changes keyed by column name. Accepted keys are
// title, content or description, priority, source_url, and the variant's own
// fields (event_date, location, organizer for events; author for articles).
type EditRequest struct {
	ContentID   string
	ModeratorID string
	Edits       map[string]any
	Collection  Collection
}

// BatchRequest applies one decision to many ids.
type BatchRequest struct {
	ContentIDs  []string
	Action      Action
	ModeratorID string
	Reason      string
}
