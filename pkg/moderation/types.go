package moderation

import "time"

// Collection names a logical group of records in the Store.
type Collection string

// Moderated collections.
const (
	CollectionEvents   Collection = "events"
	CollectionArticles Collection = "newsroom_articles"
)

// Published and audit collections.
const (
	CollectionPublishedEvents   Collection = "published_events"
	CollectionPublishedNews     Collection = "published_news"
	CollectionPublishedArticles Collection = "published_articles"
	CollectionModerationLog     Collection = "moderation_log"
	CollectionPublicationLog    Collection = "publication_log"
)

// ContentCollections lists the moderated collections in resolution order.
var ContentCollections = []Collection{CollectionEvents, CollectionArticles}

// PublishedCollections lists every published collection.
var PublishedCollections = []Collection{CollectionPublishedEvents, CollectionPublishedNews, CollectionPublishedArticles}

// IsContentCollection reports whether c holds moderated submissions.
func IsContentCollection(c Collection) bool {
	return c == CollectionEvents || c == CollectionArticles
}

// ContentStatus is the workflow state of a submitted item.
type ContentStatus string

const (
	StatusPending   ContentStatus = "pending"
	StatusApproved  ContentStatus = "approved"
	StatusRejected  ContentStatus = "rejected"
	StatusPublished ContentStatus = "published"
)

// Priority is the moderation priority of a submission.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority validates a priority string.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", &ValidationError{Field: "priority", Message: "must be one of low, medium, high"}
}

// PublicationStatus is the archival state of a published row.
type PublicationStatus string

const (
	PublicationPublished PublicationStatus = "published"
	PublicationDraft     PublicationStatus = "draft"
	PublicationArchived  PublicationStatus = "archived"
)

// ParsePublicationStatus validates a publication status string.
func ParsePublicationStatus(s string) (PublicationStatus, error) {
	switch p := PublicationStatus(s); p {
	case PublicationPublished, PublicationDraft, PublicationArchived:
		return p, nil
	}
	return "", &ValidationError{Field: "status", Message: "must be one of published, draft, archived"}
}

// Action is a moderation decision requested by a moderator.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionEdit    Action = "edit"
)

// LogAction is the action recorded in the moderation log.
type LogAction string

const (
	LogApproved LogAction = "approved"
	LogRejected LogAction = "rejected"
	LogEdited   LogAction = "edited"
)

// DefaultSubmissionSource is stamped on items created through Submit.
const DefaultSubmissionSource = "community_submission"

// DefaultPublicationSource is used when the original item carries no source.
const DefaultPublicationSource = "chrome_extension"

// Variant is the collection-specific part of a ContentItem. It is implemented
// only by *EventDetails and *ArticleDetails.
type Variant interface {
	collection() Collection
}

// EventDetails holds the fields only events carry.
type EventDetails struct {
	EventDate time.Time
	Location  string
	Organizer string
}

func (*EventDetails) collection() Collection { return CollectionEvents }

// ArticleDetails holds the fields only news articles carry.
type ArticleDetails struct {
	Author string
}

func (*ArticleDetails) collection() Collection { return CollectionArticles }

// ContentItem is a submission awaiting or past moderation.
//
// Body maps to "description" for events and "content" for articles.
type ContentItem struct {
	ID         string
	Collection Collection
	Title      string
	Body       string
	SourceURL  string
	Source     string
	Status     ContentStatus
	Priority   Priority

	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectedBy      string
	RejectedAt      *time.Time
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time

	Variant Variant
}

// Event returns the event payload when the item is an event.
func (c *ContentItem) Event() (*EventDetails, bool) {
	e, ok := c.Variant.(*EventDetails)
	return e, ok
}

// Article returns the article payload when the item is an article.
func (c *ContentItem) Article() (*ArticleDetails, bool) {
	a, ok := c.Variant.(*ArticleDetails)
	return a, ok
}

// Author returns the attributed author: the article author or the event organizer.
func (c *ContentItem) Author() string {
	switch v := c.Variant.(type) {
	case *ArticleDetails:
		return v.Author
	case *EventDetails:
		return v.Organizer
	}
	return ""
}

// PublicationMetadata is the provenance block embedded in a published row.
type PublicationMetadata struct {
	OriginalTable Collection `json:"original_table"`
	Priority      Priority   `json:"priority,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
}

// PublishedContent is the public copy of an approved item.
type PublishedContent struct {
	ID                 string              `json:"id"`
	Collection         Collection          `json:"collection"`
	Title              string              `json:"title"`
	Content            string              `json:"content"`
	ContentHTML        string              `json:"content_html,omitempty"`
	Author             string              `json:"author,omitempty"`
	PublishedAt        time.Time           `json:"published_at"`
	Status             PublicationStatus   `json:"status"`
	Source             string              `json:"source"`
	ApprovedBy         string              `json:"approved_by,omitempty"`
	OriginalID         string              `json:"original_id"`
	OriginalCollection Collection          `json:"original_collection"`
	EventDate          *time.Time          `json:"event_date,omitempty"`
	Location           string              `json:"location,omitempty"`
	Metadata           PublicationMetadata `json:"metadata"`
	UpdatedAt          *time.Time          `json:"updated_at,omitempty"`
}

// ModerationLogEntry is one append-only record of a moderation decision.
type ModerationLogEntry struct {
	ID          string     `json:"id"`
	ContentID   string     `json:"content_id"`
	Collection  Collection `json:"content_table"`
	Action      LogAction  `json:"action"`
	ModeratorID string     `json:"moderator_id"`
	Reason      string     `json:"reason,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// PublicationLogEntry ties a published row back to its source item.
type PublicationLogEntry struct {
	ID                  string     `json:"id"`
	PublishedID         string     `json:"published_id"`
	PublishedCollection Collection `json:"published_table"`
	OriginalID          string     `json:"original_id"`
	OriginalCollection  Collection `json:"original_table"`
	ApprovedBy          string     `json:"approved_by,omitempty"`
	PublishedAt         time.Time  `json:"published_at"`
}

// BatchItemStatus is the outcome of one id within a batch.
type BatchItemStatus string

const (
	BatchItemApproved BatchItemStatus = "approved"
	BatchItemRejected BatchItemStatus = "rejected"
	BatchItemFailed   BatchItemStatus = "failed"
)

// BatchItemResult is the per-id outcome of a batch action.
type BatchItemResult struct {
	ContentID string            `json:"contentId"`
	Status    BatchItemStatus   `json:"status"`
	Data      *PublishedContent `json:"data,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// BatchResult aggregates a batch action. Results follow input order.
type BatchResult struct {
	Successful []string          `json:"successful"`
	Failed     []string          `json:"failed"`
	Results    []BatchItemResult `json:"results"`
}

// PublishedKind selects published collections for listing.
type PublishedKind string

const (
	PublishedKindAll      PublishedKind = ""
	PublishedKindEvents   PublishedKind = "events"
	PublishedKindNews     PublishedKind = "news"
	PublishedKindArticles PublishedKind = "articles"
)

// Collections returns the published collections selected by k.
func (k PublishedKind) Collections() ([]Collection, error) {
	switch k {
	case PublishedKindAll:
		return PublishedCollections, nil
	case PublishedKindEvents:
		return []Collection{CollectionPublishedEvents}, nil
	case PublishedKindNews:
		return []Collection{CollectionPublishedNews}, nil
	case PublishedKindArticles:
		return []Collection{CollectionPublishedArticles}, nil
	}
	return nil, &ValidationError{Field: "type", Message: "must be one of events, news, articles"}
}
