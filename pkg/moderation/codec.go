package moderation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Column names shared by stores and the service.
const (
	colID              = "id"
	colTitle           = "title"
	colContent         = "content"
	colContentHTML     = "content_html"
	colDescription     = "description"
	colAuthor          = "author"
	colOrganizer       = "organizer"
	colEventDate       = "event_date"
	colLocation        = "location"
	colSourceURL       = "source_url"
	colSource          = "source"
	colStatus          = "status"
	colPriority        = "priority"
	colApprovedBy      = "approved_by"
	colApprovedAt      = "approved_at"
	colRejectedBy      = "rejected_by"
	colRejectedAt      = "rejected_at"
	colRejectionReason = "rejection_reason"
	colCreatedAt       = "created_at"
	colUpdatedAt       = "updated_at"
	colPublishedAt     = "published_at"
	colOriginalEventID = "original_event_id"
	colOriginalArticle = "original_article_id"
	colMetadata        = "metadata"
	colContentID       = "content_id"
	colContentTable    = "content_table"
	colAction          = "action"
	colModeratorID     = "moderator_id"
	colReason          = "reason"
	colTimestamp       = "timestamp"
	colPublishedID     = "published_id"
	colPublishedTable  = "published_table"
	colOriginalID      = "original_id"
	colOriginalTable   = "original_table"
)

// bodyColumn is the column holding the main text of a collection.
func bodyColumn(c Collection) string {
	if c == CollectionEvents {
		return colDescription
	}
	return colContent
}

func originalIDColumn(c Collection) string {
	if c == CollectionEvents {
		return colOriginalEventID
	}
	return colOriginalArticle
}

// DecodeContentItem builds a ContentItem from a row of a moderated collection.
func DecodeContentItem(collection Collection, rec Record) (*ContentItem, error) {
	if !IsContentCollection(collection) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCollection, collection)
	}
	item := &ContentItem{
		ID:              stringValue(rec, colID),
		Collection:      collection,
		Title:           stringValue(rec, colTitle),
		Body:            stringValue(rec, bodyColumn(collection)),
		SourceURL:       stringValue(rec, colSourceURL),
		Source:          stringValue(rec, colSource),
		Status:          ContentStatus(stringValue(rec, colStatus)),
		Priority:        Priority(stringValue(rec, colPriority)),
		ApprovedBy:      stringValue(rec, colApprovedBy),
		RejectedBy:      stringValue(rec, colRejectedBy),
		RejectionReason: stringValue(rec, colRejectionReason),
	}
	if item.ID == "" {
		return nil, fmt.Errorf("record in %s has no id", collection)
	}

	var err error
	if item.ApprovedAt, err = optionalTime(rec, colApprovedAt); err != nil {
		return nil, err
	}
	if item.RejectedAt, err = optionalTime(rec, colRejectedAt); err != nil {
		return nil, err
	}
	if t, err := optionalTime(rec, colCreatedAt); err != nil {
		return nil, err
	} else if t != nil {
		item.CreatedAt = *t
	}
	if t, err := optionalTime(rec, colUpdatedAt); err != nil {
		return nil, err
	} else if t != nil {
		item.UpdatedAt = *t
	}

	switch collection {
	case CollectionEvents:
		ev := &EventDetails{
			Location:  stringValue(rec, colLocation),
			Organizer: stringValue(rec, colOrganizer),
		}
		if t, err := optionalTime(rec, colEventDate); err != nil {
			return nil, err
		} else if t != nil {
			ev.EventDate = *t
		}
		item.Variant = ev
	case CollectionArticles:
		item.Variant = &ArticleDetails{Author: stringValue(rec, colAuthor)}
	}
	return item, nil
}

// EncodeContentItem converts an item into an insertable row.
func EncodeContentItem(item *ContentItem) Record {
	rec := Record{
		colID:                       item.ID,
		colTitle:                    item.Title,
		bodyColumn(item.Collection): item.Body,
		colStatus:                   string(item.Status),
		colPriority:                 string(item.Priority),
		colSource:                   item.Source,
		colCreatedAt:                item.CreatedAt,
		colUpdatedAt:                item.UpdatedAt,
	}
	setIfNotEmpty(rec, colSourceURL, item.SourceURL)
	setIfNotEmpty(rec, colApprovedBy, item.ApprovedBy)
	setIfNotEmpty(rec, colRejectedBy, item.RejectedBy)
	setIfNotEmpty(rec, colRejectionReason, item.RejectionReason)
	if item.ApprovedAt != nil {
		rec[colApprovedAt] = *item.ApprovedAt
	}
	if item.RejectedAt != nil {
		rec[colRejectedAt] = *item.RejectedAt
	}
	switch v := item.Variant.(type) {
	case *EventDetails:
		rec[colEventDate] = v.EventDate
		setIfNotEmpty(rec, colLocation, v.Location)
		setIfNotEmpty(rec, colOrganizer, v.Organizer)
	case *ArticleDetails:
		setIfNotEmpty(rec, colAuthor, v.Author)
	}
	return rec
}

// EncodePublishedContent converts a published row for insertion.
func EncodePublishedContent(p *PublishedContent) Record {
	meta := map[string]any{
		"original_table": string(p.Metadata.OriginalTable),
		"priority":       string(p.Metadata.Priority),
	}
	if p.Metadata.ApprovedAt != nil {
		meta["approved_at"] = p.Metadata.ApprovedAt.UTC().Format(time.RFC3339Nano)
	}
	rec := Record{
		colID:                                 p.ID,
		colTitle:                              p.Title,
		colContent:                            p.Content,
		colPublishedAt:                        p.PublishedAt,
		colStatus:                             string(p.Status),
		colSource:                             p.Source,
		originalIDColumn(p.OriginalCollection): p.OriginalID,
		colMetadata:                           meta,
	}
	setIfNotEmpty(rec, colContentHTML, p.ContentHTML)
	setIfNotEmpty(rec, colAuthor, p.Author)
	setIfNotEmpty(rec, colApprovedBy, p.ApprovedBy)
	setIfNotEmpty(rec, colLocation, p.Location)
	if p.EventDate != nil {
		rec[colEventDate] = *p.EventDate
	}
	return rec
}

// DecodePublishedContent builds a PublishedContent from a published row.
func DecodePublishedContent(collection Collection, rec Record) (*PublishedContent, error) {
	p := &PublishedContent{
		ID:          stringValue(rec, colID),
		Collection:  collection,
		Title:       stringValue(rec, colTitle),
		Content:     stringValue(rec, colContent),
		ContentHTML: stringValue(rec, colContentHTML),
		Author:      stringValue(rec, colAuthor),
		Status:      PublicationStatus(stringValue(rec, colStatus)),
		Source:      stringValue(rec, colSource),
		ApprovedBy:  stringValue(rec, colApprovedBy),
		Location:    stringValue(rec, colLocation),
	}
	if p.ID == "" {
		return nil, fmt.Errorf("record in %s has no id", collection)
	}
	if id := stringValue(rec, colOriginalEventID); id != "" {
		p.OriginalID = id
		p.OriginalCollection = CollectionEvents
	} else {
		p.OriginalID = stringValue(rec, colOriginalArticle)
		p.OriginalCollection = CollectionArticles
	}

	var err error
	if t, err := optionalTime(rec, colPublishedAt); err != nil {
		return nil, err
	} else if t != nil {
		p.PublishedAt = *t
	}
	if p.EventDate, err = optionalTime(rec, colEventDate); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = optionalTime(rec, colUpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeMetadata(rec[colMetadata], &p.Metadata); err != nil {
		return nil, fmt.Errorf("metadata of %s/%s: %w", collection, p.ID, err)
	}
	if p.Metadata.OriginalTable != "" {
		p.OriginalCollection = p.Metadata.OriginalTable
	}
	return p, nil
}

// EncodeModerationLog converts an audit entry for insertion.
func EncodeModerationLog(e *ModerationLogEntry) Record {
	rec := Record{
		colID:           e.ID,
		colContentID:    e.ContentID,
		colContentTable: string(e.Collection),
		colAction:       string(e.Action),
		colModeratorID:  e.ModeratorID,
		colTimestamp:    e.Timestamp,
	}
	setIfNotEmpty(rec, colReason, e.Reason)
	return rec
}

// DecodeModerationLog builds an audit entry from a moderation_log row.
func DecodeModerationLog(rec Record) (*ModerationLogEntry, error) {
	e := &ModerationLogEntry{
		ID:          stringValue(rec, colID),
		ContentID:   stringValue(rec, colContentID),
		Collection:  Collection(stringValue(rec, colContentTable)),
		Action:      LogAction(stringValue(rec, colAction)),
		ModeratorID: stringValue(rec, colModeratorID),
		Reason:      stringValue(rec, colReason),
	}
	t, err := optionalTime(rec, colTimestamp)
	if err != nil {
		return nil, err
	}
	if t != nil {
		e.Timestamp = *t
	}
	return e, nil
}

// EncodePublicationLog converts a publication log entry for insertion.
func EncodePublicationLog(e *PublicationLogEntry) Record {
	rec := Record{
		colID:             e.ID,
		colPublishedID:    e.PublishedID,
		colPublishedTable: string(e.PublishedCollection),
		colOriginalID:     e.OriginalID,
		colOriginalTable:  string(e.OriginalCollection),
		colPublishedAt:    e.PublishedAt,
	}
	setIfNotEmpty(rec, colApprovedBy, e.ApprovedBy)
	return rec
}

func setIfNotEmpty(rec Record, key, value string) {
	if value != "" {
		rec[key] = value
	}
}

func stringValue(rec Record, key string) string {
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes stores hand back: time.Time values
// from pgx, and text from SQLite or JSON.
func ParseTime(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		if t.IsZero() {
			return nil, nil
		}
		return &t, nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil, nil
		}
		return t, nil
	case []byte:
		return ParseTime(string(t))
	case string:
		if t == "" {
			return nil, nil
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return &parsed, nil
			}
		}
		return nil, fmt.Errorf("%w: unrecognized time %q", ErrInvalidInput, t)
	default:
		return nil, fmt.Errorf("%w: unsupported time value %T", ErrInvalidInput, v)
	}
}

func optionalTime(rec Record, key string) (*time.Time, error) {
	t, err := ParseTime(rec[key])
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", key, err)
	}
	return t, nil
}

func decodeMetadata(v any, out *PublicationMetadata) error {
	var raw []byte
	switch m := v.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(m)
	case []byte:
		raw = m
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		raw = b
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
