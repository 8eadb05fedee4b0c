package sqlite

import "time"

// Row models exist only to let gorm create the schema; reads and writes go
// through maps so the store stays collection-agnostic.

type eventRow struct {
	ID              string     `gorm:"column:id;primaryKey"`
	Title           string     `gorm:"column:title;not null"`
	Description     string     `gorm:"column:description;not null"`
	EventDate       *time.Time `gorm:"column:event_date"`
	Location        *string    `gorm:"column:location"`
	Organizer       *string    `gorm:"column:organizer"`
	SourceURL       *string    `gorm:"column:source_url"`
	Source          *string    `gorm:"column:source"`
	Status          string     `gorm:"column:status;index;not null;default:pending"`
	Priority        string     `gorm:"column:priority;not null;default:medium"`
	ApprovedBy      *string    `gorm:"column:approved_by"`
	ApprovedAt      *time.Time `gorm:"column:approved_at"`
	RejectedBy      *string    `gorm:"column:rejected_by"`
	RejectedAt      *time.Time `gorm:"column:rejected_at"`
	RejectionReason *string    `gorm:"column:rejection_reason"`
	CreatedAt       *time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt       *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (eventRow) TableName() string { return "events" }

type articleRow struct {
	ID              string     `gorm:"column:id;primaryKey"`
	Title           string     `gorm:"column:title;not null"`
	Content         string     `gorm:"column:content;not null"`
	Author          *string    `gorm:"column:author"`
	SourceURL       *string    `gorm:"column:source_url"`
	Source          *string    `gorm:"column:source"`
	Status          string     `gorm:"column:status;index;not null;default:pending"`
	Priority        string     `gorm:"column:priority;not null;default:medium"`
	ApprovedBy      *string    `gorm:"column:approved_by"`
	ApprovedAt      *time.Time `gorm:"column:approved_at"`
	RejectedBy      *string    `gorm:"column:rejected_by"`
	RejectedAt      *time.Time `gorm:"column:rejected_at"`
	RejectionReason *string    `gorm:"column:rejection_reason"`
	CreatedAt       *time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt       *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (articleRow) TableName() string { return "newsroom_articles" }

// publishedRow backs published_events, published_news and published_articles.
type publishedRow struct {
	ID                string     `gorm:"column:id;primaryKey"`
	Title             string     `gorm:"column:title;not null"`
	Content           *string    `gorm:"column:content"`
	ContentHTML       *string    `gorm:"column:content_html"`
	Author            *string    `gorm:"column:author"`
	PublishedAt       time.Time  `gorm:"column:published_at;not null"`
	Status            string     `gorm:"column:status;not null;default:published"`
	Source            *string    `gorm:"column:source"`
	ApprovedBy        *string    `gorm:"column:approved_by"`
	OriginalEventID   *string    `gorm:"column:original_event_id"`
	OriginalArticleID *string    `gorm:"column:original_article_id"`
	EventDate         *time.Time `gorm:"column:event_date"`
	Location          *string    `gorm:"column:location"`
	Metadata          *string    `gorm:"column:metadata"`
	UpdatedAt         *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

type moderationLogRow struct {
	ID           string    `gorm:"column:id;primaryKey"`
	ContentID    string    `gorm:"column:content_id;index;not null"`
	ContentTable string    `gorm:"column:content_table;not null"`
	Action       string    `gorm:"column:action;not null"`
	ModeratorID  string    `gorm:"column:moderator_id;not null"`
	Reason       *string   `gorm:"column:reason"`
	Timestamp    time.Time `gorm:"column:timestamp;not null"`
}

func (moderationLogRow) TableName() string { return "moderation_log" }

type publicationLogRow struct {
	ID             string    `gorm:"column:id;primaryKey"`
	PublishedID    string    `gorm:"column:published_id;not null"`
	PublishedTable string    `gorm:"column:published_table;not null"`
	OriginalID     string    `gorm:"column:original_id;not null"`
	OriginalTable  string    `gorm:"column:original_table;not null"`
	ApprovedBy     *string   `gorm:"column:approved_by"`
	PublishedAt    time.Time `gorm:"column:published_at;not null"`
}

func (publicationLogRow) TableName() string { return "publication_log" }
