package moderation

import "context"

// Service is the main interface for the moderation and publication pipeline
type Service interface {
	// Intake
	Submit(ctx context.Context, req SubmitRequest) (*ContentItem, error)
	GetContent(ctx context.Context, id string, collection Collection) (*ContentItem, error)
	ResolveCollection(ctx context.Context, id string) (Collection, error)

	// Workflow
	Approve(ctx context.Context, req ApproveRequest) (*PublishedContent, error)
	Reject(ctx context.Context, req RejectRequest) error
	Edit(ctx context.Context, req EditRequest) (*ContentItem, error)

	// BatchAction never fails as a whole; per-id errors are reported in the result.
	BatchAction(ctx context.Context, req BatchRequest) BatchResult

	// Dashboards. Collection and kind may be empty to select every collection.
	GetModerationQueue(ctx context.Context, collection Collection) ([]*ContentItem, error)
	GetPendingCount(ctx context.Context, collection Collection) (int, error)
	GetPublishedContent(ctx context.Context, kind PublishedKind) ([]*PublishedContent, error)
	UpdatePublicationStatus(ctx context.Context, publishedID string, status PublicationStatus) (*PublishedContent, error)
	GetModerationHistory(ctx context.Context, contentID string) ([]*ModerationLogEntry, error)
}
