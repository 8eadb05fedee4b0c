package moderation

import (
	"context"
	"log/slog"
	"strings"
)

// AuditLogger appends moderation and publication records. Writes are
// best-effort: failures are logged and counted, never returned.
type AuditLogger struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

// NewAuditLogger creates an audit logger writing to store.
func NewAuditLogger(store Store, logger *slog.Logger, metrics *Metrics) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &AuditLogger{store: store, logger: logger, metrics: metrics}
}

// LogModeration appends one moderation_log row.
func (a *AuditLogger) LogModeration(ctx context.Context, entry *ModerationLogEntry) {
	if _, err := a.store.Insert(ctx, CollectionModerationLog, EncodeModerationLog(entry)); err != nil {
		a.logger.Error("failed to log moderation action",
			"content_id", entry.ContentID,
			"collection", entry.Collection,
			"action", entry.Action,
			"err", err)
		a.metrics.sideEffectFailed(SideEffectModerationLog)
	}
}

// LogPublication appends one publication_log row.
func (a *AuditLogger) LogPublication(ctx context.Context, entry *PublicationLogEntry) {
	if _, err := a.store.Insert(ctx, CollectionPublicationLog, EncodePublicationLog(entry)); err != nil {
		a.logger.Error("failed to log publication event",
			"published_id", entry.PublishedID,
			"original_id", entry.OriginalID,
			"err", err)
		a.metrics.sideEffectFailed(SideEffectPublicationLog)
	}
}

// GetModerationHistory returns the moderation log of a content id, newest first.
func (s *service) GetModerationHistory(ctx context.Context, contentID string) ([]*ModerationLogEntry, error) {
	if strings.TrimSpace(contentID) == "" {
		return nil, &ValidationError{Field: "contentId", Message: "is required"}
	}
	recs, err := s.store.Query(ctx, CollectionModerationLog,
		Filter{Eq(colContentID, contentID)},
		QueryOptions{OrderBy: colTimestamp, Desc: true})
	if err != nil {
		return nil, &ContentError{ContentID: contentID, Op: "history",
			Err: storeFailure(CollectionModerationLog, "query", err)}
	}
	entries := make([]*ModerationLogEntry, 0, len(recs))
	for _, rec := range recs {
		e, err := DecodeModerationLog(rec)
		if err != nil {
			s.logger.Warn("skipping malformed moderation log row", "content_id", contentID, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
