package moderation

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// BatchAction folds one decision over req.ContentIDs. Each id is resolved
// independently, so a batch may mix collections. A failing id is recorded
// and the fold continues.
func (s *service) BatchAction(ctx context.Context, req BatchRequest) BatchResult {
	results := make([]BatchItemResult, len(req.ContentIDs))

	if s.batchConcurrency <= 1 {
		for i, id := range req.ContentIDs {
			results[i] = s.batchItem(ctx, req, id)
		}
	} else {
		// Each goroutine owns one slot, so results keep input order.
		var g errgroup.Group
		g.SetLimit(s.batchConcurrency)
		for i, id := range req.ContentIDs {
			g.Go(func() error {
				results[i] = s.batchItem(ctx, req, id)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := BatchResult{
		Successful: []string{},
		Failed:     []string{},
		Results:    results,
	}
	for _, r := range results {
		if r.Status == BatchItemFailed {
			out.Failed = append(out.Failed, r.ContentID)
		} else {
			out.Successful = append(out.Successful, r.ContentID)
		}
	}

	s.metrics.BatchItems.WithLabelValues(string(req.Action)).Observe(float64(len(req.ContentIDs)))
	s.logger.Info("batch moderation finished",
		"action", req.Action,
		"moderator_id", req.ModeratorID,
		"successful", len(out.Successful),
		"failed", len(out.Failed))
	return out
}

func (s *service) batchItem(ctx context.Context, req BatchRequest, id string) BatchItemResult {
	result, err := s.applyBatchAction(ctx, req, id)
	if err != nil {
		s.logger.Warn("batch action failed", "action", req.Action, "content_id", id, "err", err)
		return BatchItemResult{ContentID: id, Status: BatchItemFailed, Error: err.Error()}
	}
	return result
}

func (s *service) applyBatchAction(ctx context.Context, req BatchRequest, id string) (BatchItemResult, error) {
	switch req.Action {
	case ActionApprove:
		collection, err := s.ResolveCollection(ctx, id)
		if err != nil {
			return BatchItemResult{}, err
		}
		published, err := s.Approve(ctx, ApproveRequest{ContentID: id, ModeratorID: req.ModeratorID, Collection: collection})
		if err != nil {
			return BatchItemResult{}, err
		}
		return BatchItemResult{ContentID: id, Status: BatchItemApproved, Data: published}, nil

	case ActionReject:
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			return BatchItemResult{}, &ValidationError{Field: colReason, Message: "is required for rejection"}
		}
		collection, err := s.ResolveCollection(ctx, id)
		if err != nil {
			return BatchItemResult{}, err
		}
		err = s.Reject(ctx, RejectRequest{ContentID: id, ModeratorID: req.ModeratorID, Reason: reason, Collection: collection})
		if err != nil {
			return BatchItemResult{}, err
		}
		return BatchItemResult{ContentID: id, Status: BatchItemRejected, Reason: reason}, nil

	default:
		return BatchItemResult{}, &ValidationError{Field: "action", Message: "must be approve or reject"}
	}
}
