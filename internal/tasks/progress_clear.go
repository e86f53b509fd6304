package tasks

import (
	"context"

	"github.com/desertthunder/showsync/internal/services"
)

// ProgressRemover erases the remote watch history of whole shows.
type ProgressRemover interface {
	PostDeleteProgress(ctx context.Context, req services.SyncExportRequest) (*services.SyncExportResult, error)
}

// ProgressClearer issues at most one remote progress clear per show per run.
type ProgressClearer struct {
	remote ProgressRemover
}

// NewProgressClearer creates a [ProgressClearer] calling remote.
func NewProgressClearer(remote ProgressRemover) *ProgressClearer {
	return &ProgressClearer{remote: remote}
}

// ClearIfNeeded clears the shows in showIDs that are not in alreadyCleared with a single remote call.
//
// It returns the expanded cleared set and the ids cleared by this call. No call is made when nothing remains.
// alreadyCleared is not modified.
func (c *ProgressClearer) ClearIfNeeded(ctx context.Context, showIDs []int64, alreadyCleared map[int64]struct{}) (map[int64]struct{}, []int64, error) {
	next := make(map[int64]struct{}, len(alreadyCleared)+len(showIDs))
	for id := range alreadyCleared {
		next[id] = struct{}{}
	}

	var pending []int64
	seen := make(map[int64]struct{}, len(showIDs))
	for _, id := range showIDs {
		if _, done := next[id]; done {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		pending = append(pending, id)
	}

	if len(pending) == 0 {
		return next, nil, nil
	}

	shows := make([]services.SyncExportItem, len(pending))
	for i, id := range pending {
		shows[i] = services.SyncExportItem{IDs: services.IDs{Trakt: id}}
	}
	if _, err := c.remote.PostDeleteProgress(ctx, services.SyncExportRequest{Shows: shows}); err != nil {
		return alreadyCleared, nil, err
	}

	for _, id := range pending {
		next[id] = struct{}{}
	}
	return next, pending, nil
}
