package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/services"
)

// RemoteAPI is the Trakt surface the export engine calls.
type RemoteAPI interface {
	PostSyncWatched(ctx context.Context, req services.SyncExportRequest) (*services.SyncExportResult, error)
	PostSyncWatchlist(ctx context.Context, req services.SyncExportRequest) (*services.SyncExportResult, error)
	PostHiddenShows(ctx context.Context, items []services.SyncExportItem) (*services.SyncExportResult, error)
	PostHiddenMovies(ctx context.Context, items []services.SyncExportItem) (*services.SyncExportResult, error)
	PostDeleteProgress(ctx context.Context, req services.SyncExportRequest) (*services.SyncExportResult, error)
	GetHistory(ctx context.Context, typ services.HistoryType) ([]services.HistoryItem, error)
}

// Authorizer verifies the remote session before a run.
type Authorizer interface {
	CheckAuthorization(ctx context.Context) error
}

// Settings exposes the feature toggles read once per run.
type Settings interface {
	MoviesEnabled(ctx context.Context) (bool, error)
}

// QueueStore is the persistent sync queue.
type QueueStore interface {
	Append(ctx context.Context, items ...*models.SyncQueueItem) error
	GetBatch(ctx context.Context, kinds []models.Kind, limit int) ([]models.SyncQueueItem, error)
	Delete(ctx context.Context, remoteIDs []int64, kind models.Kind) (int64, error)
	DeleteKinds(ctx context.Context, kinds ...models.Kind) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	ClearParents(ctx context.Context, kinds ...models.Kind) ([]int64, error)
}

// Transactor runs fn against a queue bound to a single transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(q QueueStore) error) error
}

// RunRecorder persists run history.
type RunRecorder interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Complete(ctx context.Context, run *models.SyncRun) error
}

// Exporter runs a full export. Implemented by [QuickSyncEngine].
type Exporter interface {
	Run(ctx context.Context, progress chan<- ProgressUpdate) (*SyncResult, error)
}

// SyncResult reports what a run exported.
//
// Counts include items suppressed as duplicates, matching what was drained from the queue.
type SyncResult struct {
	RunID          string        `json:"run_id"`
	HistoryCount   int           `json:"history_count"`
	WatchlistCount int           `json:"watchlist_count"`
	HiddenCount    int           `json:"hidden_count"`
	Suppressed     int           `json:"suppressed"`
	ClearedShows   int           `json:"cleared_shows"`
	Batches        int           `json:"batches"`
	Removed        int64         `json:"removed"`
	Duration       time.Duration `json:"duration"`
}

// Count returns the total number of items exported across all phases.
func (r *SyncResult) Count() int {
	return r.HistoryCount + r.WatchlistCount + r.HiddenCount
}

// State is the position of the engine in its run lifecycle.
type State int32

const (
	StateIdle State = iota
	StateAuthorizing
	StateExportHistory
	StateExportWatchlist
	StateExportHidden
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAuthorizing:
		return "AUTHORIZING"
	case StateExportHistory:
		return "EXPORT_HISTORY"
	case StateExportWatchlist:
		return "EXPORT_WATCHLIST"
	case StateExportHidden:
		return "EXPORT_HIDDEN"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// exportItems converts queue items into payload entries, stamping each with stamp(updatedAt).
func exportItems(items []models.SyncQueueItem, stamp func(item *services.SyncExportItem, at string)) []services.SyncExportItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]services.SyncExportItem, 0, len(items))
	for _, item := range items {
		entry := services.SyncExportItem{IDs: services.IDs{Trakt: item.RemoteID}}
		stamp(&entry, services.FormatTime(item.UpdatedAt))
		out = append(out, entry)
	}
	return out
}

func watchedAt(item *services.SyncExportItem, at string) { item.WatchedAt = at }
func listedAt(item *services.SyncExportItem, at string) { item.ListedAt = at }
func hiddenAt(item *services.SyncExportItem, at string) { item.HiddenAt = at }
