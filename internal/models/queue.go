package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/showsync/internal/shared"
)

// Kind identifies the remote collection a queued mutation targets.
type Kind string

const (
	KindEpisode        Kind = "episode"
	KindMovie          Kind = "movie"
	KindShowWatchlist  Kind = "show_watchlist"
	KindMovieWatchlist Kind = "movie_watchlist"
	KindHiddenShow     Kind = "hidden_show"
	KindHiddenMovie    Kind = "hidden_movie"
)

// Kinds lists every known kind in export order.
var Kinds = []Kind{KindEpisode, KindMovie, KindShowWatchlist, KindMovieWatchlist, KindHiddenShow, KindHiddenMovie}

// ParseKind converts a slug into a [Kind].
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown kind %q", shared.ErrInvalidArgument, s)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsMovie reports whether k targets a movie collection. Movie kinds are excluded when the movies feature is off.
func (k Kind) IsMovie() bool {
	return k == KindMovie || k == KindMovieWatchlist || k == KindHiddenMovie
}

func (k Kind) String() string { return string(k) }

// Operation describes what the export engine must do with a queued item.
type Operation string

const (
	OperationAdd Operation = "add"
	// OperationAddWithClear requires the parent show's remote watch history to be cleared before the item is exported.
	OperationAddWithClear Operation = "add_with_clear"
)

// SyncQueueItem is one pending local mutation.
//
// Rows are never updated in place and duplicates for the same (RemoteID, Kind) may coexist.
type SyncQueueItem struct {
	ID           int64     // Store row id, zero until appended
	RemoteID     int64     // Trakt id of the episode, movie or show
	Kind         Kind      // Target collection
	Operation    Operation // Add or add-with-clear
	ParentListID *int64    // Show whose progress is cleared; set only for OperationAddWithClear
	CreatedAt    time.Time // When the row was appended
	UpdatedAt    time.Time // Local mutation time, sent as watched/listed/hidden at
}

// NewQueueItem builds a plain add mutation.
func NewQueueItem(remoteID int64, kind Kind, at time.Time) SyncQueueItem {
	return SyncQueueItem{
		RemoteID:  remoteID,
		Kind:      kind,
		Operation: OperationAdd,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// NewClearQueueItem builds an episode mutation that first clears showID's remote progress.
func NewClearQueueItem(remoteID, showID int64, at time.Time) SyncQueueItem {
	item := NewQueueItem(remoteID, KindEpisode, at)
	item.Operation = OperationAddWithClear
	item.ParentListID = &showID
	return item
}

// Validate checks the item against the queue invariants.
func (i SyncQueueItem) Validate() error {
	if i.RemoteID <= 0 {
		return fmt.Errorf("%w: remote id must be positive, got %d", shared.ErrInvalidInput, i.RemoteID)
	}
	if !i.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", shared.ErrInvalidInput, i.Kind)
	}
	switch i.Operation {
	case OperationAdd:
		if i.ParentListID != nil {
			return fmt.Errorf("%w: parent list id is only valid for %s", shared.ErrInvalidInput, OperationAddWithClear)
		}
	case OperationAddWithClear:
		if i.ParentListID == nil || *i.ParentListID <= 0 {
			return fmt.Errorf("%w: %s requires a parent list id", shared.ErrInvalidInput, OperationAddWithClear)
		}
	default:
		return fmt.Errorf("%w: unknown operation %q", shared.ErrInvalidInput, i.Operation)
	}
	if i.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: updated at is required", shared.ErrInvalidInput)
	}
	return nil
}

// ClearsProgress reports whether the item requires its parent show's progress to be cleared.
func (i SyncQueueItem) ClearsProgress() bool {
	return i.Operation == OperationAddWithClear && i.ParentListID != nil
}

// OfKind returns the items of the given kind, preserving order.
func OfKind(items []SyncQueueItem, kind Kind) []SyncQueueItem {
	var out []SyncQueueItem
	for _, item := range items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// DistinctByRemoteID keeps the first item for every remote id.
func DistinctByRemoteID(items []SyncQueueItem) []SyncQueueItem {
	seen := make(map[int64]struct{}, len(items))
	out := make([]SyncQueueItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.RemoteID]; ok {
			continue
		}
		seen[item.RemoteID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// RemoteIDs returns the remote ids of items in order.
func RemoteIDs(items []SyncQueueItem) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.RemoteID
	}
	return ids
}
