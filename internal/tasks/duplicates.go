package tasks

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/services"
)

// HistoryReader reads the user's remote watched history.
type HistoryReader interface {
	GetHistory(ctx context.Context, typ services.HistoryType) ([]services.HistoryItem, error)
}

// HistorySnapshot is the remote watched state threaded through one history phase.
type HistorySnapshot struct {
	Episodes models.RemoteSnapshot
	Movies   models.RemoteSnapshot
}

// Duplicates holds the remote ids to drop from a history payload.
type Duplicates struct {
	Episodes map[int64]struct{}
	Movies   map[int64]struct{}
}

// Len returns the number of suppressed items.
func (d Duplicates) Len() int {
	return len(d.Episodes) + len(d.Movies)
}

// DuplicateDetector decides which history candidates Trakt already reflects.
//
// The remote snapshot for each media type is fetched at most once per phase; both fetches run concurrently and are
// awaited together.
type DuplicateDetector struct {
	remote HistoryReader
}

// NewDuplicateDetector creates a [DuplicateDetector] reading from remote.
func NewDuplicateDetector(remote HistoryReader) *DuplicateDetector {
	return &DuplicateDetector{remote: remote}
}

// Resolve returns the duplicate ids among episodes and movies and the snapshot to pass to the next call.
//
// A candidate is a duplicate when the snapshot holds its remote id at or after its local update time. A snapshot
// side is fetched only when it has not been fetched yet and there are candidates to check against it.
func (d *DuplicateDetector) Resolve(ctx context.Context, episodes, movies []models.SyncQueueItem, snapshot HistorySnapshot) (Duplicates, HistorySnapshot, error) {
	g, gctx := errgroup.WithContext(ctx)

	if len(episodes) > 0 && !snapshot.Episodes.Fetched {
		g.Go(func() error {
			snap, err := d.fetch(gctx, services.HistoryEpisodes)
			if err != nil {
				return err
			}
			snapshot.Episodes = snap
			return nil
		})
	}
	if len(movies) > 0 && !snapshot.Movies.Fetched {
		g.Go(func() error {
			snap, err := d.fetch(gctx, services.HistoryMovies)
			if err != nil {
				return err
			}
			snapshot.Movies = snap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Duplicates{}, snapshot, err
	}

	return Duplicates{
		Episodes: covered(episodes, snapshot.Episodes),
		Movies:   covered(movies, snapshot.Movies),
	}, snapshot, nil
}

func (d *DuplicateDetector) fetch(ctx context.Context, typ services.HistoryType) (models.RemoteSnapshot, error) {
	history, err := d.remote.GetHistory(ctx, typ)
	if err != nil {
		return models.RemoteSnapshot{}, err
	}

	snap := models.NewRemoteSnapshot(nil)
	for _, entry := range history {
		if id := entry.RemoteID(); id != 0 {
			snap.Record(id, entry.WatchedAt)
		}
	}
	return snap, nil
}

func covered(items []models.SyncQueueItem, snap models.RemoteSnapshot) map[int64]struct{} {
	dups := make(map[int64]struct{})
	for _, item := range items {
		if snap.Covers(item.RemoteID, item.UpdatedAt) {
			dups[item.RemoteID] = struct{}{}
		}
	}
	return dups
}

// withoutDuplicates returns items whose remote id is not in dups.
func withoutDuplicates(items []models.SyncQueueItem, dups map[int64]struct{}) []models.SyncQueueItem {
	if len(dups) == 0 {
		return items
	}
	out := make([]models.SyncQueueItem, 0, len(items))
	for _, item := range items {
		if _, ok := dups[item.RemoteID]; !ok {
			out = append(out, item)
		}
	}
	return out
}
