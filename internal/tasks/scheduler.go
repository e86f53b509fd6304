package tasks

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/shared"
)

// QuickSyncSettings exposes the toggle that turns enqueueing on.
type QuickSyncSettings interface {
	QuickSyncEnabled(ctx context.Context) (bool, error)
}

// Session reports whether a Trakt token is stored.
type Session interface {
	Exists(ctx context.Context) (bool, error)
}

// ScheduleRequest describes items of one kind to enqueue.
type ScheduleRequest struct {
	Kind          models.Kind
	RemoteIDs     []int64
	ShowID        int64     // Parent show for episode requests with ClearProgress
	ClearProgress bool      // Episodes only
	At            time.Time // Local mutation time; zero means now
}

// Scheduler appends local mutations to the sync queue for the next export run.
type Scheduler struct {
	queue    QueueStore
	tx       Transactor
	settings QuickSyncSettings
	session  Session
	logger   *log.Logger
	now      func() time.Time
}

// NewScheduler creates a [Scheduler]. tx may be nil, in which case items are appended without a transaction.
func NewScheduler(queue QueueStore, tx Transactor, settings QuickSyncSettings, session Session, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Scheduler{
		queue:    queue,
		tx:       tx,
		settings: settings,
		session:  session,
		logger:   logger,
		now:      time.Now,
	}
}

// Schedule enqueues req and returns the number of rows appended.
//
// Nothing is appended when quick sync is disabled or the user is not logged in to Trakt.
func (s *Scheduler) Schedule(ctx context.Context, req ScheduleRequest) (int, error) {
	if len(req.RemoteIDs) == 0 {
		return 0, nil
	}

	ok, err := s.enabled(ctx)
	if err != nil || !ok {
		return 0, err
	}

	at := req.At
	if at.IsZero() {
		at = s.now()
	}

	items := make([]*models.SyncQueueItem, 0, len(req.RemoteIDs))
	for _, id := range req.RemoteIDs {
		var item models.SyncQueueItem
		if req.ClearProgress && req.Kind == models.KindEpisode {
			item = models.NewClearQueueItem(id, req.ShowID, at)
		} else {
			item = models.NewQueueItem(id, req.Kind, at)
		}
		if err := item.Validate(); err != nil {
			return 0, err
		}
		items = append(items, &item)
	}

	appendAll := func(q QueueStore) error { return q.Append(ctx, items...) }
	if s.tx != nil {
		err = s.tx.InTx(ctx, appendAll)
	} else {
		err = appendAll(s.queue)
	}
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Scheduled quick sync items.", "kind", req.Kind, "items", len(items), "clear", req.ClearProgress)
	return len(items), nil
}

// ScheduleEpisodes enqueues watched episodes of showID. With clearProgress the show's remote progress is reset
// before the episodes are exported.
func (s *Scheduler) ScheduleEpisodes(ctx context.Context, episodeIDs []int64, showID int64, clearProgress bool) (int, error) {
	return s.Schedule(ctx, ScheduleRequest{
		Kind:          models.KindEpisode,
		RemoteIDs:     episodeIDs,
		ShowID:        showID,
		ClearProgress: clearProgress,
	})
}

func (s *Scheduler) ScheduleMovies(ctx context.Context, movieIDs []int64) (int, error) {
	return s.Schedule(ctx, ScheduleRequest{Kind: models.KindMovie, RemoteIDs: movieIDs})
}

func (s *Scheduler) ScheduleShowsWatchlist(ctx context.Context, showIDs []int64) (int, error) {
	return s.Schedule(ctx, ScheduleRequest{Kind: models.KindShowWatchlist, RemoteIDs: showIDs})
}

func (s *Scheduler) ScheduleMoviesWatchlist(ctx context.Context, movieIDs []int64) (int, error) {
	return s.Schedule(ctx, ScheduleRequest{Kind: models.KindMovieWatchlist, RemoteIDs: movieIDs})
}

func (s *Scheduler) ScheduleHiddenShows(ctx context.Context, showIDs []int64) (int, error) {
	return s.Schedule(ctx, ScheduleRequest{Kind: models.KindHiddenShow, RemoteIDs: showIDs})
}

func (s *Scheduler) ScheduleHiddenMovies(ctx context.Context, movieIDs []int64) (int, error) {
	return s.Schedule(ctx, ScheduleRequest{Kind: models.KindHiddenMovie, RemoteIDs: movieIDs})
}

func (s *Scheduler) enabled(ctx context.Context) (bool, error) {
	on, err := s.settings.QuickSyncEnabled(ctx)
	if err != nil {
		return false, err
	}
	if !on {
		s.logger.Debug("Quick sync disabled, skipping.")
		return false, nil
	}

	loggedIn, err := s.session.Exists(ctx)
	if err != nil {
		return false, err
	}
	if !loggedIn {
		s.logger.Debug("Not logged in to Trakt, skipping.")
	}
	return loggedIn, nil
}
