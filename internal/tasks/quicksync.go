package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/services"
	"github.com/desertthunder/showsync/internal/shared"
)

// QuickSyncDeps are the collaborators of a [QuickSyncEngine]. Tx, Runs and Logger are optional.
type QuickSyncDeps struct {
	Remote   RemoteAPI
	Auth     Authorizer
	Settings Settings
	Queue    QueueStore
	Tx       Transactor
	Runs     RunRecorder
	Logger   *log.Logger
}

// QuickSyncOpts tunes batching, pacing and cleanup.
type QuickSyncOpts struct {
	BatchLimit  int
	BatchDelay  time.Duration
	HiddenDelay time.Duration
	Cleanup     string
	Sleep       func(ctx context.Context, d time.Duration) error
	Now         func() time.Time
}

// DefaultQuickSyncOpts derives engine options from the sync config section.
func DefaultQuickSyncOpts(cfg shared.SyncConfig) QuickSyncOpts {
	return QuickSyncOpts{
		BatchLimit:  cfg.BatchLimit,
		BatchDelay:  cfg.BatchDelay(),
		HiddenDelay: cfg.HiddenDelay(),
		Cleanup:     cfg.Cleanup,
	}
}

// QuickSyncEngine drains the sync queue to Trakt.
//
// A run checks authorization, reads the movies toggle once, then exports history, watchlist and hidden items in that
// order. Each phase reads bounded batches until its kinds are empty, pausing between batches. The queue is emptied
// when the run ends, whatever the outcome. Only one run may be active at a time.
type QuickSyncEngine struct {
	remote   RemoteAPI
	auth     Authorizer
	settings Settings
	queue    QueueStore
	tx       Transactor
	runs     RunRecorder
	logger   *log.Logger
	opts     QuickSyncOpts

	detector *DuplicateDetector
	clearer  *ProgressClearer

	running   atomic.Bool
	state     atomic.Int32
	lastState atomic.Int32

	mu    sync.Mutex
	runID string
}

// NewQuickSyncEngine creates a [QuickSyncEngine]. Zero options fall back to a batch limit of 100, no delays and
// full-queue cleanup.
func NewQuickSyncEngine(deps QuickSyncDeps, opts QuickSyncOpts) *QuickSyncEngine {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 100
	}
	if opts.Cleanup == "" {
		opts.Cleanup = shared.CleanupAll
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &QuickSyncEngine{
		remote:   deps.Remote,
		auth:     deps.Auth,
		settings: deps.Settings,
		queue:    deps.Queue,
		tx:       deps.Tx,
		runs:     deps.Runs,
		logger:   logger,
		opts:     opts,
		detector: NewDuplicateDetector(deps.Remote),
		clearer:  NewProgressClearer(deps.Remote),
	}
}

// State returns the current lifecycle state. It is [StateIdle] between runs.
func (e *QuickSyncEngine) State() State {
	return State(e.state.Load())
}

// LastState returns [StateDone] or [StateFailed] for the most recent finished run, or [StateIdle] before the first.
func (e *QuickSyncEngine) LastState() State {
	return State(e.lastState.Load())
}

// Running reports whether a run is in progress.
func (e *QuickSyncEngine) Running() bool {
	return e.running.Load()
}

// Run exports the queue and returns the per-phase counts.
//
// A second call while a run is active fails immediately with [shared.AlreadyRunningError] and leaves the queue
// alone. Any other outcome, including cancellation, empties the queue before Run returns. On failure the result
// still carries the counts reached before the error.
func (e *QuickSyncEngine) Run(ctx context.Context, progress chan<- ProgressUpdate) (result *SyncResult, err error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, &shared.AlreadyRunningError{RunID: e.currentRunID()}
	}
	defer e.running.Store(false)

	runID := shared.GenerateID()
	e.setRunID(runID)
	logger := shared.WithLogger(e.logger, "run_id", runID)
	logger.Info("Initialized.")

	started := e.opts.Now()
	result = &SyncResult{RunID: runID}
	run := models.NewSyncRun(runID, started)
	e.recordStart(ctx, logger, run)

	var attempted []models.Kind
	defer func() {
		if err != nil {
			e.setState(StateFailed)
		}
		removed, cerr := e.cleanup(context.WithoutCancel(ctx), logger, attempted)
		result.Removed = removed
		if cerr != nil && err == nil {
			err = cerr
		}
		sendProgress(progress, cleanupUpdate(removed))

		result.Duration = e.opts.Now().Sub(started)
		if err != nil {
			e.lastState.Store(int32(StateFailed))
			logger.Error("Sync failed.", "err", err, "items", result.Count())
		} else {
			e.lastState.Store(int32(StateDone))
			logger.Info("Finished with success.", "items", result.Count(), "suppressed", result.Suppressed)
			sendProgress(progress, finishedUpdate(result))
		}
		e.state.Store(int32(StateIdle))
		e.recordFinish(context.WithoutCancel(ctx), logger, run, result, err)
		e.setRunID("")
	}()

	err = e.run(ctx, logger, progress, result, &attempted)
	return result, err
}

func (e *QuickSyncEngine) run(ctx context.Context, logger *log.Logger, progress chan<- ProgressUpdate, result *SyncResult, attempted *[]models.Kind) error {
	e.setState(StateAuthorizing)
	sendProgress(progress, authorizeUpdate())
	if err := e.auth.CheckAuthorization(ctx); err != nil {
		return err
	}

	moviesEnabled, err := e.settings.MoviesEnabled(ctx)
	if err != nil {
		return err
	}
	logger.Debug("Settings loaded.", "movies_enabled", moviesEnabled)

	historyKinds := phaseKinds(moviesEnabled, models.KindEpisode, models.KindMovie)
	e.setState(StateExportHistory)
	*attempted = append(*attempted, historyKinds...)
	if err := e.exportHistory(ctx, shared.WithLogger(logger, "phase", ExportHistory), progress, historyKinds, result); err != nil {
		return err
	}

	watchlistKinds := phaseKinds(moviesEnabled, models.KindShowWatchlist, models.KindMovieWatchlist)
	e.setState(StateExportWatchlist)
	*attempted = append(*attempted, watchlistKinds...)
	if err := e.exportWatchlist(ctx, shared.WithLogger(logger, "phase", ExportWatchlist), progress, watchlistKinds, result); err != nil {
		return err
	}

	hiddenKinds := phaseKinds(moviesEnabled, models.KindHiddenShow, models.KindHiddenMovie)
	e.setState(StateExportHidden)
	*attempted = append(*attempted, hiddenKinds...)
	if err := e.exportHidden(ctx, shared.WithLogger(logger, "phase", ExportHidden), progress, hiddenKinds, result); err != nil {
		return err
	}

	e.setState(StateDone)
	return nil
}

// historyAccumulator carries state across the batches of the history phase.
type historyAccumulator struct {
	count    int
	snapshot HistorySnapshot
	cleared  map[int64]struct{}
}

func (e *QuickSyncEngine) exportHistory(ctx context.Context, logger *log.Logger, progress chan<- ProgressUpdate, kinds []models.Kind, result *SyncResult) error {
	acc := historyAccumulator{cleared: make(map[int64]struct{})}

	batch, err := e.queue.GetBatch(ctx, kinds, e.opts.BatchLimit)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		logger.Info("Nothing to export.")
		sendProgress(progress, nothingToExportUpdate(ExportHistory))
		return nil
	}

	for n := 1; ; n++ {
		episodes := models.DistinctByRemoteID(models.OfKind(batch, models.KindEpisode))
		movies := models.DistinctByRemoteID(models.OfKind(batch, models.KindMovie))

		// Progress clears cover every pending add-with-clear row, not just this batch.
		parents, err := e.queue.ClearParents(ctx, models.KindEpisode)
		if err != nil {
			return err
		}
		if len(parents) > 0 {
			cleared, issued, err := e.clearer.ClearIfNeeded(ctx, parents, acc.cleared)
			if err != nil {
				return err
			}
			acc.cleared = cleared
			if len(issued) > 0 {
				logger.Info("Cleared show progress.", "cleared", len(issued))
				sendProgress(progress, clearProgressUpdate(issued))
				result.ClearedShows += len(issued)
				if err := e.opts.Sleep(ctx, e.opts.BatchDelay); err != nil {
					return err
				}
			}
		}

		// Rows leave the queue before the remote call. A failed call loses this batch: delivery is at-most-once.
		if err := e.deleteBatch(ctx, []kindIDs{
			{kind: models.KindEpisode, ids: models.RemoteIDs(episodes)},
			{kind: models.KindMovie, ids: models.RemoteIDs(movies)},
		}); err != nil {
			return err
		}

		dups, snapshot, err := e.detector.Resolve(ctx, episodes, movies, acc.snapshot)
		if err != nil {
			return err
		}
		acc.snapshot = snapshot

		req := services.SyncExportRequest{
			Episodes: exportItems(withoutDuplicates(episodes, dups.Episodes), watchedAt),
			Movies:   exportItems(withoutDuplicates(movies, dups.Movies), watchedAt),
		}
		if !req.Empty() {
			if _, err := e.remote.PostSyncWatched(ctx, req); err != nil {
				return err
			}
		}

		exported := len(episodes) + len(movies)
		acc.count += exported
		result.HistoryCount = acc.count
		result.Suppressed += dups.Len()
		result.Batches++
		logger.Info("Exported batch.", "batch", n, "items", exported, "suppressed", dups.Len())
		sendProgress(progress, batchUpdate(ExportHistory, n, acc.count, BatchReport{
			Kinds: kindNames(kinds), Items: exported, Suppressed: dups.Len(), Sent: req.Len(),
		}))

		if batch, err = e.next(ctx, logger, progress, ExportHistory, kinds); err != nil || len(batch) == 0 {
			return err
		}
	}
}

func (e *QuickSyncEngine) exportWatchlist(ctx context.Context, logger *log.Logger, progress chan<- ProgressUpdate, kinds []models.Kind, result *SyncResult) error {
	batch, err := e.queue.GetBatch(ctx, kinds, e.opts.BatchLimit)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		logger.Info("Nothing to export.")
		sendProgress(progress, nothingToExportUpdate(ExportWatchlist))
		return nil
	}

	for n := 1; ; n++ {
		shows := models.DistinctByRemoteID(models.OfKind(batch, models.KindShowWatchlist))
		movies := models.DistinctByRemoteID(models.OfKind(batch, models.KindMovieWatchlist))

		// Delete before send, as in the history phase.
		if err := e.deleteBatch(ctx, []kindIDs{
			{kind: models.KindShowWatchlist, ids: models.RemoteIDs(shows)},
			{kind: models.KindMovieWatchlist, ids: models.RemoteIDs(movies)},
		}); err != nil {
			return err
		}

		req := services.SyncExportRequest{
			Shows:  exportItems(shows, listedAt),
			Movies: exportItems(movies, listedAt),
		}
		if _, err := e.remote.PostSyncWatchlist(ctx, req); err != nil {
			return err
		}

		exported := len(shows) + len(movies)
		result.WatchlistCount += exported
		result.Batches++
		logger.Info("Exported batch.", "batch", n, "items", exported)
		sendProgress(progress, batchUpdate(ExportWatchlist, n, result.WatchlistCount, BatchReport{
			Kinds: kindNames(kinds), Items: exported, Sent: req.Len(),
		}))

		if batch, err = e.next(ctx, logger, progress, ExportWatchlist, kinds); err != nil || len(batch) == 0 {
			return err
		}
	}
}

func (e *QuickSyncEngine) exportHidden(ctx context.Context, logger *log.Logger, progress chan<- ProgressUpdate, kinds []models.Kind, result *SyncResult) error {
	batch, err := e.queue.GetBatch(ctx, kinds, e.opts.BatchLimit)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		logger.Info("Nothing to export.")
		sendProgress(progress, nothingToExportUpdate(ExportHidden))
		return nil
	}

	for n := 1; ; n++ {
		shows := models.DistinctByRemoteID(models.OfKind(batch, models.KindHiddenShow))
		movies := models.DistinctByRemoteID(models.OfKind(batch, models.KindHiddenMovie))

		// Delete before send, as in the history phase.
		if err := e.deleteBatch(ctx, []kindIDs{
			{kind: models.KindHiddenShow, ids: models.RemoteIDs(shows)},
			{kind: models.KindHiddenMovie, ids: models.RemoteIDs(movies)},
		}); err != nil {
			return err
		}

		if len(shows) > 0 {
			if _, err := e.remote.PostHiddenShows(ctx, exportItems(shows, hiddenAt)); err != nil {
				return err
			}
		}
		if len(shows) > 0 && len(movies) > 0 {
			if err := e.opts.Sleep(ctx, e.opts.HiddenDelay); err != nil {
				return err
			}
		}
		if len(movies) > 0 {
			if _, err := e.remote.PostHiddenMovies(ctx, exportItems(movies, hiddenAt)); err != nil {
				return err
			}
		}

		exported := len(shows) + len(movies)
		result.HiddenCount += exported
		result.Batches++
		logger.Info("Exported batch.", "batch", n, "items", exported)
		sendProgress(progress, batchUpdate(ExportHidden, n, result.HiddenCount, BatchReport{
			Kinds: kindNames(kinds), Items: exported, Sent: exported,
		}))

		if batch, err = e.next(ctx, logger, progress, ExportHidden, kinds); err != nil || len(batch) == 0 {
			return err
		}
	}
}

// next re-polls the queue after a batch and, when more rows are pending, waits before returning them.
func (e *QuickSyncEngine) next(ctx context.Context, logger *log.Logger, progress chan<- ProgressUpdate, phase Phase, kinds []models.Kind) ([]models.SyncQueueItem, error) {
	batch, err := e.queue.GetBatch(ctx, kinds, e.opts.BatchLimit)
	if err != nil || len(batch) == 0 {
		return nil, err
	}

	logger.Debug("More items pending.", "items", len(batch))
	sendProgress(progress, waitUpdate(phase, e.opts.BatchDelay))
	if err := e.opts.Sleep(ctx, e.opts.BatchDelay); err != nil {
		return nil, err
	}

	// Rows appended during the pause are picked up by this read.
	return e.queue.GetBatch(ctx, kinds, e.opts.BatchLimit)
}

type kindIDs struct {
	kind models.Kind
	ids  []int64
}

// deleteBatch removes the batch's rows of every kind in one transaction when a [Transactor] is configured.
func (e *QuickSyncEngine) deleteBatch(ctx context.Context, groups []kindIDs) error {
	del := func(q QueueStore) error {
		for _, g := range groups {
			if len(g.ids) == 0 {
				continue
			}
			if _, err := q.Delete(ctx, g.ids, g.kind); err != nil {
				return err
			}
		}
		return nil
	}

	if e.tx == nil {
		return del(e.queue)
	}
	return e.tx.InTx(ctx, del)
}

func (e *QuickSyncEngine) cleanup(ctx context.Context, logger *log.Logger, attempted []models.Kind) (int64, error) {
	var (
		removed int64
		err     error
	)
	switch e.opts.Cleanup {
	case shared.CleanupAttempted:
		removed, err = e.queue.DeleteKinds(ctx, attempted...)
	default:
		removed, err = e.queue.DeleteAll(ctx)
	}
	if err != nil {
		logger.Error("Failed to clear queue.", "err", err)
		return removed, fmt.Errorf("failed to clear queue: %w", err)
	}
	if removed > 0 {
		logger.Debug("Cleared remaining queue.", "items", removed, "mode", e.opts.Cleanup)
	}
	return removed, nil
}

func (e *QuickSyncEngine) recordStart(ctx context.Context, logger *log.Logger, run *models.SyncRun) {
	if e.runs == nil {
		return
	}
	if err := e.runs.Create(ctx, run); err != nil {
		logger.Warn("Failed to record run start.", "err", err)
	}
}

func (e *QuickSyncEngine) recordFinish(ctx context.Context, logger *log.Logger, run *models.SyncRun, result *SyncResult, err error) {
	if e.runs == nil {
		return
	}

	completed := e.opts.Now()
	run.CompletedAt = &completed
	run.HistoryCount = result.HistoryCount
	run.WatchlistCount = result.WatchlistCount
	run.HiddenCount = result.HiddenCount
	run.Suppressed = result.Suppressed
	switch {
	case err == nil:
		run.Status = models.RunStatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		run.Status = models.RunStatusCancelled
		run.ErrorMessage = err.Error()
	default:
		run.Status = models.RunStatusFailed
		run.ErrorMessage = err.Error()
	}

	if rerr := e.runs.Complete(ctx, run); rerr != nil {
		logger.Warn("Failed to record run result.", "err", rerr)
	}
}

func (e *QuickSyncEngine) setState(s State) {
	e.state.Store(int32(s))
}

func (e *QuickSyncEngine) setRunID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runID = id
}

func (e *QuickSyncEngine) currentRunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// phaseKinds returns the kinds a phase exports, dropping the movie kind when movies are disabled.
func phaseKinds(moviesEnabled bool, show, movie models.Kind) []models.Kind {
	if moviesEnabled {
		return []models.Kind{show, movie}
	}
	return []models.Kind{show}
}

func kindNames(kinds []models.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.String()
	}
	return out
}
