package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/showsync/internal/formatter"
	"github.com/desertthunder/showsync/internal/shared"
	"github.com/desertthunder/showsync/internal/tasks"
)

// Sync exports every pending item to Trakt.
//
// A file lock keeps a second process from exporting the same queue; within a process the engine's own guard applies.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	quiet := cmd.Bool("quiet")
	go func() {
		defer close(done)
		for update := range progress {
			if !quiet {
				r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
			}
		}
	}()

	result, err := engine.Run(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.writePlain("%s\n", formatter.SummaryTable("Sync complete", summaryRows(result)))
}

// lock takes the cross-process sync lock, failing fast when another process holds it.
func (r *Runner) lock() (func(), error) {
	path := r.config.Sync.LockPath
	if path == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !locked {
		return nil, &shared.AlreadyRunningError{}
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			r.logger.Warn("failed to release sync lock", "path", path, "error", err)
		}
	}, nil
}

func summaryRows(result *tasks.SyncResult) []formatter.Row {
	return []formatter.Row{
		{Label: "Run", Value: result.RunID},
		{Label: "History", Value: strconv.Itoa(result.HistoryCount)},
		{Label: "Watchlist", Value: strconv.Itoa(result.WatchlistCount)},
		{Label: "Hidden", Value: strconv.Itoa(result.HiddenCount)},
		{Label: "Already on Trakt", Value: strconv.Itoa(result.Suppressed)},
		{Label: "Shows reset", Value: strconv.Itoa(result.ClearedShows)},
		{Label: "Batches", Value: strconv.Itoa(result.Batches)},
		{Label: "Rows removed", Value: strconv.FormatInt(result.Removed, 10)},
		{Label: "Duration", Value: result.Duration.Round(time.Millisecond).String()},
	}
}
