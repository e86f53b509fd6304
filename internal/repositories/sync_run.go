package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/shared"
)

// SyncRunRepository records [models.SyncRun] history.
//
// Runs are created in the running state and completed once with their final status and counts.
type SyncRunRepository struct {
	db DBTX
}

// NewSyncRunRepository creates a new [SyncRunRepository] with the given database connection
func NewSyncRunRepository(db DBTX) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts run.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_runs (
			id, status, history_count, watchlist_count, hidden_count, suppressed,
			error_message, started_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		string(run.Status),
		run.HistoryCount,
		run.WatchlistCount,
		run.HiddenCount,
		run.Suppressed,
		nullString(run.ErrorMessage),
		run.StartedAt.UTC(),
		nullTime(run),
	)
	if err != nil {
		return shared.StoreError("create run", fmt.Errorf("failed to insert sync run: %w", err))
	}
	return nil
}

// Complete stores the final status, counts and completion time of run.
func (r *SyncRunRepository) Complete(ctx context.Context, run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE sync_runs
		SET status = ?, history_count = ?, watchlist_count = ?, hidden_count = ?, suppressed = ?,
			error_message = ?, completed_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		run.HistoryCount,
		run.WatchlistCount,
		run.HiddenCount,
		run.Suppressed,
		nullString(run.ErrorMessage),
		nullTime(run),
		run.ID,
	)
	if err != nil {
		return shared.StoreError("complete run", fmt.Errorf("failed to update sync run: %w", err))
	}

	n, err := rowsAffected("complete run", result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: sync run %s", shared.ErrNotFound, run.ID)
	}
	return nil
}

// Get retrieves a run by id.
func (r *SyncRunRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	row := r.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, shared.StoreError("get run", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (r *SyncRunRepository) Recent(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, selectRuns+" ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, shared.StoreError("list runs", fmt.Errorf("failed to query sync runs: %w", err))
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, shared.StoreError("list runs", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("list runs", fmt.Errorf("row iteration error: %w", err))
	}
	return runs, nil
}

// LastSuccess returns the most recent successful run or an error wrapping [shared.ErrNotFound].
func (r *SyncRunRepository) LastSuccess(ctx context.Context) (*models.SyncRun, error) {
	row := r.db.QueryRowContext(ctx, selectRuns+" WHERE status = ? ORDER BY completed_at DESC LIMIT 1", string(models.RunStatusSuccess))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no successful sync", shared.ErrNotFound)
	}
	if err != nil {
		return nil, shared.StoreError("last success", err)
	}
	return run, nil
}

const selectRuns = `
	SELECT id, status, history_count, watchlist_count, hidden_count, suppressed,
		error_message, started_at, completed_at
	FROM sync_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.SyncRun, error) {
	var (
		run         models.SyncRun
		status      string
		errMessage  sql.NullString
		completedAt sql.NullTime
	)
	err := s.Scan(&run.ID, &status, &run.HistoryCount, &run.WatchlistCount, &run.HiddenCount, &run.Suppressed,
		&errMessage, &run.StartedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run.Status = models.RunStatus(status)
	run.ErrorMessage = errMessage.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(run *models.SyncRun) any {
	if run.CompletedAt == nil {
		return nil
	}
	return run.CompletedAt.UTC()
}
