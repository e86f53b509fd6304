package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/shared"
)

// deleteChunk keeps IN (...) lists well under SQLite's bound parameter limit.
const deleteChunk = 500

// SyncQueueRepository persists [models.SyncQueueItem] rows in the sync_queue table.
type SyncQueueRepository struct {
	db DBTX
}

// NewSyncQueueRepository creates a new [SyncQueueRepository] with the given database connection
func NewSyncQueueRepository(db DBTX) *SyncQueueRepository {
	return &SyncQueueRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *SyncQueueRepository) WithTx(tx *sql.Tx) *SyncQueueRepository {
	return &SyncQueueRepository{db: tx}
}

// Append validates and inserts items, assigning their row ids. Duplicates are allowed.
//
// Wrap the call in [Transactions.WithTransaction] to make a multi-item append atomic.
func (r *SyncQueueRepository) Append(ctx context.Context, items ...*models.SyncQueueItem) error {
	now := time.Now().UTC()
	for _, item := range items {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.UpdatedAt.IsZero() {
			item.UpdatedAt = item.CreatedAt
		}
		if err := item.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	query := `
		INSERT INTO sync_queue (remote_id, kind, operation, parent_list_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, item := range items {
		var parent any
		if item.ParentListID != nil {
			parent = *item.ParentListID
		}

		result, err := r.db.ExecContext(ctx, query,
			item.RemoteID, string(item.Kind), string(item.Operation), parent, item.CreatedAt.UTC(), item.UpdatedAt.UTC())
		if err != nil {
			return shared.StoreError("append", fmt.Errorf("failed to insert queue item: %w", err))
		}
		id, err := result.LastInsertId()
		if err != nil {
			return shared.StoreError("append", fmt.Errorf("failed to get inserted id: %w", err))
		}
		item.ID = id
	}
	return nil
}

// GetBatch returns up to limit items of the given kinds.
//
// Rows are ordered by the position of their kind in kinds, then by insertion, so repeated calls without intervening
// writes return the same batch.
func (r *SyncQueueRepository) GetBatch(ctx context.Context, kinds []models.Kind, limit int) ([]models.SyncQueueItem, error) {
	if len(kinds) == 0 || limit <= 0 {
		return nil, nil
	}

	var order strings.Builder
	order.WriteString("CASE kind")
	args := make([]any, 0, len(kinds)*2+1)
	for i, k := range kinds {
		order.WriteString(" WHEN ? THEN ")
		order.WriteString(fmt.Sprint(i))
		args = append(args, string(k))
	}
	order.WriteString(" END")
	for _, k := range kinds {
		args = append(args, string(k))
	}
	args = append(args, limit)

	query := `
		SELECT id, remote_id, kind, operation, parent_list_id, created_at, updated_at
		FROM sync_queue
		WHERE kind IN (` + placeholders(len(kinds)) + `)
		ORDER BY ` + order.String() + `, id ASC
		LIMIT ?
	`
	return r.query(ctx, "get batch", query, args...)
}

// List returns every item of the given kinds (all kinds when none are given) in insertion order.
func (r *SyncQueueRepository) List(ctx context.Context, kinds ...models.Kind) ([]models.SyncQueueItem, error) {
	query := `SELECT id, remote_id, kind, operation, parent_list_id, created_at, updated_at FROM sync_queue`
	where, args := kindFilter(kinds)
	return r.query(ctx, "list", query+where+" ORDER BY id ASC", args...)
}

// Count returns the number of items of the given kinds (all kinds when none are given).
func (r *SyncQueueRepository) Count(ctx context.Context, kinds ...models.Kind) (int, error) {
	where, args := kindFilter(kinds)

	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_queue"+where, args...).Scan(&count); err != nil {
		return 0, shared.StoreError("count", fmt.Errorf("failed to count queue items: %w", err))
	}
	return count, nil
}

// Delete removes every row of kind whose remote id is in remoteIDs, including duplicates.
func (r *SyncQueueRepository) Delete(ctx context.Context, remoteIDs []int64, kind models.Kind) (int64, error) {
	var total int64
	for _, ids := range chunk(remoteIDs, deleteChunk) {
		args := make([]any, 0, len(ids)+1)
		args = append(args, string(kind))
		for _, id := range ids {
			args = append(args, id)
		}

		query := `DELETE FROM sync_queue WHERE kind = ? AND remote_id IN (` + placeholders(len(ids)) + `)`
		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, shared.StoreError("delete", fmt.Errorf("failed to delete queue items: %w", err))
		}
		n, err := rowsAffected("delete", result)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DeleteKinds removes every row of the given kinds.
func (r *SyncQueueRepository) DeleteKinds(ctx context.Context, kinds ...models.Kind) (int64, error) {
	if len(kinds) == 0 {
		return 0, nil
	}
	where, args := kindFilter(kinds)
	result, err := r.db.ExecContext(ctx, "DELETE FROM sync_queue"+where, args...)
	if err != nil {
		return 0, shared.StoreError("delete kinds", fmt.Errorf("failed to delete queue items: %w", err))
	}
	return rowsAffected("delete kinds", result)
}

// DeleteAll empties the queue.
func (r *SyncQueueRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sync_queue")
	if err != nil {
		return 0, shared.StoreError("delete all", fmt.Errorf("failed to clear queue: %w", err))
	}
	return rowsAffected("delete all", result)
}

// ClearParents returns the distinct parent list ids of every pending add-with-clear row of the given kinds,
// ordered by first appearance.
func (r *SyncQueueRepository) ClearParents(ctx context.Context, kinds ...models.Kind) ([]int64, error) {
	args := []any{string(models.OperationAddWithClear)}
	query := `SELECT parent_list_id FROM sync_queue WHERE operation = ? AND parent_list_id IS NOT NULL`
	if len(kinds) > 0 {
		query += ` AND kind IN (` + placeholders(len(kinds)) + `)`
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	query += ` GROUP BY parent_list_id ORDER BY MIN(id) ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shared.StoreError("clear parents", fmt.Errorf("failed to query parent lists: %w", err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, shared.StoreError("clear parents", fmt.Errorf("failed to scan parent list: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError("clear parents", fmt.Errorf("row iteration error: %w", err))
	}
	return ids, nil
}

func (r *SyncQueueRepository) query(ctx context.Context, op, query string, args ...any) ([]models.SyncQueueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shared.StoreError(op, fmt.Errorf("failed to query queue: %w", err))
	}
	defer rows.Close()

	var items []models.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, shared.StoreError(op, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StoreError(op, fmt.Errorf("row iteration error: %w", err))
	}
	return items, nil
}

func scanQueueItem(rows *sql.Rows) (models.SyncQueueItem, error) {
	var (
		item      models.SyncQueueItem
		kind      string
		operation string
		parent    sql.NullInt64
	)
	if err := rows.Scan(&item.ID, &item.RemoteID, &kind, &operation, &parent, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return item, fmt.Errorf("failed to scan queue item: %w", err)
	}
	item.Kind = models.Kind(kind)
	item.Operation = models.Operation(operation)
	if parent.Valid {
		id := parent.Int64
		item.ParentListID = &id
	}
	return item, nil
}

func kindFilter(kinds []models.Kind) (string, []any) {
	if len(kinds) == 0 {
		return "", nil
	}
	args := make([]any, len(kinds))
	for i, k := range kinds {
		args[i] = string(k)
	}
	return " WHERE kind IN (" + placeholders(len(kinds)) + ")", args
}
