package tasks

import (
	"context"
	"database/sql"

	"github.com/desertthunder/showsync/internal/repositories"
)

// QueueTx adapts [repositories.Transactions] to [Transactor].
type QueueTx struct {
	tx    *repositories.Transactions
	queue *repositories.SyncQueueRepository
}

// NewQueueTx creates a [QueueTx] over db.
func NewQueueTx(db *sql.DB) *QueueTx {
	return &QueueTx{
		tx:    repositories.NewTransactions(db),
		queue: repositories.NewSyncQueueRepository(db),
	}
}

// InTx runs fn with a queue repository bound to a new transaction.
func (q *QueueTx) InTx(ctx context.Context, fn func(q QueueStore) error) error {
	return q.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(q.queue.WithTx(tx))
	})
}
