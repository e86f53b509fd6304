package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/showsync/internal/shared"
)

// DBTX is the subset of [*sql.DB] and [*sql.Tx] used by repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactions opens database transactions for callers that must group several repository writes.
type Transactions struct {
	db *sql.DB
}

// NewTransactions creates a [Transactions] for db.
func NewTransactions(db *sql.DB) *Transactions {
	return &Transactions{db: db}
}

// WithTransaction runs fn inside a transaction, committing when fn returns nil and rolling back otherwise.
func (t *Transactions) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.StoreError("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return shared.StoreError("commit transaction", err)
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// chunk splits ids into slices of at most size elements.
func chunk(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func rowsAffected(op string, result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, shared.StoreError(op, fmt.Errorf("failed to get affected rows: %w", err))
	}
	return n, nil
}
