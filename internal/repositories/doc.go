// Package repositories implements SQLite persistence for the sync queue and its supporting records.
//
// Key Implementations:
//   - [SyncQueueRepository] : append-only queue of pending local mutations, read in bounded batches
//   - [SettingsRepository] : runtime feature toggles layered over config defaults
//   - [TokenRepository] : the single authorized Trakt OAuth token
//   - [SyncRunRepository] : history of export runs with status and per-phase counts
//
// Repositories accept a [DBTX] so the same code runs against a [*sql.DB] or inside a transaction opened by
// [Transactions.WithTransaction]. Storage failures are returned as [shared.LocalStoreError].
package repositories
