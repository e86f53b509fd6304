// Package tasks drains the local sync queue to Trakt with real-time progress reporting.
//
// # Core Operations
//
//  1. [QuickSyncEngine.Run] : Export every queued item
//     - Verifies the Trakt session and reads the movies toggle once
//     - Exports watched history, then watchlist, then hidden items
//     - Reads bounded batches per phase and pauses between them
//     - Empties the queue when the run ends, on success or failure
//
//  2. [Scheduler.Schedule] : Enqueue items for the next run
//     - Does nothing when quick sync is off or no Trakt session is stored
//     - Records add or add-with-clear rows for a single kind
//
// # History Export
//
// Before a batch of watched episodes and movies is sent, the engine clears remote progress for shows with pending
// add-with-clear rows (once per show per run) and drops items whose remote watch time is not older than the local
// one. Remote history is fetched at most once per run and side via [DuplicateDetector].
//
// # Delivery
//
// Rows are deleted from the queue before the remote call that exports them. A failed call therefore loses that batch
// rather than repeating it on the next run.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
