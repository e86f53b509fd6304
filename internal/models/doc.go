// Package models defines the domain entities shared by the queue store, the remote client and the export engine.
//
//   - [SyncQueueItem] : one pending local mutation awaiting export to Trakt
//   - [Kind] : the remote collection a mutation targets (history, watchlist, hidden)
//   - [Operation] : plain add, or add after clearing the owning show's remote progress
//   - [SyncRun] : a recorded export run with per-phase counts and outcome
//   - [RemoteSnapshot] : remote ids with their latest remote timestamp, used for duplicate suppression
//
// Queue items are immutable once written: the store only appends and the export engine only deletes.
package models
