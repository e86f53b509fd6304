// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a small workflow around the sync queue:
//  1. [QueueView] : Browse pending items, newest last
//  2. [ConfirmView] : Confirm an export run
//  3. [SyncView] : Monitor real-time progress updates
//  4. [ResultView] : Display per-phase counts or the failure
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the export engine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
