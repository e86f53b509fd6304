package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgQueueLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
)

type queueLoaded struct {
	items       []models.SyncQueueItem
	lastSuccess *models.SyncRun
	err         error
}

type syncComplete struct {
	result *tasks.SyncResult
	err    error
}

// queueLoadedMsg is the constructor for [MsgQueueLoaded]
func queueLoadedMsg(items []models.SyncQueueItem, lastSuccess *models.SyncRun, err error) Msg {
	return Msg{kind: MsgQueueLoaded, data: queueLoaded{items, lastSuccess, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result *tasks.SyncResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{result, err}}
}
