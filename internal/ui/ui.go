package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/shared"
	"github.com/desertthunder/showsync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	QueueView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

const logLines = 8

// QueueSource lists pending queue rows.
type QueueSource interface {
	List(ctx context.Context, kinds ...models.Kind) ([]models.SyncQueueItem, error)
}

// RunSource looks up the last successful run for the header.
type RunSource interface {
	LastSuccess(ctx context.Context) (*models.SyncRun, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	queue        QueueSource
	runs         RunSource
	engine       tasks.Exporter
	width        int
	height       int
	queueList    list.Model
	items        []models.SyncQueueItem
	lastSuccess  *models.SyncRun
	progressChan chan tasks.ProgressUpdate
	doneChan     chan syncComplete
	progress     tasks.ProgressUpdate
	log          []string
	spinner      spinner.Model
	result       *tasks.SyncResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, queue QueueSource, runs RunSource, engine tasks.Exporter) *Model {
	return &Model{
		ctx:       ctx,
		view:      QueueView,
		queue:     queue,
		runs:      runs,
		engine:    engine,
		queueList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init initializes the TUI by loading the queue.
func (m *Model) Init() tea.Cmd {
	return m.loadQueue()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queueList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case QueueView:
			return m.handleQueueKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgQueueLoaded:
		data := msg.data.(queueLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.items = data.items
		m.lastSuccess = data.lastSuccess
		listItems := make([]list.Item, len(data.items))
		for i, item := range data.items {
			listItems[i] = queueItem{item: item}
		}
		cmd := m.queueList.SetItems(listItems)
		m.queueList.Title = fmt.Sprintf("Sync Queue (%d)", len(data.items))
		return m, cmd

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		if update.Message != "" {
			m.log = append(m.log, update.Message)
			if len(m.log) > logLines {
				m.log = m.log[len(m.log)-logLines:]
			}
		}
		return m, m.waitForProgress()

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.result = data.result
		m.err = data.err
		m.view = ResultView
		m.progressChan = nil
		m.doneChan = nil
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == QueueView {
		return styles.error.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	switch m.view {
	case QueueView:
		return m.renderQueue()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.queueList.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadQueue()
	case key.Matches(msg, m.keys.sync):
		if m.err == nil {
			m.view = ConfirmView
		}
		return m, nil
	}
	return m.updateList(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = QueueView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		m.log = nil
		m.progress = tasks.ProgressUpdate{}
		return m, tea.Batch(m.startSync(), m.spinner.Tick)
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh), key.Matches(msg, m.keys.back):
		m.view = QueueView
		m.result = nil
		m.err = nil
		return m, m.loadQueue()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != QueueView {
		return m, nil
	}
	var cmd tea.Cmd
	m.queueList, cmd = m.queueList.Update(msg)
	return m, cmd
}

func (m *Model) loadQueue() tea.Cmd {
	return func() tea.Msg {
		items, err := m.queue.List(m.ctx)
		if err != nil {
			return queueLoadedMsg(nil, nil, err)
		}
		last, err := m.runs.LastSuccess(m.ctx)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return queueLoadedMsg(nil, nil, err)
		}
		return queueLoadedMsg(items, last, nil)
	}
}

// startSync runs the engine in the background. The progress channel is closed once Run returns, after which the
// result is read from doneChan.
func (m *Model) startSync() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan syncComplete, 1)
	m.progressChan = progress
	m.doneChan = done

	go func() {
		result, err := m.engine.Run(m.ctx, progress)
		close(progress)
		done <- syncComplete{result, err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return syncCompleteMsg(nil, fmt.Errorf("no sync in progress"))
		}
		update, ok := <-progress
		if !ok {
			res := <-done
			return syncCompleteMsg(res.result, res.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) header() string {
	if m.lastSuccess == nil || m.lastSuccess.CompletedAt == nil {
		return styles.help.Render("Never synced with Trakt")
	}
	return styles.help.Render("Last sync: " + m.lastSuccess.CompletedAt.Local().Format("Jan 2 2006 15:04"))
}

func (m *Model) renderQueue() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.sync, m.keys.refresh, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", m.header(), m.queueList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Export queue to Trakt?")

	counts := make(map[models.Kind]int)
	for _, item := range m.items {
		counts[item.Kind]++
	}
	var b strings.Builder
	if len(m.items) == 0 {
		b.WriteString("Nothing queued. The run will only verify the session.\n")
	}
	for _, kind := range models.Kinds {
		if n := counts[kind]; n > 0 {
			fmt.Fprintf(&b, "%-18s %d\n", kindLabel(kind), n)
		}
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, styles.box.Render(strings.TrimRight(b.String(), "\n")), helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing with Trakt")

	var phase string
	switch m.progress.Phase {
	case tasks.Authorize:
		phase = "Checking authorization..."
	case tasks.ExportHistory, tasks.ClearProgress:
		phase = fmt.Sprintf("Exporting watched history (%d so far)", m.progress.Total)
	case tasks.ExportWatchlist:
		phase = fmt.Sprintf("Exporting watchlist (%d so far)", m.progress.Total)
	case tasks.ExportHidden:
		phase = fmt.Sprintf("Exporting hidden items (%d so far)", m.progress.Total)
	case tasks.Cleanup, tasks.Finished:
		phase = "Finishing..."
	default:
		phase = "Starting..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n\n%s", title, m.spinner.View(), phase, styles.help.Render(strings.Join(m.log, "\n")))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.refresh, m.keys.quit})

	var alreadyRunning *shared.AlreadyRunningError
	switch {
	case errors.As(m.err, &alreadyRunning):
		return fmt.Sprintf("%s\n\n%s", styles.warning.Render("A sync is already running."), helpView)
	case m.err != nil:
		return fmt.Sprintf("%s\n\n%s", styles.error.Render(fmt.Sprintf("Sync failed: %v", m.err)), helpView)
	case m.result == nil:
		return fmt.Sprintf("%s\n\n%s", styles.error.Render("No result available"), helpView)
	}

	title := styles.success.Render("✓ Sync Complete!")
	info := fmt.Sprintf(
		"\nWatched: %d\nWatchlist: %d\nHidden: %d\nAlready on Trakt: %d\nShows reset: %d\nTook: %s",
		m.result.HistoryCount,
		m.result.WatchlistCount,
		m.result.HiddenCount,
		m.result.Suppressed,
		m.result.ClearedShows,
		m.result.Duration.Round(time.Millisecond),
	)
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
