package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/showsync/internal/models"
	"github.com/desertthunder/showsync/internal/services"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// remoteCall records one call made to mockRemote.
type remoteCall struct {
	name string
	req  services.SyncExportRequest
}

func (c remoteCall) ids() []int64 {
	var ids []int64
	for _, group := range [][]services.SyncExportItem{c.req.Episodes, c.req.Movies, c.req.Shows} {
		for _, item := range group {
			ids = append(ids, item.IDs.Trakt)
		}
	}
	return ids
}

type mockRemote struct {
	mu      sync.Mutex
	calls   []remoteCall
	history map[services.HistoryType][]services.HistoryItem
	errs    map[string]error
	onCall  func(name string)
}

func newMockRemote() *mockRemote {
	return &mockRemote{
		history: make(map[services.HistoryType][]services.HistoryItem),
		errs:    make(map[string]error),
	}
}

func (m *mockRemote) record(name string, req services.SyncExportRequest) error {
	m.mu.Lock()
	m.calls = append(m.calls, remoteCall{name: name, req: req})
	err := m.errs[name]
	hook := m.onCall
	m.mu.Unlock()

	if hook != nil {
		hook(name)
	}
	return err
}

func (m *mockRemote) result(req services.SyncExportRequest) *services.SyncExportResult {
	return &services.SyncExportResult{}
}

func (m *mockRemote) PostSyncWatched(ctx context.Context, req services.SyncExportRequest) (*services.SyncExportResult, error) {
	if err := m.record("watched", req); err != nil {
		return nil, err
	}
	return m.result(req), nil
}

func (m *mockRemote) PostSyncWatchlist(ctx context.Context, req services.SyncExportRequest) (*services.SyncExportResult, error) {
	if err := m.record("watchlist", req); err != nil {
		return nil, err
	}
	return m.result(req), nil
}

func (m *mockRemote) PostHiddenShows(ctx context.Context, items []services.SyncExportItem) (*services.SyncExportResult, error) {
	req := services.SyncExportRequest{Shows: items}
	if err := m.record("hidden_shows", req); err != nil {
		return nil, err
	}
	return m.result(req), nil
}

func (m *mockRemote) PostHiddenMovies(ctx context.Context, items []services.SyncExportItem) (*services.SyncExportResult, error) {
	req := services.SyncExportRequest{Movies: items}
	if err := m.record("hidden_movies", req); err != nil {
		return nil, err
	}
	return m.result(req), nil
}

func (m *mockRemote) PostDeleteProgress(ctx context.Context, req services.SyncExportRequest) (*services.SyncExportResult, error) {
	if err := m.record("delete_progress", req); err != nil {
		return nil, err
	}
	return m.result(req), nil
}

func (m *mockRemote) GetHistory(ctx context.Context, typ services.HistoryType) ([]services.HistoryItem, error) {
	if err := m.record("history_"+string(typ), services.SyncExportRequest{}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[typ], nil
}

func (m *mockRemote) callNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.calls))
	for i, c := range m.calls {
		names[i] = c.name
	}
	return names
}

func (m *mockRemote) callsNamed(name string) []remoteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []remoteCall
	for _, c := range m.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

type mockAuth struct {
	err   error
	calls int
}

func (m *mockAuth) CheckAuthorization(ctx context.Context) error {
	m.calls++
	return m.err
}

type mockSettings struct {
	movies    bool
	quickSync bool
	err       error
}

func (m *mockSettings) MoviesEnabled(ctx context.Context) (bool, error)    { return m.movies, m.err }
func (m *mockSettings) QuickSyncEnabled(ctx context.Context) (bool, error) { return m.quickSync, m.err }

type mockSession struct {
	loggedIn bool
	err      error
}

func (m *mockSession) Exists(ctx context.Context) (bool, error) { return m.loggedIn, m.err }

// memQueue is an in-memory [QueueStore] ordered like the SQLite repository.
type memQueue struct {
	mu        sync.Mutex
	items     []models.SyncQueueItem
	nextID    int64
	deleteErr error
	deletes   int
}

func newMemQueue(items ...models.SyncQueueItem) *memQueue {
	q := &memQueue{}
	for i := range items {
		q.add(items[i])
	}
	return q
}

func (q *memQueue) add(item models.SyncQueueItem) {
	q.nextID++
	item.ID = q.nextID
	q.items = append(q.items, item)
}

func (q *memQueue) Append(ctx context.Context, items ...*models.SyncQueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		q.add(*item)
		item.ID = q.nextID
	}
	return nil
}

func (q *memQueue) GetBatch(ctx context.Context, kinds []models.Kind, limit int) ([]models.SyncQueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []models.SyncQueueItem
	for _, kind := range kinds {
		for _, item := range q.items {
			if item.Kind == kind {
				out = append(out, item)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *memQueue) Delete(ctx context.Context, remoteIDs []int64, kind models.Kind) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deletes++
	if q.deleteErr != nil {
		return 0, q.deleteErr
	}

	var removed int64
	kept := q.items[:0]
	for _, item := range q.items {
		if item.Kind == kind && slices.Contains(remoteIDs, item.RemoteID) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	return removed, nil
}

func (q *memQueue) DeleteKinds(ctx context.Context, kinds ...models.Kind) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var removed int64
	kept := q.items[:0]
	for _, item := range q.items {
		if slices.Contains(kinds, item.Kind) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	return removed, nil
}

func (q *memQueue) DeleteAll(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := int64(len(q.items))
	q.items = nil
	return removed, nil
}

func (q *memQueue) ClearParents(ctx context.Context, kinds ...models.Kind) ([]int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var parents []int64
	for _, item := range q.items {
		if !item.ClearsProgress() || (len(kinds) > 0 && !slices.Contains(kinds, item.Kind)) {
			continue
		}
		if !slices.Contains(parents, *item.ParentListID) {
			parents = append(parents, *item.ParentListID)
		}
	}
	return parents, nil
}

func (q *memQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// recordingSleeper captures requested pauses without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, got := range s.delays {
		if got == d {
			n++
		}
	}
	return n
}

type mockRuns struct {
	mu        sync.Mutex
	created   []*models.SyncRun
	completed []models.SyncRun
	createErr error
}

func (m *mockRuns) Create(ctx context.Context, run *models.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, run)
	return nil
}

func (m *mockRuns) Complete(ctx context.Context, run *models.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, *run)
	return nil
}

func queued(kind models.Kind, from, to int64) []models.SyncQueueItem {
	var out []models.SyncQueueItem
	for id := from; id <= to; id++ {
		out = append(out, models.NewQueueItem(id, kind, baseTime))
	}
	return out
}

func concat(groups ...[]models.SyncQueueItem) []models.SyncQueueItem {
	var out []models.SyncQueueItem
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func historyItem(typ string, id int64, at time.Time) services.HistoryItem {
	item := services.HistoryItem{ID: id * 10, WatchedAt: at, Action: "watch", Type: typ}
	media := &services.HistoryMedia{IDs: services.IDs{Trakt: id}}
	if typ == "movie" {
		item.Movie = media
	} else {
		item.Episode = media
	}
	return item
}

func mustEqualIDs(got, want []int64) error {
	if !slices.Equal(got, want) {
		return fmt.Errorf("expected ids %v, got %v", want, got)
	}
	return nil
}
