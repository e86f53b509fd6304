package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/showsync/internal/shared"
)

func TestKind(t *testing.T) {
	for _, k := range Kinds {
		parsed, err := ParseKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v", k, parsed, err)
		}
	}

	if _, err := ParseKind("season"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	movies := 0
	for _, k := range Kinds {
		if k.IsMovie() {
			movies++
		}
	}
	if movies != 3 {
		t.Errorf("expected 3 movie kinds, got %d", movies)
	}
}

func TestSyncQueueItemValidate(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	parent := int64(5)

	tests := []struct {
		name    string
		item    SyncQueueItem
		wantErr bool
	}{
		{name: "add", item: NewQueueItem(1, KindMovie, at)},
		{name: "add with clear", item: NewClearQueueItem(1, 5, at)},
		{name: "zero remote id", item: NewQueueItem(0, KindMovie, at), wantErr: true},
		{name: "unknown kind", item: NewQueueItem(1, Kind("season"), at), wantErr: true},
		{name: "missing timestamp", item: NewQueueItem(1, KindMovie, time.Time{}), wantErr: true},
		{
			name:    "parent on plain add",
			item:    SyncQueueItem{RemoteID: 1, Kind: KindEpisode, Operation: OperationAdd, ParentListID: &parent, UpdatedAt: at},
			wantErr: true,
		},
		{
			name:    "clear without parent",
			item:    SyncQueueItem{RemoteID: 1, Kind: KindEpisode, Operation: OperationAddWithClear, UpdatedAt: at},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr && !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestQueueHelpers(t *testing.T) {
	at := time.Now()
	items := []SyncQueueItem{
		NewQueueItem(1, KindEpisode, at),
		NewQueueItem(2, KindMovie, at),
		NewQueueItem(1, KindEpisode, at.Add(time.Second)),
		NewQueueItem(3, KindEpisode, at),
	}

	episodes := OfKind(items, KindEpisode)
	if len(episodes) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(episodes))
	}

	distinct := DistinctByRemoteID(episodes)
	if got := fmt.Sprint(RemoteIDs(distinct)); got != "[1 3]" {
		t.Errorf("expected [1 3], got %s", got)
	}
	if !distinct[0].UpdatedAt.Equal(at) {
		t.Error("expected the first occurrence to be kept")
	}
}

func TestSyncRun(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	run := NewSyncRun("r", start)
	run.HistoryCount, run.WatchlistCount, run.HiddenCount = 3, 2, 1

	if run.Total() != 6 {
		t.Errorf("expected total 6, got %d", run.Total())
	}
	if run.Duration() != 0 {
		t.Error("running run should have zero duration")
	}
	end := start.Add(time.Minute)
	run.CompletedAt = &end
	if run.Duration() != time.Minute {
		t.Errorf("expected 1m, got %v", run.Duration())
	}
	if err := run.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRemoteSnapshot(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	var empty RemoteSnapshot
	if empty.Fetched || empty.Covers(1, at) {
		t.Error("zero snapshot should be unfetched and empty")
	}

	snap := NewRemoteSnapshot(map[int64]time.Time{1: at})
	snap.Record(1, at.Add(-time.Hour))
	snap.Record(2, at)

	tests := []struct {
		name string
		id   int64
		at   time.Time
		want bool
	}{
		{name: "equal time", id: 1, at: at, want: true},
		{name: "earlier local", id: 1, at: at.Add(-time.Minute), want: true},
		{name: "later local", id: 1, at: at.Add(time.Minute), want: false},
		{name: "sub millisecond local", id: 1, at: at.Add(500 * time.Microsecond), want: true},
		{name: "unknown id", id: 3, at: at, want: false},
		{name: "recorded id", id: 2, at: at, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snap.Covers(tt.id, tt.at); got != tt.want {
				t.Errorf("Covers() = %v, want %v", got, tt.want)
			}
		})
	}

	if snap.Len() != 2 || !snap.Fetched {
		t.Errorf("unexpected snapshot state: len %d fetched %v", snap.Len(), snap.Fetched)
	}
}
