// package services implements the Trakt remote client used by the export engine
package services

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// TimeFormat is the timestamp layout Trakt expects in sync payloads.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// HistoryType selects which half of the watched history [TraktService.GetHistory] pages through.
type HistoryType string

const (
	HistoryEpisodes HistoryType = "episodes"
	HistoryMovies   HistoryType = "movies"
)

// TokenStore persists the authorized user's OAuth token.
type TokenStore interface {
	Get(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, token *oauth2.Token) error
	Delete(ctx context.Context) error
}

// IDs holds the identifiers of a Trakt media object. Only the trakt id is sent.
type IDs struct {
	Trakt int64 `json:"trakt"`
}

// SyncExportItem is one entry of a sync payload.
type SyncExportItem struct {
	IDs       IDs    `json:"ids"`
	WatchedAt string `json:"watched_at,omitempty"`
	ListedAt  string `json:"listed_at,omitempty"`
	HiddenAt  string `json:"hidden_at,omitempty"`
}

// SyncExportRequest is the body of the sync endpoints.
type SyncExportRequest struct {
	Episodes []SyncExportItem `json:"episodes,omitempty"`
	Movies   []SyncExportItem `json:"movies,omitempty"`
	Shows    []SyncExportItem `json:"shows,omitempty"`
}

// Empty reports whether the request carries no items.
func (r SyncExportRequest) Empty() bool {
	return len(r.Episodes) == 0 && len(r.Movies) == 0 && len(r.Shows) == 0
}

// Len returns the number of items in the request.
func (r SyncExportRequest) Len() int {
	return len(r.Episodes) + len(r.Movies) + len(r.Shows)
}

// SyncCounts reports per-type counts in a sync response.
type SyncCounts struct {
	Episodes int `json:"episodes"`
	Movies   int `json:"movies"`
	Shows    int `json:"shows"`
	Seasons  int `json:"seasons"`
}

// SyncExportResult is the response of the sync endpoints.
type SyncExportResult struct {
	Added    SyncCounts `json:"added"`
	Existing SyncCounts `json:"existing"`
	Deleted  SyncCounts `json:"deleted"`
	NotFound struct {
		Episodes []SyncExportItem `json:"episodes"`
		Movies   []SyncExportItem `json:"movies"`
		Shows    []SyncExportItem `json:"shows"`
	} `json:"not_found"`
}

// HistoryMedia is the episode or movie of a history entry.
type HistoryMedia struct {
	Title string `json:"title"`
	IDs   IDs    `json:"ids"`
}

// HistoryItem is one watched event in the user's remote history.
type HistoryItem struct {
	ID        int64         `json:"id"`
	WatchedAt time.Time     `json:"watched_at"`
	Action    string        `json:"action"`
	Type      string        `json:"type"`
	Episode   *HistoryMedia `json:"episode,omitempty"`
	Movie     *HistoryMedia `json:"movie,omitempty"`
}

// RemoteID returns the trakt id of the watched episode or movie, or zero.
func (h HistoryItem) RemoteID() int64 {
	switch {
	case h.Episode != nil:
		return h.Episode.IDs.Trakt
	case h.Movie != nil:
		return h.Movie.IDs.Trakt
	}
	return 0
}

// FormatTime renders t in [TimeFormat].
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
