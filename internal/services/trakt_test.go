package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/showsync/internal/shared"
	tu "github.com/desertthunder/showsync/internal/testing"
)

type recordedRequest struct {
	method string
	path   string
	body   SyncExportRequest
	header http.Header
}

type fakeTrakt struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request) bool
}

func (f *fakeTrakt) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body SyncExportRequest
	if r.Method == http.MethodPost && r.URL.Path != "/oauth/token" {
		json.NewDecoder(r.Body).Decode(&body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: body, header: r.Header.Clone()})
	f.mu.Unlock()

	if f.handler != nil && f.handler(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"added":{"episodes":1}}`))
}

func (f *fakeTrakt) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.path
	}
	return out
}

func newTestTrakt(t *testing.T, fake *fakeTrakt, store *tu.MemoryTokenStore) *TraktService {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := shared.TraktConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:3000/callback",
		BaseURL:      server.URL,
	}
	svc, err := NewTraktService(cfg, server.Client(), nil, store)
	if err != nil {
		t.Fatalf("NewTraktService() error = %v", err)
	}
	return svc
}

func validToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
}

func TestTraktService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewTraktService", func(t *testing.T) {
		t.Run("missing client ID", func(t *testing.T) {
			_, err := NewTraktService(shared.TraktConfig{ClientSecret: "s"}, nil, nil, &tu.MemoryTokenStore{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("missing client secret", func(t *testing.T) {
			_, err := NewTraktService(shared.TraktConfig{ClientID: "c"}, nil, nil, &tu.MemoryTokenStore{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("AuthCodeURL", func(t *testing.T) {
		svc := newTestTrakt(t, &fakeTrakt{}, &tu.MemoryTokenStore{})
		url := svc.AuthCodeURL("state-123")

		for _, want := range []string{"/oauth/authorize", "client_id=client", "state=state-123", "response_type=code"} {
			if !strings.Contains(url, want) {
				t.Errorf("expected auth URL to contain %q, got %s", want, url)
			}
		}
	})

	t.Run("CheckAuthorization", func(t *testing.T) {
		t.Run("no token", func(t *testing.T) {
			svc := newTestTrakt(t, &fakeTrakt{}, &tu.MemoryTokenStore{})

			var authErr *shared.AuthorizationError
			if err := svc.CheckAuthorization(ctx); !errors.As(err, &authErr) {
				t.Fatalf("expected AuthorizationError, got %v", err)
			}
			if svc.Authorized() {
				t.Error("service should not be authorized")
			}
		})

		t.Run("valid token", func(t *testing.T) {
			fake := &fakeTrakt{}
			store := &tu.MemoryTokenStore{Token: validToken()}
			svc := newTestTrakt(t, fake, store)

			if err := svc.CheckAuthorization(ctx); err != nil {
				t.Fatalf("CheckAuthorization() error = %v", err)
			}
			if !svc.Authorized() {
				t.Error("service should be authorized")
			}
			if len(fake.paths()) != 0 {
				t.Errorf("valid token should not hit the network, got %v", fake.paths())
			}
			if store.Saves != 0 {
				t.Errorf("valid token should not be saved again, got %d saves", store.Saves)
			}
		})

		t.Run("expired token refreshes", func(t *testing.T) {
			fake := &fakeTrakt{handler: func(w http.ResponseWriter, r *http.Request) bool {
				if r.URL.Path == "/oauth/token" {
					w.Header().Set("Content-Type", "application/json")
					w.Write([]byte(`{"access_token":"fresh","refresh_token":"refresh2","token_type":"bearer","expires_in":7776000}`))
					return true
				}
				return false
			}}
			expired := validToken()
			expired.Expiry = time.Now().Add(-time.Hour)
			store := &tu.MemoryTokenStore{Token: expired}
			svc := newTestTrakt(t, fake, store)

			if err := svc.CheckAuthorization(ctx); err != nil {
				t.Fatalf("CheckAuthorization() error = %v", err)
			}
			if store.Token.AccessToken != "fresh" {
				t.Errorf("expected refreshed token to be saved, got %s", store.Token.AccessToken)
			}

			if _, err := svc.PostSyncWatched(ctx, SyncExportRequest{Episodes: []SyncExportItem{{IDs: IDs{Trakt: 1}}}}); err != nil {
				t.Fatalf("PostSyncWatched() error = %v", err)
			}
			last := fake.requests[len(fake.requests)-1]
			if last.header.Get("Authorization") != "Bearer fresh" {
				t.Errorf("expected refreshed bearer, got %q", last.header.Get("Authorization"))
			}
		})

		t.Run("refresh rejected", func(t *testing.T) {
			fake := &fakeTrakt{handler: func(w http.ResponseWriter, r *http.Request) bool {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid_grant"}`))
				return true
			}}
			expired := validToken()
			expired.Expiry = time.Now().Add(-time.Hour)
			svc := newTestTrakt(t, fake, &tu.MemoryTokenStore{Token: expired})

			err := svc.CheckAuthorization(ctx)
			if !errors.Is(err, shared.ErrAuthorization) || !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected refresh AuthorizationError, got %v", err)
			}
		})
	})

	t.Run("exchange saves token", func(t *testing.T) {
		fake := &fakeTrakt{handler: func(w http.ResponseWriter, r *http.Request) bool {
			if r.URL.Path == "/oauth/token" {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token":"new","refresh_token":"r","token_type":"bearer","expires_in":3600}`))
				return true
			}
			return false
		}}
		store := &tu.MemoryTokenStore{}
		svc := newTestTrakt(t, fake, store)

		token, err := svc.Exchange(ctx, "code")
		if err != nil {
			t.Fatalf("Exchange() error = %v", err)
		}
		if token.AccessToken != "new" || store.Token == nil || store.Token.AccessToken != "new" {
			t.Errorf("expected stored token, got %+v", store.Token)
		}
		if !svc.Authorized() {
			t.Error("service should be authorized after exchange")
		}
	})

	t.Run("sync endpoints", func(t *testing.T) {
		fake := &fakeTrakt{}
		svc := newTestTrakt(t, fake, &tu.MemoryTokenStore{Token: validToken()})
		if err := svc.CheckAuthorization(ctx); err != nil {
			t.Fatalf("CheckAuthorization() error = %v", err)
		}

		items := []SyncExportItem{{IDs: IDs{Trakt: 5}, HiddenAt: "2024-01-01T00:00:00.000Z"}}
		calls := []func() error{
			func() error { _, err := svc.PostSyncWatched(ctx, SyncExportRequest{Episodes: items}); return err },
			func() error { _, err := svc.PostSyncWatchlist(ctx, SyncExportRequest{Shows: items}); return err },
			func() error { _, err := svc.PostHiddenShows(ctx, items); return err },
			func() error { _, err := svc.PostHiddenMovies(ctx, items); return err },
			func() error { _, err := svc.PostDeleteProgress(ctx, SyncExportRequest{Shows: items}); return err },
		}
		for i, call := range calls {
			if err := call(); err != nil {
				t.Fatalf("call %d error = %v", i, err)
			}
		}

		want := []string{
			"/sync/history",
			"/sync/watchlist",
			"/users/hidden/progress_watched",
			"/users/hidden/calendar",
			"/sync/history/remove",
		}
		if got := fake.paths(); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("expected paths %v, got %v", want, got)
		}

		for _, r := range fake.requests {
			if r.header.Get("trakt-api-key") != "client" || r.header.Get("trakt-api-version") != "2" {
				t.Errorf("missing trakt headers on %s: %v", r.path, r.header)
			}
			if r.header.Get("Authorization") != "Bearer access" {
				t.Errorf("missing bearer on %s", r.path)
			}
		}
		if len(fake.requests[2].body.Shows) != 1 || fake.requests[2].body.Shows[0].HiddenAt == "" {
			t.Errorf("expected hidden show payload, got %+v", fake.requests[2].body)
		}
		if len(fake.requests[3].body.Movies) != 1 {
			t.Errorf("expected hidden movie payload, got %+v", fake.requests[3].body)
		}
	})

	t.Run("GetHistory follows pagination", func(t *testing.T) {
		fake := &fakeTrakt{handler: func(w http.ResponseWriter, r *http.Request) bool {
			page := r.URL.Query().Get("page")
			if r.URL.Query().Get("limit") != "1000" {
				t.Errorf("expected limit 1000, got %s", r.URL.Query().Get("limit"))
			}
			w.Header().Set("X-Pagination-Page-Count", "2")
			fmt.Fprintf(w, `[{"id":%s,"watched_at":"2024-01-0%sT10:00:00.000Z","action":"watch","type":"episode","episode":{"ids":{"trakt":%s0}}}]`, page, page, page)
			return true
		}}
		svc := newTestTrakt(t, fake, &tu.MemoryTokenStore{Token: validToken()})

		items, err := svc.GetHistory(ctx, HistoryEpisodes)
		if err != nil {
			t.Fatalf("GetHistory() error = %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items across pages, got %d", len(items))
		}
		if items[1].RemoteID() != 20 {
			t.Errorf("expected remote id 20, got %d", items[1].RemoteID())
		}
		if items[0].WatchedAt.Day() != 1 {
			t.Errorf("expected watched_at to be parsed, got %v", items[0].WatchedAt)
		}
		for _, p := range fake.paths() {
			if p != "/sync/history/episodes" {
				t.Errorf("unexpected path %s", p)
			}
		}
	})

	t.Run("GetHistory rejects unknown type", func(t *testing.T) {
		svc := newTestTrakt(t, &fakeTrakt{}, &tu.MemoryTokenStore{})
		if _, err := svc.GetHistory(ctx, HistoryType("shows")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("remote rejection", func(t *testing.T) {
		fake := &fakeTrakt{handler: func(w http.ResponseWriter, r *http.Request) bool {
			w.WriteHeader(http.StatusTooManyRequests)
			return true
		}}
		svc := newTestTrakt(t, fake, &tu.MemoryTokenStore{Token: validToken()})

		_, err := svc.PostSyncWatched(ctx, SyncExportRequest{})
		var apiErr *shared.RemoteAPIError
		if !errors.As(err, &apiErr) || apiErr.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429 RemoteAPIError, got %v", err)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		fake := &fakeTrakt{}
		store := &tu.MemoryTokenStore{Token: validToken()}
		svc := newTestTrakt(t, fake, store)
		if err := svc.CheckAuthorization(ctx); err != nil {
			t.Fatalf("CheckAuthorization() error = %v", err)
		}

		if err := svc.Logout(ctx); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if store.Token != nil {
			t.Error("expected token to be deleted")
		}
		if svc.Authorized() {
			t.Error("service should not be authorized after logout")
		}
		if got := fake.paths(); len(got) != 1 || got[0] != "/oauth/revoke" {
			t.Errorf("expected revoke call, got %v", got)
		}
	})
}

func TestHistoryItemRemoteID(t *testing.T) {
	tests := []struct {
		name string
		item HistoryItem
		want int64
	}{
		{name: "episode", item: HistoryItem{Episode: &HistoryMedia{IDs: IDs{Trakt: 3}}}, want: 3},
		{name: "movie", item: HistoryItem{Movie: &HistoryMedia{IDs: IDs{Trakt: 4}}}, want: 4},
		{name: "empty", item: HistoryItem{}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.RemoteID(); got != tt.want {
				t.Errorf("RemoteID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.FixedZone("x", 3600))
	if got := FormatTime(at); got != "2024-05-06T06:08:09.123Z" {
		t.Errorf("FormatTime() = %s", got)
	}
}
