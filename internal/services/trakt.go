// Trakt API implementation of the remote sync client
//
// Endpoint reference: https://trakt.docs.apiary.io/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/showsync/internal/shared"
)

const (
	traktAPIVersion  = "2"
	historyPageLimit = 1000
)

// TraktService talks to the Trakt API on behalf of the authorized user.
//
// [TraktService.CheckAuthorization] must succeed before the sync endpoints are called; it loads the stored token,
// refreshes it when expired, and installs it on the underlying [APIClient].
type TraktService struct {
	config *oauth2.Config
	api    *APIClient
	tokens TokenStore
	client *http.Client

	mu         sync.Mutex
	authorized bool
}

// NewTraktService creates a Trakt client. A nil client uses [http.DefaultClient]; a nil limiter does not limit.
func NewTraktService(cfg shared.TraktConfig, client *http.Client, limiter *rate.Limiter, tokens TokenStore) (*TraktService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing trakt client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing trakt client_secret", shared.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.trakt.tv"
	}
	if client == nil {
		client = http.DefaultClient
	}

	api := NewAPIClient(cfg.BaseURL, client, limiter)
	api.SetHeader("trakt-api-key", cfg.ClientID)
	api.SetHeader("trakt-api-version", traktAPIVersion)

	return &TraktService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.BaseURL + "/oauth/authorize",
				TokenURL:  cfg.BaseURL + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		api:    api,
		tokens: tokens,
		client: client,
	}, nil
}

// AuthCodeURL returns the OAuth2 authorization URL for user login.
func (s *TraktService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and stores it.
func (s *TraktService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, &shared.AuthorizationError{Reason: "failed to exchange auth code", Err: err}
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		return nil, err
	}
	s.install(ctx, token)
	return token, nil
}

// CheckAuthorization verifies that a usable session exists, refreshing and persisting an expired token.
//
// It fails with a [shared.AuthorizationError] when no token is stored or the refresh is rejected.
func (s *TraktService) CheckAuthorization(ctx context.Context) error {
	token, err := s.tokens.Get(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		return &shared.AuthorizationError{Reason: "not logged in"}
	}
	if err != nil {
		return err
	}

	fresh, err := s.config.TokenSource(s.oauthContext(ctx), token).Token()
	if err != nil {
		return &shared.AuthorizationError{Reason: "session expired", Err: errors.Join(shared.ErrRefreshFailed, err)}
	}
	if fresh.AccessToken != token.AccessToken {
		if err := s.tokens.Save(ctx, fresh); err != nil {
			return err
		}
	}

	s.install(ctx, fresh)
	return nil
}

// Authorized reports whether a session has been installed by [TraktService.CheckAuthorization] or
// [TraktService.Exchange].
func (s *TraktService) Authorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorized
}

// Logout revokes the stored token remotely (best effort) and deletes it locally.
func (s *TraktService) Logout(ctx context.Context) error {
	token, err := s.tokens.Get(ctx)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if token != nil {
		body := map[string]string{
			"token":         token.AccessToken,
			"client_id":     s.config.ClientID,
			"client_secret": s.config.ClientSecret,
		}
		// Revocation failures still log the user out locally.
		_, _ = s.api.Post(ctx, "/oauth/revoke", body, nil)
	}

	s.mu.Lock()
	s.authorized = false
	s.api.SetTokenSource(nil)
	s.mu.Unlock()
	return s.tokens.Delete(ctx)
}

// PostSyncWatched adds episodes and movies to the watched history.
func (s *TraktService) PostSyncWatched(ctx context.Context, req SyncExportRequest) (*SyncExportResult, error) {
	return s.postSync(ctx, "/sync/history", req)
}

// PostSyncWatchlist adds shows and movies to the watchlist.
func (s *TraktService) PostSyncWatchlist(ctx context.Context, req SyncExportRequest) (*SyncExportResult, error) {
	return s.postSync(ctx, "/sync/watchlist", req)
}

// PostHiddenShows hides shows from progress.
func (s *TraktService) PostHiddenShows(ctx context.Context, items []SyncExportItem) (*SyncExportResult, error) {
	return s.postSync(ctx, "/users/hidden/progress_watched", SyncExportRequest{Shows: items})
}

// PostHiddenMovies hides movies from the calendar.
func (s *TraktService) PostHiddenMovies(ctx context.Context, items []SyncExportItem) (*SyncExportResult, error) {
	return s.postSync(ctx, "/users/hidden/calendar", SyncExportRequest{Movies: items})
}

// PostDeleteProgress removes the whole watched history of the given shows.
func (s *TraktService) PostDeleteProgress(ctx context.Context, req SyncExportRequest) (*SyncExportResult, error) {
	return s.postSync(ctx, "/sync/history/remove", req)
}

// GetHistory pages through the user's watched history of the given type.
func (s *TraktService) GetHistory(ctx context.Context, typ HistoryType) ([]HistoryItem, error) {
	if typ != HistoryEpisodes && typ != HistoryMovies {
		return nil, fmt.Errorf("%w: unknown history type %q", shared.ErrInvalidArgument, typ)
	}

	var all []HistoryItem
	for page := 1; ; page++ {
		var items []HistoryItem
		path := fmt.Sprintf("/sync/history/%s?page=%d&limit=%d", typ, page, historyPageLimit)
		resp, err := s.api.Get(ctx, path, &items)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		pageCount, _ := strconv.Atoi(resp.Headers.Get("X-Pagination-Page-Count"))
		if len(items) == 0 || page >= pageCount {
			break
		}
	}
	return all, nil
}

func (s *TraktService) postSync(ctx context.Context, path string, req SyncExportRequest) (*SyncExportResult, error) {
	var result SyncExportResult
	if _, err := s.api.Post(ctx, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// oauthContext makes the oauth2 package use the service's HTTP client for token calls.
func (s *TraktService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.client)
}

// install makes token the bearer for subsequent requests, refreshing and persisting it as it expires.
func (s *TraktService) install(ctx context.Context, token *oauth2.Token) {
	bg := s.oauthContext(context.WithoutCancel(ctx))
	src := &persistingSource{
		base:  s.config.TokenSource(bg, token),
		store: s.tokens,
		ctx:   bg,
		last:  token.AccessToken,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.api.SetTokenSource(oauth2.ReuseTokenSource(token, src))
	s.authorized = true
}

// persistingSource saves tokens refreshed mid-run.
type persistingSource struct {
	base  oauth2.TokenSource
	store TokenStore
	ctx   context.Context

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		if err := p.store.Save(p.ctx, token); err != nil {
			return nil, err
		}
		p.last = token.AccessToken
	}
	return token, nil
}
