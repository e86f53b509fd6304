// Low-level JSON client for the Trakt REST API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/showsync/internal/shared"
)

// maxErrorBody bounds how much of a rejected response is kept on a [shared.RemoteAPIError].
const maxErrorBody = 512

// APIClient sends rate limited JSON requests to a REST API.
//
// Every request waits on the limiter, carries the static headers, and, when a token source is set, a bearer token.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	headers    http.Header

	mu     sync.RWMutex
	tokens oauth2.TokenSource
}

// NewAPIClient creates an API client for baseURL. A nil client uses [http.DefaultClient]; a nil limiter does not
// limit.
func NewAPIClient(baseURL string, client *http.Client, limiter *rate.Limiter) *APIClient {
	if client == nil {
		client = http.DefaultClient
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return &APIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
		limiter:    limiter,
		headers:    http.Header{"Content-Type": []string{"application/json"}},
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// SetHeader sets a header sent with every request.
func (a *APIClient) SetHeader(key, value string) {
	a.headers.Set(key, value)
}

// SetTokenSource sets the source of the bearer token. A nil source sends no Authorization header.
func (a *APIClient) SetTokenSource(ts oauth2.TokenSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = ts
}

func (a *APIClient) tokenSource() oauth2.TokenSource {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tokens
}

// Get performs a GET request and decodes a JSON response into result when it is non-nil.
func (a *APIClient) Get(ctx context.Context, path string, result any) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request with body encoded as JSON and decodes the response into result when it is non-nil.
func (a *APIClient) Post(ctx context.Context, path string, body, result any) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, body, result)
}

// Do performs a request against path.
//
// Transport failures are returned as [shared.NetworkError], non-2xx statuses and undecodable bodies as
// [shared.RemoteAPIError]. A 401 is returned as a [shared.AuthorizationError] wrapping the rejection.
func (a *APIClient) Do(ctx context.Context, method, path string, body, result any) (*APIResponse, error) {
	op := method + " " + path

	if err := a.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &shared.NetworkError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range a.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if tokens := a.tokenSource(); tokens != nil {
		token, err := tokens.Token()
		if err != nil {
			return nil, &shared.AuthorizationError{Reason: "token refresh failed", Err: errors.Join(shared.ErrRefreshFailed, err)}
		}
		token.SetAuthHeader(req)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &shared.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &shared.NetworkError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rejected := &shared.RemoteAPIError{Op: op, Code: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
		if resp.StatusCode == http.StatusUnauthorized {
			return apiResp, &shared.AuthorizationError{Reason: "session rejected", Err: rejected}
		}
		return apiResp, rejected
	}

	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return apiResp, &shared.RemoteAPIError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return apiResp, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
