package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/showsync/internal/shared"
	tu "github.com/desertthunder/showsync/internal/testing"
)

func TestAPIClient(t *testing.T) {
	ctx := context.Background()

	t.Run("post sends headers and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON content type, got %s", r.Header.Get("Content-Type"))
			}
			if r.Header.Get("X-Test") != "yes" {
				t.Errorf("expected static header, got %q", r.Header.Get("X-Test"))
			}
			if r.Header.Get("Authorization") != "Bearer abc" {
				t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		client := NewAPIClient(server.URL+"/", nil, nil)
		client.SetHeader("X-Test", "yes")
		client.SetTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"}))

		var result struct {
			OK bool `json:"ok"`
		}
		resp, err := client.Post(ctx, "/things", map[string]int{"a": 1}, &result)
		if err != nil {
			t.Fatalf("Post() error = %v", err)
		}
		if resp.StatusCode != http.StatusOK || !result.OK {
			t.Errorf("unexpected response %d %+v", resp.StatusCode, result)
		}
	})

	t.Run("non 2xx is RemoteAPIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"bad ids"}`))
		}))
		defer server.Close()

		_, err := NewAPIClient(server.URL, nil, nil).Get(ctx, "/x", nil)

		var apiErr *shared.RemoteAPIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected RemoteAPIError, got %v", err)
		}
		if apiErr.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected code 422, got %d", apiErr.Code)
		}
		if !strings.Contains(apiErr.Body, "bad ids") {
			t.Errorf("expected body to be kept, got %q", apiErr.Body)
		}
	})

	t.Run("401 is AuthorizationError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := NewAPIClient(server.URL, nil, nil).Get(ctx, "/x", nil)
		if !errors.Is(err, shared.ErrAuthorization) {
			t.Errorf("expected ErrAuthorization, got %v", err)
		}
		if !errors.Is(err, shared.ErrRemoteAPI) {
			t.Errorf("expected wrapped ErrRemoteAPI, got %v", err)
		}
	})

	t.Run("decode failure is RemoteAPIError with code 0", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		var result map[string]any
		_, err := NewAPIClient(server.URL, nil, nil).Get(ctx, "/x", &result)

		var apiErr *shared.RemoteAPIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected RemoteAPIError, got %v", err)
		}
		if apiErr.Code != 0 {
			t.Errorf("expected code 0, got %d", apiErr.Code)
		}
	})

	t.Run("transport failure is NetworkError", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

		_, err := NewAPIClient("http://trakt.invalid", client, nil).Get(ctx, "/x", nil)
		if !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})

	t.Run("body read failure is NetworkError", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}

		_, err := NewAPIClient("http://trakt.invalid", client, nil).Get(ctx, "/x", nil)
		if !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("request should not be sent")
		}))
		defer server.Close()

		limiter := rate.NewLimiter(rate.Every(1e12), 1)
		limiter.Allow()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewAPIClient(server.URL, nil, limiter).Get(cctx, "/x", nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("token failure is AuthorizationError", func(t *testing.T) {
		client := NewAPIClient("http://trakt.invalid", nil, nil)
		client.SetTokenSource(failingSource{})

		_, err := client.Get(ctx, "/x", nil)
		if !errors.Is(err, shared.ErrRefreshFailed) || !errors.Is(err, shared.ErrAuthorization) {
			t.Errorf("expected refresh authorization error, got %v", err)
		}
	})
}

func TestAPIClientTokenSwap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, nil, nil)
	client.SetTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := client.Get(context.Background(), "/x", nil); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			client.SetTokenSource(nil)
		}()
	}
	wg.Wait()
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short body kept", "  bad ids ", 512, "bad ids"},
		{"ascii cut", "abcdef", 3, "abc..."},
		{"backs off multi-byte rune", "abécd", 3, "ab..."},
		{"cut after multi-byte rune", "abécd", 4, "abé..."},
		{"four byte rune", "😀😀", 6, "😀..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8 %q", tt.in, tt.n, got)
			}
		})
	}
}

type failingSource struct{}

func (failingSource) Token() (*oauth2.Token, error) { return nil, errors.New("invalid_grant") }
