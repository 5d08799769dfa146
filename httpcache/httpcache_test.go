package httpcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestURLToKey(t *testing.T) {
	a := URLToKey("https://example.com/a")
	b := URLToKey("https://example.com/b")
	if a == b {
		t.Error("distinct URLs produced the same key")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
	if a != URLToKey("https://example.com/a") {
		t.Error("key is not stable across calls")
	}
}

func TestFetchURLNoCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("hello")) //nolint:errcheck // test handler
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	body, err := FetchURL(context.Background(), nil, srv.Client(), req, nil)
	if err != nil {
		t.Fatalf("FetchURL() error = %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want %q", body, "hello")
	}
}

func TestFetchURLCachesResponse(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte("payload")) //nolint:errcheck // test handler
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
		if err != nil {
			t.Fatal(err)
		}
		body, err := FetchURL(context.Background(), cache, srv.Client(), req, nil)
		if err != nil {
			t.Fatalf("FetchURL() error = %v", err)
		}
		if string(body) != "payload" {
			t.Errorf("body = %q, want %q", body, "payload")
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestFetchURLCachesHTTPError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
		if err != nil {
			t.Fatal(err)
		}
		_, err = FetchURL(context.Background(), cache, srv.Client(), req, nil)
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("FetchURL() error = %v, want HTTPError", err)
		}
		if httpErr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1 (error should be cached)", got)
	}
}

func TestNewNullAlwaysFetches(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte("fresh")) //nolint:errcheck // test handler
	}))
	defer srv.Close()

	cache := NewNull()
	for range 2 {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, http.NoBody)
		if err != nil {
			t.Fatal(err)
		}
		body, err := FetchURL(context.Background(), cache, srv.Client(), req, nil)
		if err != nil {
			t.Fatalf("FetchURL() error = %v", err)
		}
		if string(body) != "fresh" {
			t.Errorf("body = %q, want %q", body, "fresh")
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d requests, want 2 (null cache never persists)", got)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &HTTPError{StatusCode: 429}, true},
		{"bad gateway", &HTTPError{StatusCode: 502}, true},
		{"not found", &HTTPError{StatusCode: 404}, false},
		{"forbidden", &HTTPError{StatusCode: 403}, false},
		{"network error", errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
