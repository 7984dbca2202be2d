package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func fastRetry() Option {
	return WithRetry(RetryPolicy{MaxAttempts: 3, Wait: time.Millisecond})
}

func TestHTTPDoer_Do_Success(t *testing.T) {
	var receivedKey, receivedUA, receivedQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedKey = r.Header.Get("x-api-key")
		receivedUA = r.Header.Get("User-Agent")
		receivedQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"links":[]}`))
	}))
	defer server.Close()

	header := http.Header{}
	header.Set("x-api-key", "secret")

	resp, err := NewHTTPDoer().Do(context.Background(), &Request{
		URL:    server.URL + "/query/logs/abc",
		Header: header,
		Query:  url.Values{"query": {"where()"}, "from": {"1"}},
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"links":[]}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}
	if resp.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", resp.Attempts)
	}
	if receivedKey != "secret" {
		t.Errorf("expected api key header, got %q", receivedKey)
	}
	if receivedUA != DefaultUserAgent {
		t.Errorf("expected User-Agent %q, got %q", DefaultUserAgent, receivedUA)
	}
	if receivedQuery != "from=1&query=where%28%29" {
		t.Errorf("unexpected query string: %s", receivedQuery)
	}
}

func TestHTTPDoer_Do_PreservesLinkQuery(t *testing.T) {
	var receivedQuery url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewHTTPDoer().Do(context.Background(), &Request{
		URL: server.URL + "/next?sequence_number=42",
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if receivedQuery.Get("sequence_number") != "42" {
		t.Errorf("link query lost: %v", receivedQuery)
	}
	if receivedQuery.Has("query") {
		t.Errorf("unexpected query parameter: %v", receivedQuery)
	}
}

func TestHTTPDoer_Do_Gzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("expected gzip to be accepted, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		_, _ = zw.Write([]byte(`{"events":[]}`))
		_ = zw.Close()
	}))
	defer server.Close()

	resp, err := NewHTTPDoer().Do(context.Background(), &Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(resp.Body) != `{"events":[]}` {
		t.Errorf("unexpected body: %q", resp.Body)
	}
}

func TestHTTPDoer_Do_RetriesTransientStatus(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	resp, err := NewHTTPDoer(fastRetry()).Do(context.Background(), &Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", resp.Attempts)
	}
}

func TestHTTPDoer_Do_GivesUpAfterMaxAttempts(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	resp, err := NewHTTPDoer(fastRetry()).Do(context.Background(), &Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", resp.StatusCode)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPDoer_Do_NoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resp, err := NewHTTPDoer(fastRetry()).Do(context.Background(), &Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.StatusCode)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestHTTPDoer_Do_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	doer := NewHTTPDoer(WithRetry(RetryPolicy{MaxAttempts: 1}))
	_, err := doer.Do(context.Background(), &Request{
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestHTTPDoer_Do_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPDoer(fastRetry()).Do(ctx, &Request{URL: server.URL})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context canceled, got %v", err)
	}
}

func TestHTTPDoer_Do_BodyTooLarge(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte(strings.Repeat("x", 128)))
	}))
	defer server.Close()

	_, err := NewHTTPDoer(fastRetry(), WithMaxBodySize(64)).Do(context.Background(), &Request{URL: server.URL})
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("oversized bodies must not be retried, got %d attempts", attempts.Load())
	}
}

func TestHTTPDoer_Do_InvalidURL(t *testing.T) {
	tests := []string{
		"ftp://example.com/logs",
		"not a url",
		"://missing",
	}

	for _, raw := range tests {
		_, err := NewHTTPDoer().Do(context.Background(), &Request{URL: raw})
		if err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestWithRetry_KeepsDefaults(t *testing.T) {
	d := NewHTTPDoer(WithRetry(RetryPolicy{}))
	if d.retry.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", DefaultMaxAttempts, d.retry.MaxAttempts)
	}
	if d.retry.Wait != DefaultRetryWait {
		t.Errorf("expected wait %v, got %v", DefaultRetryWait, d.retry.Wait)
	}
}

func TestDoerFunc(t *testing.T) {
	var called bool
	d := DoerFunc(func(ctx context.Context, req *Request) (*Response, error) {
		called = true
		return &Response{StatusCode: http.StatusOK}, nil
	})

	resp, err := d.Do(context.Background(), &Request{URL: "https://example.com"})
	if err != nil || resp.StatusCode != http.StatusOK || !called {
		t.Errorf("DoerFunc did not delegate: resp=%v err=%v", resp, err)
	}
}
