// Package transport provides the HTTP GET capability used to talk to the log
// query service, including retries of transient failures.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Request describes one GET request.
type Request struct {
	// URL is the absolute target. Query parameters already present in it
	// (continuation links carry their own) are preserved.
	URL string

	// Header is sent as-is.
	Header http.Header

	// Query is merged into the URL query string. Nil sends nothing extra.
	Query url.Values

	// Timeout bounds a single attempt. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Response is the outcome of a request that reached the server. Non-2xx
// statuses are reported here, not as errors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

// Doer performs GET requests.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f DoerFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
