package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Defaults for HTTPDoer.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryWait   = time.Second
	DefaultMaxBodySize = 64 << 20
	DefaultUserAgent   = "logpull"
)

// ErrBodyTooLarge is returned when a response body exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// RetryPolicy controls how transient failures are retried. Network errors,
// per-attempt timeouts and 429/502/503/504 responses are transient.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// Wait is the pause between two attempts.
	Wait time.Duration
}

// HTTPDoer implements Doer on top of net/http.
type HTTPDoer struct {
	httpClient  *http.Client
	retry       RetryPolicy
	maxBodySize int64
	userAgent   string
}

// Option configures an HTTPDoer.
type Option func(*HTTPDoer)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *HTTPDoer) {
		d.httpClient = c
	}
}

// WithRetry sets the retry policy. Zero fields keep their defaults.
func WithRetry(p RetryPolicy) Option {
	return func(d *HTTPDoer) {
		if p.MaxAttempts > 0 {
			d.retry.MaxAttempts = p.MaxAttempts
		}
		if p.Wait > 0 {
			d.retry.Wait = p.Wait
		}
	}
}

// WithMaxBodySize limits the size of a decoded response body.
func WithMaxBodySize(n int64) Option {
	return func(d *HTTPDoer) {
		d.maxBodySize = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *HTTPDoer) {
		d.userAgent = ua
	}
}

// NewHTTPDoer creates a new HTTP transport.
func NewHTTPDoer(opts ...Option) *HTTPDoer {
	d := &HTTPDoer{
		httpClient: &http.Client{},
		retry: RetryPolicy{
			MaxAttempts: DefaultMaxAttempts,
			Wait:        DefaultRetryWait,
		},
		maxBodySize: DefaultMaxBodySize,
		userAgent:   DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Do issues a GET request, retrying transient failures. The last error or
// response is returned once attempts are exhausted.
func (d *HTTPDoer) Do(ctx context.Context, req *Request) (*Response, error) {
	target, err := buildURL(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	for attempt := 1; ; attempt++ {
		resp, err := d.doOnce(ctx, target, req)
		if resp != nil {
			resp.Attempts = attempt
			resp.Duration = time.Since(start)
		}

		if attempt >= d.retry.MaxAttempts || !retryable(ctx, resp, err) {
			return resp, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.retry.Wait):
		}
	}
}

func (d *HTTPDoer) doOnce(ctx context.Context, target string, req *Request) (*Response, error) {
	// Apply timeout
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("User-Agent", d.userAgent)
	httpReq.Header.Set("Accept-Encoding", "gzip")

	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := d.readBody(httpResp)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (d *HTTPDoer) readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read gzip response: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	body, err := io.ReadAll(io.LimitReader(r, d.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > d.maxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, d.maxBodySize)
	}
	return body, nil
}

// retryable reports whether an attempt failed transiently. Nothing is retried
// once the caller's context is done.
func retryable(ctx context.Context, resp *Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return !errors.Is(err, ErrBodyTooLarge)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func buildURL(raw string, query url.Values) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if len(query) == 0 {
		return u.String(), nil
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
