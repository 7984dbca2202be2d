// Package query retrieves log records from a Logentries-style REST query
// service.
//
// The service answers a query asynchronously: the query is accepted, then
// polled until it has finished, and large results are split into pages linked
// from one another. Client hides both layers behind a Stream that fetches
// pages on demand, and Collect, which drains a Stream into memory.
package query

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/ccollicutt/logpull/pkg/transport"
)

// DefaultQueryURL is the query endpoint of the Logentries REST API.
const DefaultQueryURL = "https://rest.logentries.com/query/logs"

// Client issues queries against one query endpoint with one API key. A
// Client holds no per-query state and may be shared between goroutines.
type Client struct {
	apiKey   string
	queryURL string
	doer     transport.Doer
	logger   hclog.Logger
	observer Observer
	now      func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithQueryURL overrides DefaultQueryURL.
func WithQueryURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.queryURL = strings.TrimRight(u, "/")
		}
	}
}

// WithDoer sets the transport. The default is transport.NewHTTPDoer().
func WithDoer(d transport.Doer) ClientOption {
	return func(c *Client) {
		c.doer = d
	}
}

// WithLogger sets the logger receiving the progress of every query.
func WithLogger(l hclog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithObserver adds an observer notified for every query of the client, in
// addition to the per-query Options.Observer.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// WithClock replaces time.Now, which supplies the default end of the range.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a client. It fails with a ConfigurationError when apiKey
// is empty.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Field: "apiKey", Reason: "must be defined"}
	}

	c := &Client{
		apiKey:   apiKey,
		queryURL: DefaultQueryURL,
		logger:   hclog.NewNullLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = transport.NewHTTPDoer()
	}
	return c, nil
}

// Query validates opts and returns a Stream over the matching records.
// Nothing is sent until the first call to Stream.Next.
func (c *Client) Query(_ context.Context, opts Options) (*Stream, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults(c.now())

	header := http.Header{}
	header.Set(APIKeyHeader, c.apiKey)
	header.Set("Accept", "application/json")

	id := uuid.NewString()
	m := &machine{
		id:    id,
		state: StateSubmitting,
		observer: JoinObservers(
			NewLogObserver(c.logger.Named("query")),
			c.observer,
			opts.Observer,
		),
	}

	c.logger.Debug("query created", "query_id", id, "log_id", opts.LogID,
		"from", opts.From, "to", opts.To, "query", opts.Query)

	return &Stream{
		driver: &Driver{
			doer:         c.doer,
			header:       header,
			params:       opts.params(),
			timeout:      opts.Timeout,
			pollInterval: opts.PollInterval,
			decode:       opts.decodeOptions(),
			observer:     m.observer,
			m:            m,
		},
		m:    m,
		cont: Continuation{Target: c.queryURL + "/" + url.PathEscape(opts.LogID)},
	}, nil
}

// Collect runs the query to completion and returns every record, in page
// order. On error no records are returned.
func (c *Client) Collect(ctx context.Context, opts Options) ([]Record, error) {
	stream, err := c.Query(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	records := make([]Record, 0)
	for rec, err := range stream.All(ctx) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// CollectFunc runs Collect and hands its result to fn, which is called exactly
// once.
func (c *Client) CollectFunc(ctx context.Context, opts Options, fn func([]Record, error)) {
	fn(c.Collect(ctx, opts))
}
