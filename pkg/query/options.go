package query

import (
	"net/url"
	"strconv"
	"time"
)

// Defaults applied to Options.
const (
	DefaultQuery        = "where()"
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 3 * time.Second
)

// Options are the parameters of one query invocation.
type Options struct {
	// LogID identifies the log to query (required).
	LogID string

	// From is the start of the time range (required).
	From time.Time

	// To is the end of the time range. Zero means the time of the invocation.
	To time.Time

	// Query is the filter expression. Empty matches everything.
	Query string

	// PerPage is a page size hint. Zero lets the service decide.
	PerPage int

	// Timeout bounds every HTTP call. Zero uses DefaultTimeout.
	Timeout time.Duration

	// PollInterval is the pause between two poll attempts. Zero uses
	// DefaultPollInterval.
	PollInterval time.Duration

	// IgnoreInvalidJSON drops events whose message is not JSON.
	IgnoreInvalidJSON bool

	// OnInvalidJSON substitutes a record for a message that is not JSON.
	OnInvalidJSON InvalidJSONHandler

	// Observer receives the progress of this invocation only.
	Observer Observer
}

// validate checks the options without touching the network.
func (o *Options) validate() error {
	if o.LogID == "" {
		return &ConfigurationError{Field: "logId", Reason: "must be defined"}
	}
	if o.From.IsZero() {
		return &ConfigurationError{Field: "from", Reason: "must be defined"}
	}
	if !o.To.IsZero() && o.To.Before(o.From) {
		return &ConfigurationError{Field: "to", Reason: "must not be before from"}
	}
	if o.PerPage < 0 {
		return &ConfigurationError{Field: "perPage", Reason: "must not be negative"}
	}
	if o.Timeout < 0 {
		return &ConfigurationError{Field: "timeout", Reason: "must not be negative"}
	}
	if o.PollInterval < 0 {
		return &ConfigurationError{Field: "pollInterval", Reason: "must not be negative"}
	}
	return nil
}

// withDefaults returns a copy with every unset option filled in.
func (o Options) withDefaults(now time.Time) Options {
	if o.To.IsZero() {
		o.To = now
	}
	if o.Query == "" {
		o.Query = DefaultQuery
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// params builds the query string of the submission request.
func (o *Options) params() url.Values {
	v := url.Values{}
	v.Set("query", o.Query)
	v.Set("from", strconv.FormatInt(o.From.UnixMilli(), 10))
	v.Set("to", strconv.FormatInt(o.To.UnixMilli(), 10))
	if o.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(o.PerPage))
	}
	return v
}

func (o *Options) decodeOptions() DecodeOptions {
	return DecodeOptions{
		IgnoreInvalidJSON: o.IgnoreInvalidJSON,
		OnInvalidJSON:     o.OnInvalidJSON,
	}
}
