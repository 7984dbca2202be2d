// Package config provides configuration loading and validation for logpull.
package config

import (
	"time"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// APIKey authenticates every request. Supports ${VAR} / $VAR expansion.
	APIKey string `yaml:"api_key"`

	// QueryURL is the query endpoint of the service.
	QueryURL string `yaml:"query_url,omitempty"`

	// Timeout bounds every HTTP call.
	// Defaults to 30s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// PollInterval is the pause between two poll attempts.
	// Defaults to 3s if not specified.
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// Retry controls how transient transport failures are retried.
	Retry RetryConfig `yaml:"retry,omitempty"`

	// Queries are saved queries that can be run by name.
	Queries []QueryConfig `yaml:"queries,omitempty"`
}

// RetryConfig defines the transport retry policy.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per request.
	// Defaults to 3 if not specified.
	MaxAttempts int `yaml:"max_attempts,omitempty"`

	// Wait is the pause between two attempts.
	// Defaults to 1s if not specified.
	Wait time.Duration `yaml:"wait,omitempty"`
}

// QueryConfig defines a saved query.
type QueryConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// LogID is the log the query runs against (required).
	LogID string `yaml:"log_id"`

	// Query is the filter expression. Empty matches everything.
	Query string `yaml:"query,omitempty"`

	// PerPage is the page size hint sent with the query.
	PerPage int `yaml:"per_page,omitempty"`
}

// FindQuery returns the saved query with the given name.
func (c *Config) FindQuery(name string) (*QueryConfig, bool) {
	for i := range c.Queries {
		if c.Queries[i].Name == name {
			return &c.Queries[i], true
		}
	}
	return nil, false
}
