package config

import (
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultQueryURL         = "https://rest.logentries.com/query/logs"
	DefaultTimeout          = 30 * time.Second
	DefaultPollInterval     = 3 * time.Second
	DefaultRetryMaxAttempts = 3
	DefaultRetryWait        = time.Second
)

// Environment variable names.
const (
	EnvAPIKey   = "LOGPULL_API_KEY"
	EnvQueryURL = "LOGPULL_QUERY_URL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		QueryURL:     DefaultQueryURL,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
		Retry: RetryConfig{
			MaxAttempts: DefaultRetryMaxAttempts,
			Wait:        DefaultRetryWait,
		},
		Queries: []QueryConfig{},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.APIKey = key
	}
	if u := os.Getenv(EnvQueryURL); u != "" {
		c.QueryURL = u
	}
}
