package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := Parse(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Parse reads a configuration file and applies environment overrides without
// validating the result.
func Parse(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

// FromEnvironment builds a configuration from defaults and environment
// variables only, for runs without a configuration file.
func FromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks a configuration for errors and fills in defaults. Every
// problem found is reported, not just the first one.
func Validate(cfg *Config) error {
	var result error

	// Expand environment variables in the key
	cfg.APIKey = expandEnvVar(cfg.APIKey)
	if cfg.APIKey == "" {
		result = multierror.Append(result,
			fmt.Errorf("api_key: is required (or set %s)", EnvAPIKey))
	}

	if cfg.QueryURL == "" {
		cfg.QueryURL = DefaultQueryURL
	}
	if err := validateURL(cfg.QueryURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("query_url: %w", err))
	}

	if cfg.Timeout < 0 {
		result = multierror.Append(result, errors.New("timeout: must not be negative"))
	} else if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.PollInterval < 0 {
		result = multierror.Append(result, errors.New("poll_interval: must not be negative"))
	} else if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if err := validateRetry(&cfg.Retry); err != nil {
		result = multierror.Append(result, fmt.Errorf("retry: %w", err))
	}

	seen := make(map[string]bool, len(cfg.Queries))
	for i := range cfg.Queries {
		q := &cfg.Queries[i]
		if err := validateQuery(q); err != nil {
			result = multierror.Append(result, fmt.Errorf("queries[%d] (%s): %w", i, q.Name, err))
			continue
		}
		if seen[q.Name] {
			result = multierror.Append(result, fmt.Errorf("queries[%d] (%s): duplicate name", i, q.Name))
		}
		seen[q.Name] = true
	}

	return result
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	return nil
}

func validateRetry(r *RetryConfig) error {
	if r.MaxAttempts < 0 {
		return errors.New("max_attempts must not be negative")
	}
	if r.MaxAttempts == 0 {
		r.MaxAttempts = DefaultRetryMaxAttempts
	}

	if r.Wait < 0 {
		return errors.New("wait must not be negative")
	}
	if r.Wait == 0 {
		r.Wait = DefaultRetryWait
	}

	return nil
}

func validateQuery(q *QueryConfig) error {
	if q.Name == "" {
		return errors.New("name is required")
	}

	if q.LogID == "" {
		return errors.New("log_id is required")
	}

	if q.PerPage < 0 {
		return fmt.Errorf("per_page must not be negative, got %d", q.PerPage)
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
