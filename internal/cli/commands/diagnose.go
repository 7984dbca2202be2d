package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/logpull/pkg/config"
	"github.com/ccollicutt/logpull/pkg/query"
	"github.com/ccollicutt/logpull/pkg/transport"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose      bool
	Connectivity bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// minPollInterval is the shortest poll interval that does not risk hitting
// the service rate limits.
const minPollInterval = time.Second

// queryOperators are the leading operators of a well-formed query expression.
var queryOperators = []string{"where(", "groupby(", "calculate(", "sort(", "limit(", "timeslice("}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- API key presence and shape
- Query URL scheme
- Poll interval and retry settings
- Saved query log ids and expressions
- Reachability of the query service (with --connectivity)

Example:
  logpull diagnose config.yaml
  logpull diagnose -v --connectivity config.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")
	cmd.Flags().BoolVar(&opts.Connectivity, "connectivity", false, "Check that the query service is reachable")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Validate; later checks see the defaults it fills in
	results = append(results, checkConfigValid(cfg))

	// 4. Credentials and endpoint
	results = append(results, checkAPIKey(cfg))
	results = append(results, checkQueryURL(cfg))

	// 5. Timing
	results = append(results, checkTiming(cfg, opts))

	// 6. Saved queries
	results = append(results, checkQueries(cfg, opts)...)

	// 7. Reachability
	if opts.Connectivity {
		results = append(results, checkConnectivity(ctx, cfg))
	}

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Or run queries without a config file by setting " + config.EnvAPIKey,
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Start with: api_key: ${" + config.EnvAPIKey + "}",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Parse(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
				"Durations need a unit, e.g. 30s or 500ms",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Saved queries: %d", len(cfg.Queries)),
	}
	return cfg, result
}

func checkConfigValid(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config Validation",
	}

	err := config.Validate(cfg)
	if err == nil {
		result.Status = "ok"
		result.Message = "All settings are valid"
		return result
	}

	result.Status = "error"
	var merr *multierror.Error
	if errors.As(err, &merr) {
		result.Message = fmt.Sprintf("%d problem(s) found", len(merr.Errors))
		for _, e := range merr.Errors {
			result.Details = append(result.Details, e.Error())
		}
	} else {
		result.Message = err.Error()
	}
	return result
}

func checkAPIKey(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "API Key",
	}

	source := "config file"
	if os.Getenv(config.EnvAPIKey) != "" {
		source = config.EnvAPIKey
	}

	switch {
	case cfg.APIKey == "":
		result.Status = "error"
		result.Message = "No API key configured"
		result.Suggests = []string{
			"Set api_key in the config file or export " + config.EnvAPIKey,
		}
	case uuid.Validate(cfg.APIKey) != nil:
		result.Status = "warning"
		result.Message = fmt.Sprintf("API key from %s does not look like a key (expected a UUID)", source)
		result.Suggests = []string{"Copy the key from the account settings of the log service"}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Configured (from %s)", source)
	}
	return result
}

func checkQueryURL(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Query URL",
	}

	u, err := url.Parse(cfg.QueryURL)
	switch {
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Invalid URL: %v", err)
	case u.Scheme != "http" && u.Scheme != "https":
		result.Status = "error"
		result.Message = fmt.Sprintf("Unsupported scheme %q (use https)", u.Scheme)
	case u.Scheme == "http":
		result.Status = "warning"
		result.Message = fmt.Sprintf("%s uses plain http; the API key is sent unencrypted", cfg.QueryURL)
	default:
		result.Status = "ok"
		result.Message = cfg.QueryURL
	}
	return result
}

func checkTiming(cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Timing",
	}

	warnings := []string{}
	if cfg.PollInterval > 0 && cfg.PollInterval < minPollInterval {
		warnings = append(warnings, fmt.Sprintf("poll_interval %s is below %s and may hit rate limits", cfg.PollInterval, minPollInterval))
	}
	if cfg.Retry.MaxAttempts == 1 {
		warnings = append(warnings, "retry.max_attempts is 1; transient failures abort the query")
	}

	if len(warnings) > 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
		result.Details = warnings
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Timeout %s, poll every %s", cfg.Timeout, cfg.PollInterval)
	if opts.Verbose {
		result.Details = []string{
			fmt.Sprintf("Retry: %d attempt(s), %s apart", cfg.Retry.MaxAttempts, cfg.Retry.Wait),
		}
	}
	return result
}

func checkQueries(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Queries) == 0 {
		// Saved queries are optional
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Saved Queries",
				Status:  "ok",
				Message: "No saved queries (optional)",
			})
		}
		return results
	}

	for _, q := range cfg.Queries {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Query: %s", q.Name),
		}

		warnings := []string{}
		if q.LogID != "" && uuid.Validate(q.LogID) != nil {
			warnings = append(warnings, fmt.Sprintf("log_id %q does not look like a log id (expected a UUID)", q.LogID))
		}
		if q.Query != "" && !hasQueryOperator(q.Query) {
			warnings = append(warnings, fmt.Sprintf("query %q does not start with a known operator", q.Query))
		}

		switch {
		case q.Name == "" || q.LogID == "":
			// Already reported by validation
			result.Status = "error"
			result.Message = "Incomplete query (see Config Validation)"
		case len(warnings) > 0:
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
			result.Suggests = []string{"Expressions look like: where(level=ERROR) calculate(count)"}
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Log %s", q.LogID)
			if opts.Verbose {
				expr := q.Query
				if expr == "" {
					expr = query.DefaultQuery
				}
				result.Details = []string{fmt.Sprintf("Query: %s", expr)}
				if q.PerPage > 0 {
					result.Details = append(result.Details, fmt.Sprintf("Per page: %d", q.PerPage))
				}
			}
		}

		results = append(results, result)
	}

	return results
}

func hasQueryOperator(expr string) bool {
	expr = strings.ToLower(strings.TrimSpace(expr))
	for _, op := range queryOperators {
		if strings.HasPrefix(expr, op) {
			return true
		}
	}
	return false
}

// checkConnectivity sends one GET to the query URL. Any HTTP answer other than
// an authentication failure means the service is reachable.
func checkConnectivity(ctx context.Context, cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Connectivity",
	}

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set(query.APIKeyHeader, cfg.APIKey)
	}

	doer := transport.NewHTTPDoer(
		transport.WithRetry(transport.RetryPolicy{MaxAttempts: 1}),
		transport.WithUserAgent("logpull/"+Version),
	)
	resp, err := doer.Do(ctx, &transport.Request{
		URL:     cfg.QueryURL,
		Header:  header,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the query URL is correct",
			"Verify network connectivity",
		}
		return result
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		result.Status = "error"
		result.Message = fmt.Sprintf("Reachable but the API key was rejected (status %d)", resp.StatusCode)
		result.Suggests = []string{"Check that the key has read access to the logs"}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d, %s)", resp.StatusCode, resp.Duration.Round(time.Millisecond))
	}
	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	_, _ = fmt.Fprintln(w, "=== logpull Configuration Diagnostics ===")
	_, _ = fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		_, _ = fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		_, _ = fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				_, _ = fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			_, _ = fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		_, _ = fmt.Fprintln(w)
	}

	// Summary
	_, _ = fmt.Fprintln(w, "---")
	_, _ = fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		_, _ = fmt.Fprintln(w, "\nFix the errors above before running queries.")
	} else if warnCount > 0 {
		_, _ = fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		_, _ = fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}
