package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logpull/pkg/config"
	"github.com/ccollicutt/logpull/pkg/metrics"
	"github.com/ccollicutt/logpull/pkg/output"
	"github.com/ccollicutt/logpull/pkg/query"
	"github.com/ccollicutt/logpull/pkg/transport"
)

// QueryOptions holds command-line options for the query command.
type QueryOptions struct {
	ConfigPath string
	Name       string

	LogID   string
	Query   string
	From    string
	To      string
	PerPage int

	Timeout      time.Duration
	PollInterval time.Duration

	Output string
	Fields []string
	Pretty bool

	IgnoreInvalidJSON bool
	Collect           bool
	Summary           bool
	MetricsFile       string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(logOpts *LogOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query and print the matching records",
		Long: `Run a query against the log query service and print every matching record.

Records are printed as soon as each result page arrives. With --collect the
whole result is fetched first and printed at the end.

Times (--from, --to) accept RFC3339 ("2024-01-15T10:00:00Z"), epoch
milliseconds ("1705312800000") or a duration meaning that long ago ("2h").

Messages that are not JSON are printed as {"raw": <message>} unless
--ignore-invalid-json is set, in which case they are skipped.

Exit codes:
  0 - Query completed
  2 - Configuration or runtime error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, logOpts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (default: environment only)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Run the saved query with this name")

	cmd.Flags().StringVar(&opts.LogID, "log-id", "", "Log to query")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Query expression (default: where())")
	cmd.Flags().StringVar(&opts.From, "from", "", "Start of the time range (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "End of the time range (default: now)")
	cmd.Flags().IntVar(&opts.PerPage, "per-page", 0, "Page size hint sent to the service")

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Timeout of each HTTP request (default: from config)")
	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", 0, "Pause between poll requests (default: from config)")

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "Only print these fields (can be repeated)")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "Indent JSON output")

	cmd.Flags().BoolVar(&opts.IgnoreInvalidJSON, "ignore-invalid-json", false, "Skip messages that are not JSON")
	cmd.Flags().BoolVar(&opts.Collect, "collect", false, "Fetch the whole result before printing")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "Print a summary to stderr when done")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file when done")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, logOpts *LogOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	qopts, err := buildQueryOptions(cmd, cfg, opts, time.Now())
	if err != nil {
		return err
	}

	formatter, err := output.New(opts.Output, output.FormatOptions{
		Fields: opts.Fields,
		Pretty: opts.Pretty,
	})
	if err != nil {
		return err
	}

	logger := logOpts.Logger(cmd.ErrOrStderr())

	pages := &pageCounter{}
	observers := []query.Observer{pages}
	var metricsObs *metrics.Observer
	if opts.MetricsFile != "" {
		metricsObs = metrics.New()
		observers = append(observers, metricsObs)
	}

	client, err := query.NewClient(cfg.APIKey,
		query.WithQueryURL(cfg.QueryURL),
		query.WithDoer(newDoer(cfg)),
		query.WithLogger(logger),
		query.WithObserver(query.JoinObservers(observers...)),
	)
	if err != nil {
		return err
	}

	start := time.Now()
	count, runErr := printRecords(ctx, client, qopts, opts.Collect, formatter, cmd.OutOrStdout())
	elapsed := time.Since(start)

	if metricsObs != nil {
		if err := metricsObs.WriteTextfile(opts.MetricsFile); err != nil {
			if runErr == nil {
				return err
			}
			logger.Warn("could not write metrics", "path", opts.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	if opts.Summary {
		return output.WriteSummary(cmd.ErrOrStderr(), output.Summary{
			Records:  count,
			Pages:    pages.pages,
			From:     qopts.From,
			To:       qopts.To,
			Duration: elapsed,
		})
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.FromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("loading config from environment: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// buildQueryOptions merges the saved query (if any), the configuration and the
// flags. Flags that were set explicitly win.
func buildQueryOptions(cmd *cobra.Command, cfg *config.Config, opts *QueryOptions, now time.Time) (query.Options, error) {
	qopts := query.Options{
		Timeout:           cfg.Timeout,
		PollInterval:      cfg.PollInterval,
		IgnoreInvalidJSON: opts.IgnoreInvalidJSON,
	}

	if opts.Name != "" {
		saved, ok := cfg.FindQuery(opts.Name)
		if !ok {
			return query.Options{}, fmt.Errorf("no saved query named %q", opts.Name)
		}
		qopts.LogID = saved.LogID
		qopts.Query = saved.Query
		qopts.PerPage = saved.PerPage
	}

	flags := cmd.Flags()
	if flags.Changed("log-id") {
		qopts.LogID = opts.LogID
	}
	if flags.Changed("query") {
		qopts.Query = opts.Query
	}
	if flags.Changed("per-page") {
		qopts.PerPage = opts.PerPage
	}
	if flags.Changed("timeout") {
		qopts.Timeout = opts.Timeout
	}
	if flags.Changed("poll-interval") {
		qopts.PollInterval = opts.PollInterval
	}

	var err error
	if qopts.From, err = parseTime(opts.From, now); err != nil {
		return query.Options{}, fmt.Errorf("--from: %w", err)
	}
	if qopts.To, err = parseTime(opts.To, now); err != nil {
		return query.Options{}, fmt.Errorf("--to: %w", err)
	}
	if qopts.To.IsZero() {
		qopts.To = now
	}

	if !opts.IgnoreInvalidJSON {
		qopts.OnInvalidJSON = func(raw string) query.Record {
			return query.Record{"raw": raw}
		}
	}

	return qopts, nil
}

func newDoer(cfg *config.Config) transport.Doer {
	return transport.NewHTTPDoer(
		transport.WithRetry(transport.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Wait:        cfg.Retry.Wait,
		}),
		transport.WithUserAgent("logpull/"+Version),
	)
}

// printRecords runs the query and formats every record to w. It returns the
// number of records printed.
func printRecords(ctx context.Context, client *query.Client, qopts query.Options, collect bool, f output.Formatter, w io.Writer) (int, error) {
	if collect {
		records, err := client.Collect(ctx, qopts)
		if err != nil {
			return 0, err
		}
		for i, rec := range records {
			if err := f.Format(ctx, rec, w); err != nil {
				return i, fmt.Errorf("formatting output: %w", err)
			}
		}
		return len(records), nil
	}

	stream, err := client.Query(ctx, qopts)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	count := 0
	for rec, err := range stream.All(ctx) {
		if err != nil {
			return count, err
		}
		if err := f.Format(ctx, rec, w); err != nil {
			return count, fmt.Errorf("formatting output: %w", err)
		}
		count++
	}
	return count, nil
}

// pageCounter counts decoded pages for the summary.
type pageCounter struct {
	query.NopObserver
	pages int
}

func (p *pageCounter) PageDecoded(string, int, string) {
	p.pages++
}
