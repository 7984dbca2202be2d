package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logpull/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a logpull configuration file without running any query.

Checks:
  - YAML syntax
  - API key presence (after environment expansion)
  - Query URL validity
  - Timeout, poll interval and retry settings
  - Saved query fields and name uniqueness`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration valid!\n")
	_, _ = fmt.Fprintf(out, "  Query URL:     %s\n", cfg.QueryURL)
	_, _ = fmt.Fprintf(out, "  Timeout:       %s\n", cfg.Timeout)
	_, _ = fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval)
	_, _ = fmt.Fprintf(out, "  Retry:         %d attempt(s), %s apart\n", cfg.Retry.MaxAttempts, cfg.Retry.Wait)
	_, _ = fmt.Fprintf(out, "  Saved queries: %d\n", len(cfg.Queries))

	if len(cfg.Queries) == 0 {
		return nil
	}

	_, _ = fmt.Fprintf(out, "\nQueries:\n")
	for i, q := range cfg.Queries {
		expr := q.Query
		if expr == "" {
			expr = "where()"
		}
		_, _ = fmt.Fprintf(out, "  %d. %s [log %s] %s\n", i+1, q.Name, q.LogID, expr)
		if q.Description != "" {
			_, _ = fmt.Fprintf(out, "     %s\n", q.Description)
		}
	}

	return nil
}
