// Package cli provides the command-line interface for logpull.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logpull/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return 0
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	logOpts := &commands.LogOptions{}

	rootCmd := &cobra.Command{
		Use:   "logpull",
		Short: "Pull log records from a Logentries-style query service",
		Long: `logpull runs queries against a Logentries-style REST query service and
prints the matching log records.

The service answers queries asynchronously: logpull submits the query, polls
until the result is ready and follows result pages until the end.

Credentials and saved queries are read from a YAML configuration file, or from
the LOGPULL_API_KEY and LOGPULL_QUERY_URL environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logOpts.Validate()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logOpts.Level, "log-level", "warn", "Log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&logOpts.JSON, "log-json", false, "Write logs as JSON")

	// Add subcommands
	rootCmd.AddCommand(commands.NewQueryCommand(logOpts))
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
