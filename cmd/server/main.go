package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/swa/agilemetrics/internal/config"
	"github.com/swa/agilemetrics/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	cfg    *config.Config
	logger *logging.Logger

	// Global flags
	logLevel string
	timeout  time.Duration
)

// rootCmd serves the dashboard when run without a subcommand
var rootCmd = &cobra.Command{
	Use:   "agilemetrics",
	Short: "Kanban flow metrics dashboard",
	Long: `agilemetrics reads hourly column status and daily arrival/inventory data
from a relational database and serves work in progress, cumulative flow,
arrivals, inventory and lead time (Little's law) as a dashboard and JSON API.

Configuration comes from defaults, the YAML file named by CONFIG_FILE and
the environment (SWA_DB_HOST, SWA_DB_PORT, SWA_DB_DB, SWA_DB_USER,
SWA_DB_PASS, ...). A .env file in the working directory is loaded first.

Run without arguments to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		// Keep stdout for command output outside the server
		if !servesHTTP(cmd) && cfg.Logging.Output == "stdout" {
			cfg.Logging.Output = "stderr"
		}

		logger, err = logging.Build(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func servesHTTP(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "serve"
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Startup and command timeout")

	reportCmd.Flags().String("from", "", "First date (YYYY-MM-DD); defaults to the data extent")
	reportCmd.Flags().String("to", "", "Last date (YYYY-MM-DD); defaults to the data extent")
	reportCmd.Flags().StringSlice("exclude", nil, "Columns to exclude from work in progress (default: configured exclusions)")
	reportCmd.Flags().String("hourly-bound", "", "Upper bound of the hourly series: inclusive or exclusive")
	reportCmd.Flags().String("format", "text", "Output format: text or json")
	reportCmd.Flags().String("server", "", "Ask a running server instead of reading the database")

	reloadCmd.Flags().String("server", "http://localhost:8050", "Server base URL")
	for _, c := range []*cobra.Command{reportCmd, reloadCmd} {
		c.Flags().String("token", os.Getenv("AGILEMETRICS_TOKEN"), "Bearer token for --server (default $AGILEMETRICS_TOKEN)")
	}

	tokenCmd.Flags().String("subject", "viewer", "Token subject")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(reloadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
