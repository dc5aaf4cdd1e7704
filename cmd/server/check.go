package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/swa/agilemetrics/internal/initialization"
	"github.com/swa/agilemetrics/internal/validation"
)

// checkCmd validates configuration and the data source without serving
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration, connect and load a snapshot",
	Long: `Validate the configuration, ping the database, load both relations and
print row counts, the date extent, the live columns and health checks.
Exits non-zero if any step fails.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	validator := initialization.NewValidator(logger)
	result := validator.ValidateConfig(cfg)
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			fmt.Fprintf(out, "error: %s\n", e)
		}
		return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	boot, err := initialization.NewBootstrap(cfg, logger).
		WithRetry(initialization.RetryConfig{MaxAttempts: 1}).
		Initialize(ctx)
	if err != nil {
		return err
	}
	defer boot.Close()

	snap, err := boot.Store.Current()
	if err != nil {
		return err
	}
	stats := snap.Stats()
	fmt.Fprintf(out, "column status rows: %d (%s)\n", stats.ColumnStatusRows, cfg.Database.ColumnStatusTable)
	fmt.Fprintf(out, "daily flow rows:    %d (%s)\n", stats.DailyFlowRows, cfg.Database.DailyFlowTable)
	fmt.Fprintf(out, "date extent:        %s .. %s\n", validation.FormatDate(stats.MinDate), validation.FormatDate(stats.MaxDate))
	fmt.Fprintf(out, "columns:            %v\n", stats.Columns)

	status := boot.Health.CheckAll(ctx)
	writeChecks(out, status)
	if !status.Overall {
		return fmt.Errorf("health status %s", status.Status)
	}
	return nil
}

func writeChecks(out io.Writer, status initialization.HealthStatus) {
	names := make([]string, 0, len(status.Checks))
	for name := range status.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(out, "health:             %s\n", status.Status)
	for _, name := range names {
		check := status.Checks[name]
		fmt.Fprintf(out, "  %-10s %-4s %s\n", name, check.Status, check.Message)
	}
}
