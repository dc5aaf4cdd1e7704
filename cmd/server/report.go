package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/swa/agilemetrics/internal/client"
	"github.com/swa/agilemetrics/internal/config"
	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/initialization"
	"github.com/swa/agilemetrics/internal/validation"
)

// reportCmd runs one computation pass and prints it
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print flow metrics for a date range",
	Long: `Load the data once, compute the report for the selection and print it.

Examples:
  agilemetrics report --from 2024-03-01 --to 2024-03-31
  agilemetrics report --exclude Done --exclude Archived --format json
  agilemetrics report --exclude ""    # exclude nothing
  agilemetrics report --server http://localhost:8050 --token $TOKEN`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

// selectionFromFlags maps report flags onto a selection request. An
// unset --exclude keeps the configured exclusions.
func selectionFromFlags(cmd *cobra.Command) (dashboard.SelectionRequest, error) {
	flags := cmd.Flags()
	req := dashboard.SelectionRequest{}
	var err error
	if req.MinDate, err = flags.GetString("from"); err != nil {
		return req, err
	}
	if req.MaxDate, err = flags.GetString("to"); err != nil {
		return req, err
	}
	if req.HourlyBound, err = flags.GetString("hourly-bound"); err != nil {
		return req, err
	}
	if flags.Changed("exclude") {
		excluded, err := flags.GetStringSlice("exclude")
		if err != nil {
			return req, err
		}
		req.Exclude = append([]string{}, excluded...)
	}
	return req, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return validation.NewError("format", "must be text or json, got %q", format)
	}
	req, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var report *dashboard.Report
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		token, _ := cmd.Flags().GetString("token")
		report, err = client.NewClient(server, token).Report(ctx, req)
	} else {
		report, err = buildReport(ctx, cfg, req)
	}
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), report, format)
}

func buildReport(ctx context.Context, cfg *config.Config, req dashboard.SelectionRequest) (*dashboard.Report, error) {
	result, err := initialization.NewBootstrap(cfg, logger).
		WithRetry(initialization.RetryConfig{MaxAttempts: 1}).
		Initialize(ctx)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	defaults, err := dashboard.NewDefaults(cfg.Flow.DefaultExcluded, cfg.Flow.HourlyBound)
	if err != nil {
		return nil, err
	}
	snap, err := result.Store.Current()
	if err != nil {
		return nil, err
	}
	sel, err := req.Resolve(snap, defaults)
	if err != nil {
		return nil, err
	}
	return dashboard.Build(snap, sel), nil
}

func writeReport(w io.Writer, report *dashboard.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.WriteText(w)
}
