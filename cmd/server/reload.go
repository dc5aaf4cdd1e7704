package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swa/agilemetrics/internal/client"
	"github.com/swa/agilemetrics/internal/validation"
)

// reloadCmd makes a running server reread its database
var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the snapshot of a running server",
	Args:  cobra.NoArgs,
	RunE:  runReload,
}

func runReload(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	stats, err := client.NewClient(server, token).Reload(ctx)
	if err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reloaded %s\n", server)
	fmt.Fprintf(out, "  column status rows: %d\n", stats.ColumnStatusRows)
	fmt.Fprintf(out, "  daily flow rows:    %d\n", stats.DailyFlowRows)
	fmt.Fprintf(out, "  extent:             %s to %s\n",
		validation.FormatDate(stats.MinDate), validation.FormatDate(stats.MaxDate))
	return nil
}
