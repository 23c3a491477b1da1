package main

import (
	"context"
	"fmt"

	"binops/cmd/bins/ui"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show what this machine did recently",
	Long:  "Lists logins, logouts and changes made from this machine, newest first.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		acts, err := a.fleet.History(historyLimit)
		if err != nil {
			return err
		}
		styles := ui.DefaultStyles()
		fmt.Fprint(cmd.OutOrStdout(), ui.ActivityTable(acts, styles).View(styles))
		return nil
	})
}
