package commands

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [symbols...]",
	Short: "Refresh the daily history cache",
	Long: `Fetches a market snapshot, filters the universe and pulls daily
bars for every symbol whose cache misses the last trading day.
Passing symbols limits the refresh to those codes.

Example:
  hunter refresh
  hunter refresh 600519 000858`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	a.Orchestrator.SetProgress(func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Refreshing"),
			)
		}
		bar.Set(done)
	})

	sum, err := a.RunRefresh(cmd.Context(), args)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	fmt.Printf("updated=%d unchanged=%d failed=%d\n", sum.Updated, sum.Unchanged, sum.Failed)
	if sum.Failed > 0 {
		for _, r := range sum.Results {
			if r.Err != nil {
				fmt.Printf("  %s: %v\n", r.Symbol, r.Err)
			}
		}
	}
	return nil
}
