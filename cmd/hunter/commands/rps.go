package commands

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var rpsTop int

var rpsCmd = &cobra.Command{
	Use:   "rps",
	Short: "Relative-strength table operations",
}

var rpsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Recompute the RPS table from the history cache",
	Long: `Ranks every cached symbol's 120- and 20-day returns and persists
the table for today's trading day. Run after the close, once the
history cache is refreshed.`,
	RunE: runRPSUpdate,
}

var rpsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the strongest symbols from today's table",
	RunE:  runRPSShow,
}

func init() {
	rootCmd.AddCommand(rpsCmd)
	rpsCmd.AddCommand(rpsUpdateCmd)
	rpsCmd.AddCommand(rpsShowCmd)
	rpsShowCmd.Flags().IntVar(&rpsTop, "top", 30, "number of rows to show")
}

func runRPSUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	table, err := a.UpdateRPS(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("ranked %d symbols for %s\n", len(table.Results), table.Date.Format("2006-01-02"))
	return nil
}

func runRPSShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	table, err := a.RPSFor(cmd.Context(), time.Now())
	if err != nil {
		return err
	}

	results := make([]struct {
		symbol       string
		long, short  float64
		weakToStrong bool
	}, 0, len(table.Results))
	for sym, r := range table.Results {
		results = append(results, struct {
			symbol       string
			long, short  float64
			weakToStrong bool
		}{sym, r.Long, r.Short, r.WeakToStrong})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].long != results[j].long {
			return results[i].long > results[j].long
		}
		return results[i].symbol < results[j].symbol
	})
	if rpsTop > 0 && len(results) > rpsTop {
		results = results[:rpsTop]
	}

	out := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "RPS120", "RPS20", "Weak→Strong"}),
	)
	for _, r := range results {
		mark := ""
		if r.weakToStrong {
			mark = "yes"
		}
		out.Append([]string{
			r.symbol,
			fmt.Sprintf("%.1f", r.long),
			fmt.Sprintf("%.1f", r.short),
			mark,
		})
	}
	out.Render()
	return nil
}
