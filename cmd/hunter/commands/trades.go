package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Show the trade history",
	RunE:  runTrades,
}

func init() {
	rootCmd.AddCommand(tradesCmd)
}

func runTrades(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	trades, err := a.Ledger.Trades()
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Println("no trades recorded")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Date", "Symbol", "Grade", "Entry", "Exit", "Qty", "PnL", "PnL%", "Days", "Reason"}),
	)
	var total float64
	for _, tr := range trades {
		total += tr.RealizedPnL
		table.Append([]string{
			tr.ExitDate.Format("2006-01-02"),
			tr.Symbol,
			string(tr.Grade),
			fmt.Sprintf("%.2f", tr.EntryPrice),
			fmt.Sprintf("%.2f", tr.ExitPrice),
			fmt.Sprintf("%d", tr.Quantity),
			fmt.Sprintf("%.2f", tr.RealizedPnL),
			fmt.Sprintf("%.2f%%", tr.PnLPct*100),
			fmt.Sprintf("%d", tr.DaysHeld),
			string(tr.Reason),
		})
	}
	table.Render()
	fmt.Printf("\ntotal realized pnl: %.2f over %d trades\n", total, len(trades))
	return nil
}
