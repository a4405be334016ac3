package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bigbit0987/stock-trans/internal/contracts"
)

var (
	openName     string
	openQuantity int
	closeFrac    float64
	closeForce   bool
)

var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Manage tracked positions",
}

var positionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open positions",
	RunE:  runPositionList,
}

var positionOpenCmd = &cobra.Command{
	Use:   "open <symbol> <price>",
	Short: "Open a position at the given price",
	Long: `Opens a tracked position. The ATR stop is derived from the cached
14-day average true range and fixed at entry; the grade comes from
today's RPS table.

Example:
  hunter position open 600519 1700.50 --qty 100`,
	Args: cobra.ExactArgs(2),
	RunE: runPositionOpen,
}

var positionCloseCmd = &cobra.Command{
	Use:   "close <id> <price>",
	Short: "Close (part of) a position at the given price",
	Long: `Closes a position. Closing on the entry day violates T+1 and is
rejected unless --force is set.

Example:
  hunter position close 6b2f... 1750.00
  hunter position close 6b2f... 1750.00 --fraction 0.5`,
	Args: cobra.ExactArgs(2),
	RunE: runPositionClose,
}

var positionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate exit rules against live quotes",
	RunE:  runPositionCheck,
}

func init() {
	rootCmd.AddCommand(positionCmd)
	positionCmd.AddCommand(positionListCmd)
	positionCmd.AddCommand(positionOpenCmd)
	positionCmd.AddCommand(positionCloseCmd)
	positionCmd.AddCommand(positionCheckCmd)

	positionOpenCmd.Flags().StringVar(&openName, "name", "", "display name")
	positionOpenCmd.Flags().IntVar(&openQuantity, "qty", 100, "quantity in shares")
	positionCloseCmd.Flags().Float64Var(&closeFrac, "fraction", 1.0, "fraction of the position to sell")
	positionCloseCmd.Flags().BoolVar(&closeForce, "force", false, "override the T+1 same-day guard")
}

func runPositionList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	open, err := a.Ledger.Open()
	if err != nil {
		return err
	}
	if len(open) == 0 {
		fmt.Println("no open positions")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Symbol", "Name", "Grade", "Entry", "Qty", "ATR Stop", "High"}),
	)
	for _, p := range open {
		table.Append([]string{
			shortID(p.ID),
			p.Symbol,
			p.Name,
			string(p.Grade),
			fmt.Sprintf("%.2f", p.EntryPrice),
			fmt.Sprintf("%d", p.Quantity),
			fmt.Sprintf("%.2f", p.ATRStopPrice),
			fmt.Sprintf("%.2f", p.HighWaterMark),
		})
	}
	table.Render()
	return nil
}

func runPositionOpen(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	price, err := parsePrice(args[1])
	if err != nil {
		return err
	}

	pos, err := a.OpenPosition(cmd.Context(), args[0], openName, price, openQuantity)
	if err != nil {
		return err
	}
	fmt.Printf("opened %s %s grade=%s entry=%.2f stop=%.2f id=%s\n",
		pos.Symbol, pos.Name, pos.Grade, pos.EntryPrice, pos.ATRStopPrice, pos.ID)
	return nil
}

func runPositionClose(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	price, err := parsePrice(args[1])
	if err != nil {
		return err
	}

	id, err := resolveID(a, args[0])
	if err != nil {
		return err
	}

	trade, err := a.ClosePosition(cmd.Context(), id, price, closeFrac, closeForce)
	if err != nil {
		return err
	}
	fmt.Printf("closed %d %s at %.2f pnl=%.2f (%.2f%%)\n",
		trade.Quantity, trade.Symbol, trade.ExitPrice, trade.RealizedPnL, trade.PnLPct*100)
	return nil
}

func runPositionCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	evals, err := a.EvaluatePositions(cmd.Context())
	if err != nil {
		return err
	}
	if len(evals) == 0 {
		fmt.Println("no open positions")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Price", "Entry", "High", "Signal", "Action", "Note"}),
	)
	for _, ev := range evals {
		action := "hold"
		if ev.Decision.Close {
			action = fmt.Sprintf("sell %.0f%%", ev.Decision.CloseFraction*100)
		}
		signal := string(ev.Decision.Reason)
		if ev.Decision.Reason == contracts.ExitNone {
			signal = "-"
			action = "-"
		}
		table.Append([]string{
			ev.Position.Symbol,
			fmt.Sprintf("%.2f", ev.Price),
			fmt.Sprintf("%.2f", ev.Position.EntryPrice),
			fmt.Sprintf("%.2f", ev.Position.HighWaterMark),
			signal,
			action,
			ev.Decision.Note,
		})
	}
	table.Render()
	return nil
}
