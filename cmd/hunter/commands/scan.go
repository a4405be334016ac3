package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bigbit0987/stock-trans/internal/contracts"
)

var scanFormat string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one late-session scan pass",
	Long: `Runs the full pipeline against live quotes: snapshot, universe
filter, RPS gate, five-factor scoring, sector resonance. Prints the
ranked candidate list.

Example:
  hunter scan
  hunter scan --format json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanFormat, "format", "table", "output format (table|json)")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	cands, err := a.RunScan(cmd.Context())
	if err != nil {
		return err
	}

	if scanFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cands)
	}

	if len(cands) == 0 {
		fmt.Println("no candidates")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Name", "Score", "RPS120", "RPS20", "Grade", "Pattern", "Sector"}),
	)
	for _, c := range cands {
		sector := c.Sector
		if c.SectorResonant {
			sector += " *"
		}
		table.Append([]string{
			c.Symbol,
			c.Name,
			fmt.Sprintf("%.1f", c.CompositeScore),
			fmt.Sprintf("%.0f", c.RPS120),
			fmt.Sprintf("%.0f", c.RPS20),
			string(c.Grade),
			patternLabel(c.Pattern),
			sector,
		})
	}
	table.Render()
	fmt.Println("\n* sector resonance")
	return nil
}

func patternLabel(p contracts.VolumePattern) string {
	switch p {
	case contracts.PatternLowVolumePullback:
		return "pullback"
	case contracts.PatternHealthyAdvance:
		return "advance"
	case contracts.PatternStagnantHighVolume:
		return "churn"
	case contracts.PatternExtremeLowVolume:
		return "dry"
	default:
		return "-"
	}
}
