package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigbit0987/stock-trans/internal/scheduler"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduled trading-day jobs",
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the job scheduler in the foreground",
	Long: `Starts the cron scheduler with the standard job set:
  rps-update        weekdays 15:30, refresh cache and rank
  scan-first-pass   weekdays at the first scan time (default 14:35)
  scan-second-pass  weekdays at the second scan time (default 14:50)
  position-check    every 15 minutes during the session

Stops cleanly on SIGINT/SIGTERM.`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(a.Strategy.Meta.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", a.Strategy.Meta.Timezone, err)
	}

	s := scheduler.New(a.Log, loc)
	if err := scheduler.Register(s, a); err != nil {
		return err
	}

	s.Start()
	fmt.Printf("scheduler running with jobs: %v\n", s.Jobs())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	s.Stop()
	return nil
}
