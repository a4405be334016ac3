package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bigbit0987/stock-trans/internal/app"
)

// cronAt converts an "HH:MM" local time into a weekday cron spec.
func cronAt(hhmm string) (string, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, want HH:MM", hhmm)
	}
	return fmt.Sprintf("0 %s %s * * 1-5", parts[1], parts[0]), nil
}

// ScanJob runs one late-session scan pass.
type ScanJob struct {
	app      *app.App
	name     string
	schedule string
}

// NewScanJob builds a scan job firing at the given HH:MM on weekdays.
func NewScanJob(a *app.App, name, at string) (*ScanJob, error) {
	spec, err := cronAt(at)
	if err != nil {
		return nil, err
	}
	return &ScanJob{app: a, name: name, schedule: spec}, nil
}

func (j *ScanJob) Name() string     { return j.name }
func (j *ScanJob) Schedule() string { return j.schedule }

func (j *ScanJob) Run(ctx context.Context) error {
	cands, err := j.app.RunScan(ctx)
	if err != nil {
		return err
	}
	j.app.Log.WithFields(map[string]interface{}{
		"job":        j.name,
		"candidates": len(cands),
	}).Info("Scan pass finished")
	return nil
}

// RPSUpdateJob recomputes the RPS table after the close, once the day
// bar is final.
type RPSUpdateJob struct {
	app *app.App
}

func NewRPSUpdateJob(a *app.App) *RPSUpdateJob { return &RPSUpdateJob{app: a} }

func (j *RPSUpdateJob) Name() string     { return "rps-update" }
func (j *RPSUpdateJob) Schedule() string { return "0 30 15 * * 1-5" }

func (j *RPSUpdateJob) Run(ctx context.Context) error {
	if _, err := j.app.RunRefresh(ctx, nil); err != nil {
		return err
	}
	_, err := j.app.UpdateRPS(ctx, time.Now())
	return err
}

// PositionCheckJob evaluates the exit rules for open positions every
// quarter hour during the session.
type PositionCheckJob struct {
	app *app.App
}

func NewPositionCheckJob(a *app.App) *PositionCheckJob { return &PositionCheckJob{app: a} }

func (j *PositionCheckJob) Name() string     { return "position-check" }
func (j *PositionCheckJob) Schedule() string { return "0 */15 9-14 * * 1-5" }

func (j *PositionCheckJob) Run(ctx context.Context) error {
	evals, err := j.app.EvaluatePositions(ctx)
	if err != nil {
		return err
	}
	j.app.Log.WithField("positions", len(evals)).Debug("Position check finished")
	return nil
}

// Register wires the standard job set onto a scheduler.
func Register(s *Scheduler, a *app.App) error {
	first, err := NewScanJob(a, "scan-first-pass", a.Strategy.Meta.FirstScanTime)
	if err != nil {
		return err
	}
	second, err := NewScanJob(a, "scan-second-pass", a.Strategy.Meta.SecondScanTime)
	if err != nil {
		return err
	}
	for _, job := range []Job{
		NewRPSUpdateJob(a),
		first,
		second,
		NewPositionCheckJob(a),
	} {
		if err := s.AddJob(job); err != nil {
			return err
		}
	}
	return nil
}
