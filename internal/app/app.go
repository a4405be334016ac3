// Package app wires the whole pipeline together and exposes the
// operations the CLI and scheduler call.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bigbit0987/stock-trans/internal/cache"
	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/internal/datasource"
	"github.com/bigbit0987/stock-trans/internal/fetch"
	"github.com/bigbit0987/stock-trans/internal/indicator"
	"github.com/bigbit0987/stock-trans/internal/market"
	"github.com/bigbit0987/stock-trans/internal/position"
	"github.com/bigbit0987/stock-trans/internal/scoring"
	"github.com/bigbit0987/stock-trans/internal/strategyconfig"
	"github.com/bigbit0987/stock-trans/pkg/config"
	"github.com/bigbit0987/stock-trans/pkg/lockfile"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

// App is the composition root. Build one per process with New.
type App struct {
	Cfg      *config.Config
	Strategy *strategyconfig.Config
	Log      *logger.Logger

	Store        *cache.Store
	Source       fetch.Source
	Orchestrator *fetch.Orchestrator
	Scoring      *scoring.Engine
	Ledger       *position.Ledger
	Positions    *position.Engine
}

// New loads configuration and wires every component.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	strategy, err := strategyconfig.LoadOrDefault(cfg.StrategyFile)
	if err != nil {
		return nil, fmt.Errorf("app: load strategy: %w", err)
	}

	store, err := cache.NewStore(cfg.CacheDir(), log)
	if err != nil {
		return nil, err
	}
	store.SetLockWait(cfg.LockWait)

	source := datasource.NewClient(cfg.RequestsPerSec, cfg.FetchTimeout, log)
	orch := fetch.New(source, store, fetch.Config{
		Workers:     cfg.FetchWorkers,
		Retries:     cfg.FetchRetries,
		HistoryBars: strategy.RPS.LongWindow + 30,
	}, log)

	ledger := position.NewLedger(cfg.PositionsFile(), cfg.TradesFile(), cfg.LockWait, log)

	return &App{
		Cfg:          cfg,
		Strategy:     strategy,
		Log:          log,
		Store:        store,
		Source:       source,
		Orchestrator: orch,
		Scoring:      scoring.NewEngine(store, strategy, log),
		Ledger:       ledger,
		Positions:    position.NewEngine(ledger, store, strategy.Risk, log),
	}, nil
}

// RunRefresh fetches a snapshot and refreshes the history cache for
// the filtered universe (or for the provided symbols when non-empty).
func (a *App) RunRefresh(ctx context.Context, symbols []string) (fetch.Summary, error) {
	if len(symbols) == 0 {
		snap, err := a.Orchestrator.Snapshot(ctx)
		if err != nil {
			return fetch.Summary{}, err
		}
		idx := market.NewIndex(snap)
		for _, r := range a.Scoring.FilterUniverse(idx) {
			symbols = append(symbols, r.Symbol)
		}
	}
	return a.Orchestrator.Refresh(ctx, symbols, time.Now()), nil
}

// UpdateRPS ranks every cached symbol and persists the table under
// data/rps/rps_<date>.json.
func (a *App) UpdateRPS(ctx context.Context, asOf time.Time) (*scoring.RPSTable, error) {
	symbols := a.Store.Symbols()
	if len(symbols) == 0 {
		return nil, fmt.Errorf("app: history cache is empty, run refresh first")
	}

	table := scoring.ComputeRPS(a.Store, symbols, asOf,
		a.Strategy.RPS.LongWindow, a.Strategy.RPS.ShortWindow,
		a.Strategy.RPS.WeakLongMax, a.Strategy.RPS.WeakShortMin)

	if err := a.saveRPS(table); err != nil {
		return nil, err
	}
	a.Log.WithFields(map[string]interface{}{
		"symbols": len(table.Results),
		"date":    table.Date.Format(contracts.DateFormat),
	}).Info("RPS table updated")
	return table, nil
}

func (a *App) rpsPath(date time.Time) string {
	return filepath.Join(a.Cfg.RPSDir(), "rps_"+date.Format(contracts.DateFormat)+".json")
}

func (a *App) saveRPS(table *scoring.RPSTable) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("app: marshal rps table: %w", err)
	}
	return lockfile.WriteAtomic(a.rpsPath(table.Date), data, 0o644)
}

// loadRPS returns the persisted table for the trading day of asOf, or
// nil when none exists.
func (a *App) loadRPS(asOf time.Time) *scoring.RPSTable {
	data, err := os.ReadFile(a.rpsPath(cache.LastTradingDay(asOf)))
	if err != nil {
		return nil
	}
	var table scoring.RPSTable
	if err := json.Unmarshal(data, &table); err != nil {
		a.Log.WithError(err).Warn("corrupt rps table, recomputing")
		return nil
	}
	return &table
}

// RPSFor returns the persisted table for the trading day of asOf,
// computing and persisting it when absent.
func (a *App) RPSFor(ctx context.Context, asOf time.Time) (*scoring.RPSTable, error) {
	if table := a.loadRPS(asOf); table != nil {
		return table, nil
	}
	return a.UpdateRPS(ctx, asOf)
}

// RunScan executes one full scan pass: snapshot, RPS (reusing today's
// persisted table when present), scoring, ranked candidates.
func (a *App) RunScan(ctx context.Context) ([]contracts.Candidate, error) {
	snap, err := a.Orchestrator.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	idx := market.NewIndex(snap)

	asOf := time.Now()
	table, err := a.RPSFor(ctx, asOf)
	if err != nil {
		return nil, err
	}

	cands := a.Scoring.Scan(idx, table, asOf)
	a.Log.WithFields(map[string]interface{}{
		"candidates": len(cands),
	}).Info("Scan complete")
	return cands, nil
}

// EvaluatePositions runs the exit rules for every open position using
// live snapshot prices.
func (a *App) EvaluatePositions(ctx context.Context) ([]position.Evaluation, error) {
	open, err := a.Ledger.Open()
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}

	snap, err := a.Orchestrator.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	idx := market.NewIndex(snap)

	quotes := make(map[string]float64, len(open))
	for _, pos := range open {
		if row, ok := idx.Lookup(pos.Symbol); ok {
			quotes[pos.Symbol] = row.Price
		}
	}
	return a.Positions.Evaluate(ctx, quotes)
}

// OpenPosition opens a holding at price, deriving the ATR stop from
// the cached history. Grade comes from today's RPS table when
// available, else defaults to C.
func (a *App) OpenPosition(ctx context.Context, symbol, name string, price float64, quantity int) (*contracts.Position, error) {
	now := time.Now()
	bars := a.Store.GetBefore(symbol, now)
	atr, ok := indicator.ATR(bars, 14)
	if !ok {
		return nil, fmt.Errorf("app: not enough cached history for %s to compute ATR, run refresh", symbol)
	}

	grade := contracts.GradeC
	if table := a.loadRPS(now); table != nil {
		if r, found := table.Lookup(symbol); found {
			grade = contracts.GradeForRPS(r.Long)
		}
	}

	return a.Positions.Open(ctx, position.OpenParams{
		Symbol:   symbol,
		Name:     name,
		Price:    price,
		Quantity: quantity,
		Grade:    grade,
		ATR:      atr,
	})
}

// ClosePosition closes fraction of a position at price.
func (a *App) ClosePosition(ctx context.Context, id string, price, fraction float64, force bool) (*contracts.Trade, error) {
	return a.Positions.Close(ctx, id, price, fraction, contracts.ExitManual, force)
}
