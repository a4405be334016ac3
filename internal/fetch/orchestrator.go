// Package fetch coordinates bulk history refreshes: a bounded worker
// pool pulls daily bars for every symbol the scan needs, retrying only
// transient failures, and reports a per-symbol outcome.
package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/bigbit0987/stock-trans/internal/cache"
	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/internal/datasource"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

// Source is the slice of the data client the orchestrator needs.
type Source interface {
	FetchSnapshot(ctx context.Context) (*contracts.MarketSnapshot, error)
	FetchHistory(ctx context.Context, symbol string, limit int) ([]contracts.PriceBar, error)
}

// Config holds orchestrator tuning.
type Config struct {
	Workers     int
	Retries     int
	BaseBackoff time.Duration
	HistoryBars int
	// Progress, when set, is called after every finished symbol.
	Progress func(done, total int)
}

// Result is the outcome of one symbol's refresh.
type Result struct {
	Symbol   string
	Status   contracts.RefreshStatus
	Bars     int
	Attempts int
	Err      error
}

// Summary aggregates one refresh cycle.
type Summary struct {
	Updated   int
	Unchanged int
	Failed    int
	Results   []Result
}

// Orchestrator drives refresh cycles against one Source and one cache
// Store.
type Orchestrator struct {
	source Source
	store  *cache.Store
	cfg    Config
	log    *logger.Logger
}

// New builds an Orchestrator. Zero config fields get safe defaults.
func New(source Source, store *cache.Store, cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.HistoryBars <= 0 {
		cfg.HistoryBars = 250
	}
	return &Orchestrator{
		source: source,
		store:  store,
		cfg:    cfg,
		log:    log.WithField("module", "fetch"),
	}
}

// SetProgress installs a per-symbol completion callback. Call before
// Refresh, not during.
func (o *Orchestrator) SetProgress(fn func(done, total int)) {
	o.cfg.Progress = fn
}

// Snapshot fetches the whole-universe snapshot exactly once and
// persists it. Per-symbol refreshes never hit the snapshot endpoint.
func (o *Orchestrator) Snapshot(ctx context.Context) (*contracts.MarketSnapshot, error) {
	snap, err := o.source.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.store.SaveSnapshot(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Refresh updates the cached history of every symbol. Staleness is
// judged against asOf, so replays and backfills see the same skip
// decisions as the live run did. Symbols whose cache already holds the
// last completed trading day are skipped as unchanged. A canceled
// context stops dispatch; symbols already in flight finish their
// current attempt.
func (o *Orchestrator) Refresh(ctx context.Context, symbols []string, asOf time.Time) Summary {
	o.log.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"workers": o.cfg.Workers,
	}).Info("Starting history refresh")

	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan Result, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range symbolCh {
				resultCh <- o.refreshOne(ctx, sym)
			}
		}()
	}

	dispatched := 0
dispatch:
	for _, sym := range symbols {
		select {
		case <-ctx.Done():
			break dispatch
		default:
		}
		if !o.store.IsStale(sym, asOf) {
			resultCh <- Result{Symbol: sym, Status: contracts.RefreshUnchanged}
			dispatched++
			continue
		}
		symbolCh <- sym
		dispatched++
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var sum Summary
	for r := range resultCh {
		switch r.Status {
		case contracts.RefreshUpdated:
			sum.Updated++
		case contracts.RefreshUnchanged:
			sum.Unchanged++
		case contracts.RefreshFailed:
			sum.Failed++
			o.log.WithFields(map[string]interface{}{
				"symbol":   r.Symbol,
				"attempts": r.Attempts,
				"error":    errString(r.Err),
			}).Warn("symbol refresh failed")
		}
		sum.Results = append(sum.Results, r)
		if o.cfg.Progress != nil {
			o.cfg.Progress(len(sum.Results), len(symbols))
		}
	}

	o.log.WithFields(map[string]interface{}{
		"updated":   sum.Updated,
		"unchanged": sum.Unchanged,
		"failed":    sum.Failed,
		"skipped":   len(symbols) - dispatched,
	}).Info("History refresh complete")
	return sum
}

func (o *Orchestrator) refreshOne(ctx context.Context, symbol string) Result {
	res := Result{Symbol: symbol}
	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1
		bars, err := o.source.FetchHistory(ctx, symbol, o.cfg.HistoryBars)
		if err == nil {
			changed, werr := o.store.Update(ctx, symbol, bars)
			if werr != nil {
				res.Status = contracts.RefreshFailed
				res.Err = werr
				return res
			}
			res.Bars = len(bars)
			if changed {
				res.Status = contracts.RefreshUpdated
			} else {
				res.Status = contracts.RefreshUnchanged
			}
			return res
		}

		res.Err = err
		if !datasource.IsTransient(err) || attempt >= o.cfg.Retries {
			res.Status = contracts.RefreshFailed
			return res
		}

		backoff := o.cfg.BaseBackoff << uint(attempt)
		backoff += time.Duration(rand.Int63n(int64(o.cfg.BaseBackoff)))
		select {
		case <-ctx.Done():
			res.Status = contracts.RefreshFailed
			res.Err = ctx.Err()
			return res
		case <-time.After(backoff):
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
