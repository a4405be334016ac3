// Package position tracks open holdings and applies the graded exit
// rules. The ledger survives restarts as JSON files guarded by an
// advisory file lock, so concurrent CLI invocations never tear state.
package position

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/pkg/lockfile"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

const ledgerPerm = 0o644

// Ledger persists positions and trade history. All mutation goes
// through Mutate, which holds the file lock across the full
// read-modify-write cycle.
type Ledger struct {
	positionsPath string
	tradesPath    string
	lockWait      time.Duration
	log           *logger.Logger
}

// NewLedger builds a Ledger over the two files.
func NewLedger(positionsPath, tradesPath string, lockWait time.Duration, log *logger.Logger) *Ledger {
	if lockWait <= 0 {
		lockWait = 5 * time.Second
	}
	return &Ledger{
		positionsPath: positionsPath,
		tradesPath:    tradesPath,
		lockWait:      lockWait,
		log:           log.WithField("module", "ledger"),
	}
}

// Load returns every stored position without taking the lock. Reads
// see either the previous or the new file content, never a torn write.
func (l *Ledger) Load() ([]contracts.Position, error) {
	return readPositions(l.positionsPath)
}

// Open returns the currently open positions.
func (l *Ledger) Open() ([]contracts.Position, error) {
	all, err := l.Load()
	if err != nil {
		return nil, err
	}
	open := all[:0:0]
	for _, p := range all {
		if p.Status == contracts.PositionOpen {
			open = append(open, p)
		}
	}
	return open, nil
}

// Mutate runs fn over the stored positions while holding the ledger
// lock, then commits the returned slice atomically. fn returning an
// error abandons the write.
func (l *Ledger) Mutate(ctx context.Context, fn func([]contracts.Position) ([]contracts.Position, error)) error {
	lock, err := lockfile.Acquire(ctx, l.positionsPath, l.lockWait)
	if err != nil {
		return fmt.Errorf("ledger: lock positions: %w", err)
	}
	defer lock.Release()

	positions, err := readPositions(l.positionsPath)
	if err != nil {
		return err
	}

	updated, err := fn(positions)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: marshal positions: %w", err)
	}
	if err := lockfile.WriteAtomic(l.positionsPath, data, ledgerPerm); err != nil {
		return fmt.Errorf("ledger: write positions: %w", err)
	}
	return nil
}

// AppendTrade records one closed trade in the append-only history.
func (l *Ledger) AppendTrade(ctx context.Context, trade contracts.Trade) error {
	lock, err := lockfile.Acquire(ctx, l.tradesPath, l.lockWait)
	if err != nil {
		return fmt.Errorf("ledger: lock trades: %w", err)
	}
	defer lock.Release()

	trades, err := readTrades(l.tradesPath)
	if err != nil {
		return err
	}
	trades = append(trades, trade)

	data, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: marshal trades: %w", err)
	}
	if err := lockfile.WriteAtomic(l.tradesPath, data, ledgerPerm); err != nil {
		return fmt.Errorf("ledger: write trades: %w", err)
	}
	return nil
}

// Trades returns the full trade history.
func (l *Ledger) Trades() ([]contracts.Trade, error) {
	return readTrades(l.tradesPath)
}

func readPositions(path string) ([]contracts.Position, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read positions: %w", err)
	}
	var positions []contracts.Position
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("ledger: corrupt positions file: %w", err)
	}
	return positions, nil
}

func readTrades(path string) ([]contracts.Trade, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read trades: %w", err)
	}
	var trades []contracts.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("ledger: corrupt trades file: %w", err)
	}
	return trades, nil
}
