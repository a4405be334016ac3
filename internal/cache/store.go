// Package cache persists per-symbol daily history and the latest
// market snapshot as JSON files, so repeated scans never refetch bars
// they already hold.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/pkg/lockfile"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

const (
	historyDirName   = "history"
	snapshotFileName = "snapshot.json"
	filePerm         = 0o644
)

// Store is a file-backed history cache rooted at one directory.
// Files are written atomically; readers of a torn process never see a
// partial series.
type Store struct {
	dir      string
	lockWait time.Duration
	log      *logger.Logger
}

// NewStore opens (creating if needed) a cache rooted at dir.
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, historyDirName), 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	return &Store{dir: dir, lockWait: 5 * time.Second, log: log}, nil
}

// SetLockWait overrides how long Update waits for the per-symbol file
// lock.
func (s *Store) SetLockWait(d time.Duration) {
	if d > 0 {
		s.lockWait = d
	}
}

func (s *Store) historyPath(symbol string) string {
	return filepath.Join(s.dir, historyDirName, symbol+".json")
}

// Get returns the cached series for symbol, oldest first. A missing or
// unreadable file yields an empty series, never an error: the caller
// refetches and rewrites.
func (s *Store) Get(symbol string) []contracts.PriceBar {
	data, err := os.ReadFile(s.historyPath(symbol))
	if err != nil {
		return nil
	}
	var bars []contracts.PriceBar
	if err := json.Unmarshal(data, &bars); err != nil {
		s.log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		}).Warn("corrupt history file, treating as empty")
		return nil
	}
	return bars
}

// GetBefore returns the cached bars strictly before asOf, oldest first.
// Live scans use this so today's unfinished bar never enters a
// historical window.
func (s *Store) GetBefore(symbol string, asOf time.Time) []contracts.PriceBar {
	bars := s.Get(symbol)
	cut := asOf.Truncate(24 * time.Hour)
	i := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Date.Before(cut)
	})
	return bars[:i]
}

// Update merges fresh bars into the cached series and persists the
// result while holding the symbol's file lock, so concurrent refreshes
// of the same symbol never lose each other's bars. Merging is
// idempotent: bars whose dates already exist are dropped, and the
// stored series stays strictly ascending with no duplicates. Returns
// true when the file content changed.
func (s *Store) Update(ctx context.Context, symbol string, fresh []contracts.PriceBar) (bool, error) {
	if len(fresh) == 0 {
		return false, nil
	}
	lock, err := lockfile.Acquire(ctx, s.historyPath(symbol), s.lockWait)
	if err != nil {
		return false, fmt.Errorf("cache: lock %s: %w", symbol, err)
	}
	defer lock.Release()

	existing := s.Get(symbol)

	seen := make(map[string]struct{}, len(existing))
	for _, b := range existing {
		seen[b.Date.Format(contracts.DateFormat)] = struct{}{}
	}

	merged := existing
	added := 0
	for _, b := range fresh {
		key := b.Date.Format(contracts.DateFormat)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, b)
		added++
	}
	if added == 0 {
		return false, nil
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})

	data, err := json.Marshal(merged)
	if err != nil {
		return false, fmt.Errorf("cache: marshal %s: %w", symbol, err)
	}
	if err := lockfile.WriteAtomic(s.historyPath(symbol), data, filePerm); err != nil {
		return false, fmt.Errorf("cache: write %s: %w", symbol, err)
	}
	return true, nil
}

// LastDate returns the date of the newest cached bar for symbol.
func (s *Store) LastDate(symbol string) (time.Time, bool) {
	bars := s.Get(symbol)
	if len(bars) == 0 {
		return time.Time{}, false
	}
	return bars[len(bars)-1].Date, true
}

// IsStale reports whether the cached series for symbol is missing the
// last completed trading day relative to now. Weekends are skipped;
// exchange holidays are not modeled, so a holiday reads as stale and
// costs one harmless refetch.
func (s *Store) IsStale(symbol string, now time.Time) bool {
	last, ok := s.LastDate(symbol)
	if !ok {
		return true
	}
	want := LastTradingDay(now)
	return last.Before(want)
}

// LastTradingDay returns the most recent weekday on or before now,
// stepping back one day when the session has not closed yet (before
// 15:00 local time the latest complete bar is yesterday's).
func LastTradingDay(now time.Time) time.Time {
	d := now.Truncate(24 * time.Hour)
	if now.Hour() < 15 {
		d = d.AddDate(0, 0, -1)
	}
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// SaveSnapshot persists the latest whole-market snapshot.
func (s *Store) SaveSnapshot(snap *contracts.MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot: %w", err)
	}
	if err := lockfile.WriteAtomic(filepath.Join(s.dir, snapshotFileName), data, filePerm); err != nil {
		return fmt.Errorf("cache: write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the last persisted snapshot, or nil when none
// (or a corrupt one) exists.
func (s *Store) LoadSnapshot() *contracts.MarketSnapshot {
	data, err := os.ReadFile(filepath.Join(s.dir, snapshotFileName))
	if err != nil {
		return nil
	}
	var snap contracts.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.WithError(err).Warn("corrupt snapshot file, ignoring")
		return nil
	}
	return &snap
}

// Symbols lists every symbol with a cached history file.
func (s *Store) Symbols() []string {
	entries, err := os.ReadDir(filepath.Join(s.dir, historyDirName))
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		out = append(out, name[:len(name)-len(".json")])
	}
	sort.Strings(out)
	return out
}
