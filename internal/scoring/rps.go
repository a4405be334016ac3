// Package scoring ranks the filtered universe: cross-sectional RPS,
// volume/price pattern classification, sector resonance and the
// weighted composite score that orders the final candidate list.
package scoring

import (
	"sort"
	"time"

	"github.com/bigbit0987/stock-trans/internal/cache"
	"github.com/bigbit0987/stock-trans/internal/indicator"
)

// RPSResult holds one symbol's relative-strength percentiles.
type RPSResult struct {
	Symbol string  `json:"symbol"`
	Long   float64 `json:"rps_long"`
	Short  float64 `json:"rps_short"`
	// WeakToStrong marks a laggard turning leader: weak over the long
	// window, top-decile over the short window. Both bounds are
	// strict.
	WeakToStrong bool `json:"weak_to_strong"`
}

// RPSTable maps symbol to its percentiles for one trading day.
type RPSTable struct {
	Date    time.Time            `json:"date"`
	Results map[string]RPSResult `json:"results"`
}

// ComputeRPS ranks every symbol's window return against the whole set
// and scales the rank to [0,100]. Ties are broken by symbol code
// ascending so the output is deterministic. Symbols with insufficient
// history are omitted.
func ComputeRPS(store *cache.Store, symbols []string, asOf time.Time, longWindow, shortWindow int, weakLongMax, weakShortMin float64) *RPSTable {
	type ret struct {
		symbol string
		value  float64
	}
	longs := make([]ret, 0, len(symbols))
	shorts := make([]ret, 0, len(symbols))

	for _, sym := range symbols {
		bars := store.GetBefore(sym, asOf)
		if lr, ok := indicator.WindowReturn(bars, longWindow); ok {
			longs = append(longs, ret{sym, lr})
		}
		if sr, ok := indicator.WindowReturn(bars, shortWindow); ok {
			shorts = append(shorts, ret{sym, sr})
		}
	}

	rank := func(rs []ret) map[string]float64 {
		sort.Slice(rs, func(i, j int) bool {
			if rs[i].value != rs[j].value {
				return rs[i].value < rs[j].value
			}
			return rs[i].symbol < rs[j].symbol
		})
		out := make(map[string]float64, len(rs))
		n := len(rs)
		for i, r := range rs {
			if n == 1 {
				out[r.symbol] = 100
				continue
			}
			out[r.symbol] = 100 * float64(i) / float64(n-1)
		}
		return out
	}

	longRank := rank(longs)
	shortRank := rank(shorts)

	table := &RPSTable{
		Date:    cache.LastTradingDay(asOf),
		Results: make(map[string]RPSResult, len(longRank)),
	}
	for sym, lv := range longRank {
		res := RPSResult{Symbol: sym, Long: lv}
		if sv, ok := shortRank[sym]; ok {
			res.Short = sv
			res.WeakToStrong = lv < weakLongMax && sv > weakShortMin
		}
		table.Results[sym] = res
	}
	return table
}

// Lookup returns the percentiles for symbol.
func (t *RPSTable) Lookup(symbol string) (RPSResult, bool) {
	r, ok := t.Results[symbol]
	return r, ok
}
