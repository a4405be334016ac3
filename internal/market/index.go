// Package market builds an immutable cross-sectional index over one
// market snapshot, giving scoring O(1) symbol lookup and per-sector
// groupings.
package market

import "github.com/bigbit0987/stock-trans/internal/contracts"

// Index is a read-only view over one snapshot. Rebuilt per scan cycle,
// safe to share across goroutines without locking.
type Index struct {
	snap      *contracts.MarketSnapshot
	bySymbol  map[string]int
	bySector  map[string][]string
	advancers int
}

// NewIndex builds an Index over snap. The snapshot must not be mutated
// afterward.
func NewIndex(snap *contracts.MarketSnapshot) *Index {
	idx := &Index{
		snap:     snap,
		bySymbol: make(map[string]int, len(snap.Rows)),
		bySector: make(map[string][]string),
	}
	for i, r := range snap.Rows {
		idx.bySymbol[r.Symbol] = i
		if r.Sector != "" {
			idx.bySector[r.Sector] = append(idx.bySector[r.Sector], r.Symbol)
		}
		if r.PctChange > 0 {
			idx.advancers++
		}
	}
	return idx
}

// Lookup returns the snapshot row for symbol.
func (x *Index) Lookup(symbol string) (contracts.SnapshotRow, bool) {
	i, ok := x.bySymbol[symbol]
	if !ok {
		return contracts.SnapshotRow{}, false
	}
	return x.snap.Rows[i], true
}

// Rows returns every row in snapshot order.
func (x *Index) Rows() []contracts.SnapshotRow {
	return x.snap.Rows
}

// SectorMembers returns the symbols of one sector.
func (x *Index) SectorMembers(sector string) []string {
	return x.bySector[sector]
}

// SectorGain returns the mean fractional price change of a sector.
func (x *Index) SectorGain(sector string) float64 {
	members := x.bySector[sector]
	if len(members) == 0 {
		return 0
	}
	var sum float64
	for _, sym := range members {
		row, _ := x.Lookup(sym)
		sum += row.PctChange
	}
	return sum / float64(len(members))
}

// Breadth returns the fraction of the universe trading up on the day.
// It feeds the market-regime multiplier in scoring.
func (x *Index) Breadth() float64 {
	if len(x.snap.Rows) == 0 {
		return 0
	}
	return float64(x.advancers) / float64(len(x.snap.Rows))
}

// Size returns the number of indexed symbols.
func (x *Index) Size() int {
	return len(x.snap.Rows)
}
