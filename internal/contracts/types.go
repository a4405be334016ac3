// Package contracts defines the domain types shared across packages:
// price bars, market snapshots, scored candidates and tracked positions.
package contracts

import "time"

// DateFormat is the canonical date layout used in ledgers and filenames.
const DateFormat = "2006-01-02"

// PriceBar is one daily OHLCV bar for a symbol. Series are ordered
// strictly ascending by date with no duplicates.
type PriceBar struct {
	Symbol       string    `json:"symbol"`
	Date         time.Time `json:"date"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       int64     `json:"volume"`
	TurnoverRate float64   `json:"turnover_rate"`
}

// SnapshotRow holds the live cross-sectional fields for one symbol.
type SnapshotRow struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	Price         float64 `json:"price"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PrevClose     float64 `json:"prev_close"`
	PctChange     float64 `json:"pct_change"`
	TurnoverRate  float64 `json:"turnover_rate"`
	VolumeRatio   float64 `json:"volume_ratio"`
	PE            float64 `json:"pe"`
	PB            float64 `json:"pb"`
	MarketCap     float64 `json:"market_cap"`
	MainNetInflow float64 `json:"main_net_inflow"`
}

// Amplitude is the intraday range relative to the previous close.
func (r SnapshotRow) Amplitude() float64 {
	if r.PrevClose <= 0 {
		return 0
	}
	return (r.High - r.Low) / r.PrevClose
}

// IsBullish reports whether the symbol trades above its open.
func (r SnapshotRow) IsBullish() bool {
	return r.Price > r.Open
}

// MarketSnapshot is the whole-universe snapshot fetched once per cycle.
// Rebuilt per scan; read-only afterward.
type MarketSnapshot struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Rows      []SnapshotRow `json:"rows"`
}

// Grade is a candidate/position tier selecting risk-parameter presets.
type Grade string

const (
	GradeA Grade = "A" // trend core: RPS120 >= 90
	GradeB Grade = "B" // potential: RPS120 >= 75
	GradeC Grade = "C" // stable: everything else
)

// GradeForRPS maps a long-window RPS value to a grade.
func GradeForRPS(rps120 float64) Grade {
	switch {
	case rps120 >= 90:
		return GradeA
	case rps120 >= 75:
		return GradeB
	default:
		return GradeC
	}
}

// SubScores holds the five factor sub-scores, each in [0,100].
type SubScores struct {
	Momentum    float64 `json:"momentum"`
	CapitalFlow float64 `json:"capital_flow"`
	SectorHeat  float64 `json:"sector_heat"`
	Valuation   float64 `json:"valuation"`
	Technical   float64 `json:"technical"`
}

// VolumePattern classifies a candidate's same-day volume/price behavior.
// Exactly one pattern applies; see scoring.ClassifyVolumePattern for the
// precedence order.
type VolumePattern string

const (
	PatternStagnantHighVolume VolumePattern = "STAGNANT_HIGH_VOLUME" // low gain, heavy volume: likely distribution
	PatternLowVolumePullback  VolumePattern = "LOW_VOLUME_CONSOLIDATION"
	PatternHealthyAdvance     VolumePattern = "HEALTHY_VOLUME_ADVANCE"
	PatternExtremeLowVolume   VolumePattern = "EXTREME_LOW_VOLUME"
	PatternUnclassified       VolumePattern = "UNCLASSIFIED"
)

// Candidate is one scored scan result. Transient: lives only in the
// scan's output artifact.
type Candidate struct {
	Symbol         string        `json:"symbol"`
	Name           string        `json:"name"`
	Sector         string        `json:"sector"`
	Price          float64       `json:"price"`
	CompositeScore float64       `json:"composite_score"`
	Sub            SubScores     `json:"sub_scores"`
	RPS120         float64       `json:"rps120"`
	RPS20          float64       `json:"rps20"`
	WeakToStrong   bool          `json:"weak_to_strong"`
	Pattern        VolumePattern `json:"pattern"`
	Grade          Grade         `json:"grade"`
	SectorResonant bool          `json:"sector_resonant"`
}

// PositionStatus is the lifecycle state of a tracked position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed" // terminal; closed positions are immutable
)

// Position is one tracked holding. Owned exclusively by the position
// engine; HighWaterMark is monotonically non-decreasing while open, and
// ATRStopPrice is fixed at entry and never recomputed.
type Position struct {
	ID            string         `json:"id"`
	Symbol        string         `json:"symbol"`
	Name          string         `json:"name"`
	EntryPrice    float64        `json:"entry_price"`
	EntryDate     time.Time      `json:"entry_date"`
	Quantity      int            `json:"quantity"`
	ATRAtEntry    float64        `json:"atr_at_entry"`
	ATRStopPrice  float64        `json:"atr_stop_price"`
	HighWaterMark float64        `json:"high_water_mark"`
	Grade         Grade          `json:"grade"`
	Status        PositionStatus `json:"status"`

	// Set on close.
	ExitPrice   float64    `json:"exit_price,omitempty"`
	ExitDate    *time.Time `json:"exit_date,omitempty"`
	ExitReason  ExitReason `json:"exit_reason,omitempty"`
	RealizedPnL float64    `json:"realized_pnl,omitempty"`
}

// Trade is one archived closed (or partially closed) position, appended
// to the immutable trade-history ledger.
type Trade struct {
	PositionID  string     `json:"position_id"`
	Symbol      string     `json:"symbol"`
	Name        string     `json:"name"`
	Grade       Grade      `json:"grade"`
	EntryPrice  float64    `json:"entry_price"`
	EntryDate   time.Time  `json:"entry_date"`
	ExitPrice   float64    `json:"exit_price"`
	ExitDate    time.Time  `json:"exit_date"`
	Quantity    int        `json:"quantity"`
	RealizedPnL float64    `json:"realized_pnl"`
	PnLPct      float64    `json:"pnl_pct"`
	Reason      ExitReason `json:"reason"`
	DaysHeld    int        `json:"days_held"`
}

// RefreshStatus is the per-symbol outcome of a refresh cycle.
type RefreshStatus string

const (
	RefreshUpdated   RefreshStatus = "updated"
	RefreshUnchanged RefreshStatus = "unchanged"
	RefreshFailed    RefreshStatus = "failed"
)
