package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/bigbit0987/stock-trans/internal/cache"
	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/internal/indicator"
	"github.com/bigbit0987/stock-trans/internal/market"
	"github.com/bigbit0987/stock-trans/internal/strategyconfig"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

// Engine scores the filtered universe into a ranked candidate list.
type Engine struct {
	store *cache.Store
	cfg   *strategyconfig.Config
	log   *logger.Logger
}

// NewEngine builds a scoring Engine.
func NewEngine(store *cache.Store, cfg *strategyconfig.Config, log *logger.Logger) *Engine {
	return &Engine{store: store, cfg: cfg, log: log.WithField("module", "scoring")}
}

// FilterUniverse applies the hard pre-filters to the snapshot rows.
func (e *Engine) FilterUniverse(idx *market.Index) []contracts.SnapshotRow {
	u := e.cfg.Universe
	out := make([]contracts.SnapshotRow, 0, idx.Size()/4)
	for _, r := range idx.Rows() {
		if r.Price < u.PriceMin || (u.PriceMax > 0 && r.Price > u.PriceMax) {
			continue
		}
		if u.MarketCapMin > 0 && r.MarketCap < u.MarketCapMin {
			continue
		}
		if r.TurnoverRate < u.TurnoverRateMin || (u.TurnoverRateMax > 0 && r.TurnoverRate > u.TurnoverRateMax) {
			continue
		}
		if r.PctChange < u.PctChangeMin || r.PctChange > u.PctChangeMax {
			continue
		}
		if u.ExcludeSTNames && strings.Contains(r.Name, "ST") {
			continue
		}
		if hasPrefix(r.Symbol, u.ExcludePrefixes) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasPrefix(symbol string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(symbol, p) {
			return true
		}
	}
	return false
}

// RegimeMultiplier scales composite scores by market breadth. A weak
// tape shrinks every score so fewer names clear the candidate floor.
func RegimeMultiplier(breadth float64) float64 {
	switch {
	case breadth < 0.35:
		return 0.8
	case breadth > 0.60:
		return 1.1
	default:
		return 1.0
	}
}

// Scan runs the full pipeline: filter, RPS gate, five-factor scoring,
// sector resonance, ranked cut to TopN.
func (e *Engine) Scan(idx *market.Index, rps *RPSTable, asOf time.Time) []contracts.Candidate {
	rows := e.FilterUniverse(idx)
	multiplier := RegimeMultiplier(idx.Breadth())

	e.log.WithFields(map[string]interface{}{
		"universe":   idx.Size(),
		"filtered":   len(rows),
		"breadth":    idx.Breadth(),
		"multiplier": multiplier,
	}).Info("Scoring filtered universe")

	flowRank := e.flowPercentiles(rows)

	cands := make([]contracts.Candidate, 0, len(rows))
	for _, r := range rows {
		rp, ok := rps.Lookup(r.Symbol)
		if !ok {
			continue
		}
		if rp.Long < e.cfg.RPS.LongThreshold && !rp.WeakToStrong {
			continue
		}

		sub := e.subScores(r, rp, idx, flowRank, asOf)
		composite := e.composite(sub) * multiplier
		if composite > 100 {
			composite = 100
		}
		if composite < e.cfg.Scoring.MinComposite {
			continue
		}

		cands = append(cands, contracts.Candidate{
			Symbol:         r.Symbol,
			Name:           r.Name,
			Sector:         r.Sector,
			Price:          r.Price,
			CompositeScore: composite,
			Sub:            sub,
			RPS120:         rp.Long,
			RPS20:          rp.Short,
			WeakToStrong:   rp.WeakToStrong,
			Pattern:        ClassifyVolumePattern(r.PctChange, r.VolumeRatio, e.cfg.Patterns),
			Grade:          contracts.GradeForRPS(rp.Long),
		})
	}

	MarkSectorResonance(cands, e.cfg.Sector)

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].CompositeScore != cands[j].CompositeScore {
			return cands[i].CompositeScore > cands[j].CompositeScore
		}
		return cands[i].Symbol < cands[j].Symbol
	})
	if n := e.cfg.Scoring.TopN; n > 0 && len(cands) > n {
		cands = cands[:n]
	}
	return cands
}

func (e *Engine) subScores(r contracts.SnapshotRow, rp RPSResult, idx *market.Index, flowRank map[string]float64, asOf time.Time) contracts.SubScores {
	return contracts.SubScores{
		Momentum:    0.6*rp.Long + 0.4*rp.Short,
		CapitalFlow: flowRank[r.Symbol],
		SectorHeat:  clamp(50+idx.SectorGain(r.Sector)*1000, 0, 100),
		Valuation:   valuationScore(r.PE),
		Technical:   e.technicalScore(r, asOf),
	}
}

func (e *Engine) composite(s contracts.SubScores) float64 {
	w := e.cfg.Scoring
	return s.Momentum*w.MomentumWeight +
		s.CapitalFlow*w.CapitalFlowWeight +
		s.SectorHeat*w.SectorHeatWeight +
		s.Valuation*w.ValuationWeight +
		s.Technical*w.TechnicalWeight
}

// flowPercentiles ranks main net inflow cross-sectionally to [0,100].
func (e *Engine) flowPercentiles(rows []contracts.SnapshotRow) map[string]float64 {
	type flow struct {
		symbol string
		value  float64
	}
	fs := make([]flow, len(rows))
	for i, r := range rows {
		fs[i] = flow{r.Symbol, r.MainNetInflow}
	}
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].value != fs[j].value {
			return fs[i].value < fs[j].value
		}
		return fs[i].symbol < fs[j].symbol
	})
	out := make(map[string]float64, len(fs))
	n := len(fs)
	for i, f := range fs {
		if n == 1 {
			out[f.symbol] = 100
			continue
		}
		out[f.symbol] = 100 * float64(i) / float64(n-1)
	}
	return out
}

// valuationScore favors cheap names. Symbols with no meaningful PE
// (loss-making or missing data) score a neutral 50.
func valuationScore(pe float64) float64 {
	if pe <= 0 {
		return 50
	}
	return clamp(100-pe, 0, 100)
}

// technicalScore blends the volume pattern with the live MA5 position.
func (e *Engine) technicalScore(r contracts.SnapshotRow, asOf time.Time) float64 {
	score := PatternScore(ClassifyVolumePattern(r.PctChange, r.VolumeRatio, e.cfg.Patterns))
	bars := e.store.GetBefore(r.Symbol, asOf)
	if ma5, ok := indicator.RealtimeMA(bars, 5, r.Price); ok {
		if r.Price >= ma5 {
			score += 10
		} else {
			score -= 10
		}
	}
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
