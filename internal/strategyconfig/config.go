package strategyconfig

import (
	"github.com/bigbit0987/stock-trans/internal/contracts"
)

// Config is the full strategy configuration loaded from strategy.yaml.
// It is the single source of truth for scan filters, scoring weights
// and per-grade risk parameters.
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Universe Universe `yaml:"universe" json:"universe"`
	RPS      RPS      `yaml:"rps" json:"rps"`
	Scoring  Scoring  `yaml:"scoring" json:"scoring"`
	Patterns Patterns `yaml:"patterns" json:"patterns"`
	Sector   Sector   `yaml:"sector" json:"sector"`
	Risk     Risk     `yaml:"risk" json:"risk"`
}

// Meta identifies the strategy and its scan windows.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
	// Local times for the two late-session scan passes, HH:MM.
	FirstScanTime  string `yaml:"first_scan_time" json:"first_scan_time"`
	SecondScanTime string `yaml:"second_scan_time" json:"second_scan_time"`
}

// Universe holds the hard pre-filters applied to the market snapshot
// before any scoring happens.
type Universe struct {
	PriceMin        float64 `yaml:"price_min" json:"price_min"`
	PriceMax        float64 `yaml:"price_max" json:"price_max"`
	MarketCapMin    float64 `yaml:"market_cap_min" json:"market_cap_min"`
	TurnoverRateMin float64 `yaml:"turnover_rate_min" json:"turnover_rate_min"`
	TurnoverRateMax float64 `yaml:"turnover_rate_max" json:"turnover_rate_max"`
	PctChangeMin    float64 `yaml:"pct_change_min" json:"pct_change_min"`
	PctChangeMax    float64 `yaml:"pct_change_max" json:"pct_change_max"`
	// Prefix blacklist for board exclusions (e.g. ST boards).
	ExcludePrefixes []string `yaml:"exclude_prefixes" json:"exclude_prefixes"`
	ExcludeSTNames  bool     `yaml:"exclude_st_names" json:"exclude_st_names"`
}

// RPS configures the relative-strength ranking.
type RPS struct {
	LongWindow  int `yaml:"long_window" json:"long_window"`
	ShortWindow int `yaml:"short_window" json:"short_window"`
	// Candidate gate: RPS over the long window must be at least this.
	LongThreshold float64 `yaml:"long_threshold" json:"long_threshold"`
	// Weak-to-strong gate: long-window RPS strictly below WeakLongMax
	// and short-window RPS strictly above WeakShortMin.
	WeakLongMax  float64 `yaml:"weak_long_max" json:"weak_long_max"`
	WeakShortMin float64 `yaml:"weak_short_min" json:"weak_short_min"`
}

// Scoring holds the composite factor weights. Weights must sum to 1.0.
type Scoring struct {
	MomentumWeight    float64 `yaml:"momentum_weight" json:"momentum_weight"`
	CapitalFlowWeight float64 `yaml:"capital_flow_weight" json:"capital_flow_weight"`
	SectorHeatWeight  float64 `yaml:"sector_heat_weight" json:"sector_heat_weight"`
	ValuationWeight   float64 `yaml:"valuation_weight" json:"valuation_weight"`
	TechnicalWeight   float64 `yaml:"technical_weight" json:"technical_weight"`
	// MinComposite is the score floor for a row to become a candidate.
	MinComposite float64 `yaml:"min_composite" json:"min_composite"`
	TopN         int     `yaml:"top_n" json:"top_n"`
}

// Weights returns the factor weights in a fixed order.
func (s Scoring) Weights() []float64 {
	return []float64{
		s.MomentumWeight,
		s.CapitalFlowWeight,
		s.SectorHeatWeight,
		s.ValuationWeight,
		s.TechnicalWeight,
	}
}

// Patterns holds the volume/price pattern thresholds. Percent fields
// are fractions of price change (0.01 == 1%).
type Patterns struct {
	StagnantGainMax      float64 `yaml:"stagnant_gain_max" json:"stagnant_gain_max"`
	StagnantVolumeRatio  float64 `yaml:"stagnant_volume_ratio" json:"stagnant_volume_ratio"`
	PullbackGainMax      float64 `yaml:"pullback_gain_max" json:"pullback_gain_max"`
	PullbackVolumeRatio  float64 `yaml:"pullback_volume_ratio" json:"pullback_volume_ratio"`
	HealthyGainMin       float64 `yaml:"healthy_gain_min" json:"healthy_gain_min"`
	HealthyVolumeMin     float64 `yaml:"healthy_volume_min" json:"healthy_volume_min"`
	HealthyVolumeMax     float64 `yaml:"healthy_volume_max" json:"healthy_volume_max"`
	ExtremeLowVolumeMax  float64 `yaml:"extreme_low_volume_max" json:"extreme_low_volume_max"`
}

// Sector configures the sector-resonance check.
type Sector struct {
	// Resonant when the sector contributes at least MinMembers
	// candidates, or at least MinShare of the candidate set.
	MinMembers int     `yaml:"min_members" json:"min_members"`
	MinShare   float64 `yaml:"min_share" json:"min_share"`
}

// Risk holds the per-grade exit parameters and portfolio limits.
type Risk struct {
	MaxPositions int                                         `yaml:"max_positions" json:"max_positions"`
	Grades       map[contracts.Grade]contracts.GradeParams `yaml:"grades" json:"grades"`
}

// GradeParams returns the parameters for a grade, falling back to the
// built-in defaults when the strategy file omits the grade.
func (r Risk) GradeParams(g contracts.Grade) contracts.GradeParams {
	if p, ok := r.Grades[g]; ok {
		return p
	}
	return contracts.DefaultGradeParams()[g]
}
