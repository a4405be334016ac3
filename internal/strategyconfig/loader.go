// Package strategyconfig loads and validates the YAML strategy file.
// Unknown fields fail the load so typos never silently change behavior.
package strategyconfig

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bigbit0987/stock-trans/internal/contracts"
)

// Load reads a strategy YAML file, decoding strictly and validating.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates strategy YAML bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode strategy config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in strategy configuration, usable as-is
// when no strategy file is provided.
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID:     "late-session-dip-buy",
			Version:        "1.0",
			Timezone:       "Asia/Shanghai",
			FirstScanTime:  "14:35",
			SecondScanTime: "14:50",
		},
		Universe: Universe{
			PriceMin:        3.0,
			PriceMax:        300.0,
			MarketCapMin:    5e9,
			TurnoverRateMin: 1.0,
			TurnoverRateMax: 15.0,
			PctChangeMin:    -0.03,
			PctChangeMax:    0.07,
			ExcludePrefixes: []string{"688", "8", "4"},
			ExcludeSTNames:  true,
		},
		RPS: RPS{
			LongWindow:    120,
			ShortWindow:   20,
			LongThreshold: 75,
			WeakLongMax:   70,
			WeakShortMin:  90,
		},
		Scoring: Scoring{
			MomentumWeight:    0.30,
			CapitalFlowWeight: 0.25,
			SectorHeatWeight:  0.20,
			ValuationWeight:   0.15,
			TechnicalWeight:   0.10,
			MinComposite:      60,
			TopN:              20,
		},
		Patterns: Patterns{
			StagnantGainMax:     0.01,
			StagnantVolumeRatio: 2.5,
			PullbackGainMax:     0.03,
			PullbackVolumeRatio: 1.0,
			HealthyGainMin:      0.02,
			HealthyVolumeMin:    1.2,
			HealthyVolumeMax:    2.5,
			ExtremeLowVolumeMax: 0.5,
		},
		Sector: Sector{
			MinMembers: 3,
			MinShare:   0.30,
		},
		Risk: Risk{
			MaxPositions: 5,
			Grades:       contracts.DefaultGradeParams(),
		},
	}
}

// Validate checks invariants the decoder cannot express.
func Validate(cfg *Config) error {
	if cfg.RPS.LongWindow <= cfg.RPS.ShortWindow {
		return fmt.Errorf("rps: long_window (%d) must exceed short_window (%d)",
			cfg.RPS.LongWindow, cfg.RPS.ShortWindow)
	}
	if cfg.RPS.ShortWindow <= 0 {
		return fmt.Errorf("rps: short_window must be positive, got %d", cfg.RPS.ShortWindow)
	}

	var sum float64
	for _, w := range cfg.Scoring.Weights() {
		if w < 0 {
			return fmt.Errorf("scoring: negative factor weight %v", w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring: factor weights must sum to 1.0, got %v", sum)
	}

	if cfg.Universe.PriceMin < 0 || (cfg.Universe.PriceMax > 0 && cfg.Universe.PriceMax < cfg.Universe.PriceMin) {
		return fmt.Errorf("universe: invalid price range [%v, %v]",
			cfg.Universe.PriceMin, cfg.Universe.PriceMax)
	}

	if cfg.Patterns.HealthyVolumeMax <= cfg.Patterns.HealthyVolumeMin {
		return fmt.Errorf("patterns: healthy volume band [%v, %v] is empty",
			cfg.Patterns.HealthyVolumeMin, cfg.Patterns.HealthyVolumeMax)
	}

	if cfg.Risk.MaxPositions <= 0 {
		return fmt.Errorf("risk: max_positions must be positive, got %d", cfg.Risk.MaxPositions)
	}
	for g, p := range cfg.Risk.Grades {
		if g != contracts.GradeA && g != contracts.GradeB && g != contracts.GradeC {
			return fmt.Errorf("risk: unknown grade %q", g)
		}
		if p.ATRMultiplier <= 0 {
			return fmt.Errorf("risk: grade %s atr_multiplier must be positive", g)
		}
		if p.TakeProfitCloseFraction < 0 || p.TakeProfitCloseFraction > 1 {
			return fmt.Errorf("risk: grade %s take_profit_close_fraction out of [0,1]", g)
		}
	}

	return nil
}

// LoadOrDefault loads the strategy file when path is non-empty and the
// file exists, otherwise returns the built-in defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
