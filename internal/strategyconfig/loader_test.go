package strategyconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigbit0987/stock-trans/internal/contracts"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 120, cfg.RPS.LongWindow)
	assert.Equal(t, 20, cfg.RPS.ShortWindow)
	assert.InDelta(t, 1.0, sumWeights(cfg), 1e-9)
}

func sumWeights(cfg *Config) float64 {
	var sum float64
	for _, w := range cfg.Scoring.Weights() {
		sum += w
	}
	return sum
}

func TestParseOverridesDefaults(t *testing.T) {
	yml := `
rps:
  long_window: 250
  short_window: 60
  long_threshold: 80
scoring:
  momentum_weight: 0.40
  capital_flow_weight: 0.20
  sector_heat_weight: 0.20
  valuation_weight: 0.10
  technical_weight: 0.10
`
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.RPS.LongWindow)
	assert.Equal(t, 60, cfg.RPS.ShortWindow)
	assert.Equal(t, 80.0, cfg.RPS.LongThreshold)
	assert.Equal(t, 0.40, cfg.Scoring.MomentumWeight)
	// Untouched sections keep the defaults.
	assert.Equal(t, "14:35", cfg.Meta.FirstScanTime)
	assert.Equal(t, 5, cfg.Risk.MaxPositions)
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("rps:\n  long_widnow: 120\n"))
	require.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "weights do not sum to one",
			mutate: func(c *Config) { c.Scoring.MomentumWeight = 0.50 },
			want:   "weights must sum",
		},
		{
			name:   "short window exceeds long window",
			mutate: func(c *Config) { c.RPS.ShortWindow = 200 },
			want:   "long_window",
		},
		{
			name:   "empty healthy volume band",
			mutate: func(c *Config) { c.Patterns.HealthyVolumeMax = 1.0 },
			want:   "healthy volume band",
		},
		{
			name:   "zero max positions",
			mutate: func(c *Config) { c.Risk.MaxPositions = 0 },
			want:   "max_positions",
		},
		{
			name: "atr multiplier not positive",
			mutate: func(c *Config) {
				p := c.Risk.Grades[contracts.GradeA]
				p.ATRMultiplier = 0
				c.Risk.Grades[contracts.GradeA] = p
			},
			want: "atr_multiplier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGradeParamsFallback(t *testing.T) {
	r := Risk{Grades: map[contracts.Grade]contracts.GradeParams{}}
	p := r.GradeParams(contracts.GradeB)
	assert.Equal(t, contracts.DefaultGradeParams()[contracts.GradeB], p)
}
